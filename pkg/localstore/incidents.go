package localstore

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"trafficwatch-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// IncidentUpdate carries the fields of a shallow-merge update. Nil fields are
// left untouched on the stored record.
type IncidentUpdate struct {
	Type              *string   `json:"type,omitempty"`
	Location          *string   `json:"location,omitempty"`
	Severity          *string   `json:"severity,omitempty"`
	Description       *string   `json:"description,omitempty"`
	VehiclesInvolved  *int      `json:"vehiclesInvolved,omitempty"`
	Status            *string   `json:"status,omitempty"`
	ReportedBy        *string   `json:"reportedBy,omitempty"`
	ContactNumber     *string   `json:"contactNumber,omitempty"`
	Source            *string   `json:"source,omitempty"`
	UnitsAssigned     *int      `json:"unitsAssigned,omitempty"`
	RespondedBy       *string   `json:"respondedBy,omitempty"`
	Evidence          *string   `json:"evidence,omitempty"`
	EmergencyServices *[]string `json:"emergencyServices,omitempty"`
}

// AddIncident assigns identity and timestamps, applies creation defaults, and
// persists the record. The passed record is filled in place; the assigned
// identity is returned. Identities are unique and increasing, so an existing
// record is never overwritten.
func (s *Store) AddIncident(ctx context.Context, inc *models.Incident) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	id, err := s.client.Incr(ctx, s.key("incidents", "seq")).Result()
	if err != nil {
		return 0, storageErr("add incident", err)
	}

	now := time.Now().UTC()
	inc.ID = id
	if inc.Status == "" {
		inc.Status = models.IncidentStatusActive
	}
	if inc.ReportedAt.IsZero() {
		inc.ReportedAt = now
	}
	if inc.Source == "" {
		inc.Source = models.SourceAdmin
	}
	if inc.District == "" {
		inc.District = s.district
	}
	if inc.State == "" {
		inc.State = s.state
	}
	if inc.UnitsAssigned == 0 {
		inc.UnitsAssigned = models.UnitsForSeverity(inc.Severity)
	}
	if inc.RespondedBy == "" {
		inc.RespondedBy = "Pending"
	}
	if inc.Evidence == "" {
		inc.Evidence = "None"
	}
	if inc.EmergencyServices == nil {
		inc.EmergencyServices = []string{}
	}
	inc.CreatedAt = now
	inc.UpdatedAt = now

	data, err := json.Marshal(inc)
	if err != nil {
		return 0, storageErr("add incident", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.incidentKey(id), data, 0)
	pipe.SAdd(ctx, s.key("incidents", "ids"), id)
	pipe.SAdd(ctx, s.key("incidents", "idx", "status", inc.Status), id)
	pipe.SAdd(ctx, s.key("incidents", "idx", "severity", inc.Severity), id)
	pipe.SAdd(ctx, s.key("incidents", "idx", "source", inc.Source), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, storageErr("add incident", err)
	}

	return id, nil
}

// GetIncident looks up a single incident by identity.
func (s *Store) GetIncident(ctx context.Context, id int64) (*models.Incident, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	raw, err := s.client.Get(ctx, s.incidentKey(id)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get incident", err)
	}

	var inc models.Incident
	if err := json.Unmarshal([]byte(raw), &inc); err != nil {
		return nil, storageErr("get incident", err)
	}
	return &inc, nil
}

// ListIncidents returns every incident record. Order is not guaranteed;
// callers sort for display. An empty collection yields an empty slice.
func (s *Store) ListIncidents(ctx context.Context) ([]*models.Incident, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ids, err := s.client.SMembers(ctx, s.key("incidents", "ids")).Result()
	if err != nil {
		return nil, storageErr("list incidents", err)
	}
	return s.incidentsByIDs(ctx, ids)
}

// ListIncidentsByStatus returns incidents matching a status via the
// secondary index.
func (s *Store) ListIncidentsByStatus(ctx context.Context, status string) ([]*models.Incident, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ids, err := s.client.SMembers(ctx, s.key("incidents", "idx", "status", status)).Result()
	if err != nil {
		return nil, storageErr("list incidents by status", err)
	}
	return s.incidentsByIDs(ctx, ids)
}

// ListIncidentsBySeverity returns incidents matching a severity via the
// secondary index.
func (s *Store) ListIncidentsBySeverity(ctx context.Context, severity string) ([]*models.Incident, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ids, err := s.client.SMembers(ctx, s.key("incidents", "idx", "severity", severity)).Result()
	if err != nil {
		return nil, storageErr("list incidents by severity", err)
	}
	return s.incidentsByIDs(ctx, ids)
}

// UpdateIncident shallow-merges the supplied fields into an existing record,
// refreshes updatedAt, and returns the merged record. A missing identity
// fails with ErrNotFound and creates nothing.
func (s *Store) UpdateIncident(ctx context.Context, id int64, upd IncidentUpdate) (*models.Incident, error) {
	inc, err := s.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	prevStatus, prevSeverity, prevSource := inc.Status, inc.Severity, inc.Source

	if upd.Type != nil {
		inc.Type = *upd.Type
	}
	if upd.Location != nil {
		inc.Location = *upd.Location
	}
	if upd.Severity != nil {
		inc.Severity = *upd.Severity
	}
	if upd.Description != nil {
		inc.Description = *upd.Description
	}
	if upd.VehiclesInvolved != nil {
		inc.VehiclesInvolved = *upd.VehiclesInvolved
	}
	if upd.Status != nil {
		inc.Status = *upd.Status
	}
	if upd.ReportedBy != nil {
		inc.ReportedBy = *upd.ReportedBy
	}
	if upd.ContactNumber != nil {
		inc.ContactNumber = *upd.ContactNumber
	}
	if upd.Source != nil {
		inc.Source = *upd.Source
	}
	if upd.UnitsAssigned != nil {
		inc.UnitsAssigned = *upd.UnitsAssigned
	}
	if upd.RespondedBy != nil {
		inc.RespondedBy = *upd.RespondedBy
	}
	if upd.Evidence != nil {
		inc.Evidence = *upd.Evidence
	}
	if upd.EmergencyServices != nil {
		inc.EmergencyServices = *upd.EmergencyServices
	}
	inc.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(inc)
	if err != nil {
		return nil, storageErr("update incident", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.incidentKey(id), data, 0)
	if inc.Status != prevStatus {
		pipe.SRem(ctx, s.key("incidents", "idx", "status", prevStatus), id)
		pipe.SAdd(ctx, s.key("incidents", "idx", "status", inc.Status), id)
	}
	if inc.Severity != prevSeverity {
		pipe.SRem(ctx, s.key("incidents", "idx", "severity", prevSeverity), id)
		pipe.SAdd(ctx, s.key("incidents", "idx", "severity", inc.Severity), id)
	}
	if inc.Source != prevSource {
		pipe.SRem(ctx, s.key("incidents", "idx", "source", prevSource), id)
		pipe.SAdd(ctx, s.key("incidents", "idx", "source", inc.Source), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, storageErr("update incident", err)
	}

	return inc, nil
}

// DeleteIncident removes an incident and its index memberships. Deleting an
// unknown identity is a no-op, so deletion is idempotent.
func (s *Store) DeleteIncident(ctx context.Context, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}

	raw, err := s.client.Get(ctx, s.incidentKey(id)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return storageErr("delete incident", err)
	}

	var inc models.Incident
	if err := json.Unmarshal([]byte(raw), &inc); err != nil {
		return storageErr("delete incident", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.incidentKey(id))
	pipe.SRem(ctx, s.key("incidents", "ids"), id)
	pipe.SRem(ctx, s.key("incidents", "idx", "status", inc.Status), id)
	pipe.SRem(ctx, s.key("incidents", "idx", "severity", inc.Severity), id)
	pipe.SRem(ctx, s.key("incidents", "idx", "source", inc.Source), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return storageErr("delete incident", err)
	}
	return nil
}

// CountIncidents returns the total number of incident records.
func (s *Store) CountIncidents(ctx context.Context) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	n, err := s.client.SCard(ctx, s.key("incidents", "ids")).Result()
	if err != nil {
		return 0, storageErr("count incidents", err)
	}
	return n, nil
}

// CountIncidentsByStatus returns the cardinality of a status index.
func (s *Store) CountIncidentsByStatus(ctx context.Context, status string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	n, err := s.client.SCard(ctx, s.key("incidents", "idx", "status", status)).Result()
	if err != nil {
		return 0, storageErr("count incidents by status", err)
	}
	return n, nil
}

// CountIncidentsBySeverity returns the cardinality of a severity index.
func (s *Store) CountIncidentsBySeverity(ctx context.Context, severity string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	n, err := s.client.SCard(ctx, s.key("incidents", "idx", "severity", severity)).Result()
	if err != nil {
		return 0, storageErr("count incidents by severity", err)
	}
	return n, nil
}

func (s *Store) incidentKey(id int64) string {
	return s.key("incidents", "rec", strconv.FormatInt(id, 10))
}

func (s *Store) incidentsByIDs(ctx context.Context, rawIDs []string) ([]*models.Incident, error) {
	out := make([]*models.Incident, 0, len(rawIDs))
	if len(rawIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(rawIDs))
	for i, raw := range rawIDs {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, storageErr("decode incident id", err)
		}
		keys[i] = s.incidentKey(id)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storageErr("fetch incidents", err)
	}

	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// index member without a record: skip rather than fail the read
			continue
		}
		var inc models.Incident
		if err := json.Unmarshal([]byte(raw), &inc); err != nil {
			return nil, storageErr("decode incident", err)
		}
		out = append(out, &inc)
	}
	return out, nil
}
