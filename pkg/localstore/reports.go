package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"trafficwatch-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// PromotionResult names the two records touched by a report promotion. The
// relationship is not persisted; this is the only place both identities
// appear together.
type PromotionResult struct {
	IncidentID int64 `json:"incidentId"`
	ReportID   int64 `json:"reportId"`
}

// AddUserReport assigns identity, stamps submittedAt, forces status to
// "pending", generates the human-readable reportId label, and persists the
// record. The passed record is filled in place; the assigned identity is
// returned. Report identities are numbered independently from incidents.
func (s *Store) AddUserReport(ctx context.Context, rep *models.UserReport) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	id, err := s.client.Incr(ctx, s.key("reports", "seq")).Result()
	if err != nil {
		return 0, storageErr("add user report", err)
	}

	now := time.Now().UTC()
	rep.ID = id
	rep.Status = models.ReportStatusPending
	rep.SubmittedAt = now
	rep.UpdatedAt = now
	// Wall-clock-derived label; collisions under rapid submission are a known
	// weakness of the scheme, the integer identity stays authoritative.
	rep.ReportID = fmt.Sprintf("USR-%06d", now.UnixMilli()%1_000_000)
	if rep.EmergencyServices == nil {
		rep.EmergencyServices = []string{}
	}

	data, err := json.Marshal(rep)
	if err != nil {
		return 0, storageErr("add user report", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.reportKey(id), data, 0)
	pipe.SAdd(ctx, s.key("reports", "ids"), id)
	pipe.SAdd(ctx, s.key("reports", "idx", "status", rep.Status), id)
	if rep.UserID != "" {
		pipe.SAdd(ctx, s.key("reports", "idx", "user", rep.UserID), id)
	}
	pipe.ZAdd(ctx, s.key("reports", "by_submitted"), redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: id,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, storageErr("add user report", err)
	}

	return id, nil
}

// GetUserReport looks up a single report by identity.
func (s *Store) GetUserReport(ctx context.Context, id int64) (*models.UserReport, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	raw, err := s.client.Get(ctx, s.reportKey(id)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get user report", err)
	}

	var rep models.UserReport
	if err := json.Unmarshal([]byte(raw), &rep); err != nil {
		return nil, storageErr("get user report", err)
	}
	return &rep, nil
}

// ListUserReports returns every report, most recently submitted first.
func (s *Store) ListUserReports(ctx context.Context) ([]*models.UserReport, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ids, err := s.client.ZRevRange(ctx, s.key("reports", "by_submitted"), 0, -1).Result()
	if err != nil {
		return nil, storageErr("list user reports", err)
	}
	return s.reportsByIDs(ctx, ids)
}

// ListUserReportsByUser returns the reports whose userId field exactly
// matches the argument. An unknown user yields an empty slice.
func (s *Store) ListUserReportsByUser(ctx context.Context, userID string) ([]*models.UserReport, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ids, err := s.client.SMembers(ctx, s.key("reports", "idx", "user", userID)).Result()
	if err != nil {
		return nil, storageErr("list user reports by user", err)
	}
	return s.reportsByIDs(ctx, ids)
}

// ListUserReportsByStatus returns the reports in a given triage state.
func (s *Store) ListUserReportsByStatus(ctx context.Context, status string) ([]*models.UserReport, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ids, err := s.client.SMembers(ctx, s.key("reports", "idx", "status", status)).Result()
	if err != nil {
		return nil, storageErr("list user reports by status", err)
	}
	return s.reportsByIDs(ctx, ids)
}

// UpdateUserReportStatus sets a report's status and refreshes updatedAt. The
// transition itself is not validated; triage policy lives with the caller.
func (s *Store) UpdateUserReportStatus(ctx context.Context, id int64, status string) (*models.UserReport, error) {
	rep, err := s.GetUserReport(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := rep.Status
	rep.Status = status
	rep.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(rep)
	if err != nil {
		return nil, storageErr("update user report status", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.reportKey(id), data, 0)
	if status != prev {
		pipe.SRem(ctx, s.key("reports", "idx", "status", prev), id)
		pipe.SAdd(ctx, s.key("reports", "idx", "status", status), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, storageErr("update user report status", err)
	}

	return rep, nil
}

// SyncReportToIncident promotes a user report into the incidents collection:
// a new incident is created from the report's fields with source forced to
// "user", district/state forced to the deployment values, and unitsAssigned
// forced to 1; the report is then flipped to "approved".
//
// The two writes are NOT atomic. If the incident insert succeeds but the
// status flip fails, the returned error carries both identities and the
// report stays "pending"; retrying creates a second incident. Callers must
// treat that window as requiring manual reconciliation.
func (s *Store) SyncReportToIncident(ctx context.Context, reportID int64) (*PromotionResult, error) {
	rep, err := s.GetUserReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	inc := &models.Incident{
		Type:              rep.Type,
		Location:          rep.Location,
		Severity:          rep.Severity,
		Description:       rep.Description,
		VehiclesInvolved:  rep.VehiclesInvolved,
		ReportedAt:        rep.SubmittedAt,
		ReportedBy:        rep.ReportedBy,
		ContactNumber:     rep.ContactNumber,
		Source:            models.SourceUser,
		District:          s.district,
		State:             s.state,
		UnitsAssigned:     1,
		Evidence:          rep.EvidenceDescription,
		EmergencyServices: rep.EmergencyServices,
	}

	incidentID, err := s.AddIncident(ctx, inc)
	if err != nil {
		return nil, err
	}

	result := &PromotionResult{IncidentID: incidentID, ReportID: reportID}
	if _, err := s.UpdateUserReportStatus(ctx, reportID, models.ReportStatusApproved); err != nil {
		return result, fmt.Errorf("report %d promoted to incident %d but status update failed: %w", reportID, incidentID, err)
	}
	return result, nil
}

// CountUserReportsByStatus returns the cardinality of a status index.
func (s *Store) CountUserReportsByStatus(ctx context.Context, status string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	n, err := s.client.SCard(ctx, s.key("reports", "idx", "status", status)).Result()
	if err != nil {
		return 0, storageErr("count user reports by status", err)
	}
	return n, nil
}

func (s *Store) reportKey(id int64) string {
	return s.key("reports", "rec", strconv.FormatInt(id, 10))
}

func (s *Store) reportsByIDs(ctx context.Context, rawIDs []string) ([]*models.UserReport, error) {
	out := make([]*models.UserReport, 0, len(rawIDs))
	if len(rawIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(rawIDs))
	for i, raw := range rawIDs {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, storageErr("decode report id", err)
		}
		keys[i] = s.reportKey(id)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storageErr("fetch user reports", err)
	}

	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rep models.UserReport
		if err := json.Unmarshal([]byte(raw), &rep); err != nil {
			return nil, storageErr("decode user report", err)
		}
		out = append(out, &rep)
	}
	return out, nil
}
