package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"trafficwatch-backend/internal/models"
	"trafficwatch-backend/pkg/localstore"

	"github.com/sirupsen/logrus"
)

// IncidentService is the triage layer over the local incident store. All
// reads and writes go through the store; there is no event push, so feed
// consumers re-query for fresh data.
type IncidentService struct {
	store *localstore.Store
	log   *logrus.Logger
}

func NewIncidentService(store *localstore.Store, log *logrus.Logger) *IncidentService {
	return &IncidentService{
		store: store,
		log:   log,
	}
}

type CreateIncidentRequest struct {
	Type              string   `json:"type" validate:"required"`
	Location          string   `json:"location" validate:"required"`
	Severity          string   `json:"severity" validate:"required,oneof=High Medium Low"`
	Description       string   `json:"description,omitempty"`
	VehiclesInvolved  int      `json:"vehiclesInvolved,omitempty" validate:"omitempty,min=0"`
	Status            string   `json:"status,omitempty" validate:"omitempty,oneof=active resolved investigating pending"`
	ReportedBy        string   `json:"reportedBy,omitempty"`
	ContactNumber     string   `json:"contactNumber,omitempty"`
	Source            string   `json:"source,omitempty" validate:"omitempty,oneof=user admin system"`
	UnitsAssigned     int      `json:"unitsAssigned,omitempty" validate:"omitempty,min=0"`
	RespondedBy       string   `json:"respondedBy,omitempty"`
	Evidence          string   `json:"evidence,omitempty"`
	EmergencyServices []string `json:"emergencyServices,omitempty"`
}

type UpdateIncidentRequest struct {
	Type              *string   `json:"type,omitempty"`
	Location          *string   `json:"location,omitempty"`
	Severity          *string   `json:"severity,omitempty" validate:"omitempty,oneof=High Medium Low"`
	Description       *string   `json:"description,omitempty"`
	VehiclesInvolved  *int      `json:"vehiclesInvolved,omitempty" validate:"omitempty,min=0"`
	Status            *string   `json:"status,omitempty" validate:"omitempty,oneof=active resolved investigating pending"`
	ReportedBy        *string   `json:"reportedBy,omitempty"`
	ContactNumber     *string   `json:"contactNumber,omitempty"`
	UnitsAssigned     *int      `json:"unitsAssigned,omitempty" validate:"omitempty,min=0"`
	RespondedBy       *string   `json:"respondedBy,omitempty"`
	Evidence          *string   `json:"evidence,omitempty"`
	EmergencyServices *[]string `json:"emergencyServices,omitempty"`
}

type SubmitReportRequest struct {
	Type                string   `json:"type" validate:"required"`
	Location            string   `json:"location" validate:"required"`
	Severity            string   `json:"severity" validate:"required,oneof=High Medium Low"`
	Description         string   `json:"description,omitempty"`
	VehiclesInvolved    int      `json:"vehiclesInvolved,omitempty" validate:"omitempty,min=0"`
	ContactNumber       string   `json:"contactNumber,omitempty"`
	ReportedBy          string   `json:"reportedBy,omitempty"`
	EvidenceType        string   `json:"evidenceType,omitempty"`
	EvidenceDescription string   `json:"evidenceDescription,omitempty"`
	EmergencyServices   []string `json:"emergencyServices,omitempty"`
}

// FeedEntry is one row of the merged triage feed: either a confirmed incident
// or a citizen report still awaiting review.
type FeedEntry struct {
	Kind      string             `json:"kind"` // "incident" or "report"
	Timestamp time.Time          `json:"timestamp"`
	Incident  *models.Incident   `json:"incident,omitempty"`
	Report    *models.UserReport `json:"report,omitempty"`
}

func (s *IncidentService) CreateIncident(ctx context.Context, req *CreateIncidentRequest) (*models.Incident, error) {
	inc := &models.Incident{
		Type:              req.Type,
		Location:          req.Location,
		Severity:          req.Severity,
		Description:       req.Description,
		VehiclesInvolved:  req.VehiclesInvolved,
		Status:            req.Status,
		ReportedBy:        req.ReportedBy,
		ContactNumber:     req.ContactNumber,
		Source:            req.Source,
		UnitsAssigned:     req.UnitsAssigned,
		RespondedBy:       req.RespondedBy,
		Evidence:          req.Evidence,
		EmergencyServices: req.EmergencyServices,
	}
	if inc.Source == "" {
		inc.Source = models.SourceAdmin
	}

	if _, err := s.store.AddIncident(ctx, inc); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"incidentId": inc.ID,
		"severity":   inc.Severity,
		"source":     inc.Source,
	}).Info("incident created")

	return inc, nil
}

func (s *IncidentService) GetIncident(ctx context.Context, id int64) (*models.Incident, error) {
	return s.store.GetIncident(ctx, id)
}

func (s *IncidentService) ListIncidents(ctx context.Context, status, severity string) ([]*models.Incident, error) {
	switch {
	case status != "":
		return s.store.ListIncidentsByStatus(ctx, status)
	case severity != "":
		return s.store.ListIncidentsBySeverity(ctx, severity)
	default:
		return s.store.ListIncidents(ctx)
	}
}

func (s *IncidentService) UpdateIncident(ctx context.Context, id int64, req *UpdateIncidentRequest) (*models.Incident, error) {
	upd := localstore.IncidentUpdate{
		Type:              req.Type,
		Location:          req.Location,
		Severity:          req.Severity,
		Description:       req.Description,
		VehiclesInvolved:  req.VehiclesInvolved,
		Status:            req.Status,
		ReportedBy:        req.ReportedBy,
		ContactNumber:     req.ContactNumber,
		UnitsAssigned:     req.UnitsAssigned,
		RespondedBy:       req.RespondedBy,
		Evidence:          req.Evidence,
		EmergencyServices: req.EmergencyServices,
	}

	return s.store.UpdateIncident(ctx, id, upd)
}

func (s *IncidentService) DeleteIncident(ctx context.Context, id int64) error {
	return s.store.DeleteIncident(ctx, id)
}

// SubmitReport records a citizen report. It always enters the queue as
// pending regardless of what the caller sends.
func (s *IncidentService) SubmitReport(ctx context.Context, userID string, req *SubmitReportRequest) (*models.UserReport, error) {
	if userID == "" {
		return nil, errors.New("user ID is required")
	}

	rep := &models.UserReport{
		Type:                req.Type,
		Location:            req.Location,
		Severity:            req.Severity,
		Description:         req.Description,
		VehiclesInvolved:    req.VehiclesInvolved,
		ContactNumber:       req.ContactNumber,
		ReportedBy:          req.ReportedBy,
		EvidenceType:        req.EvidenceType,
		EvidenceDescription: req.EvidenceDescription,
		EmergencyServices:   req.EmergencyServices,
		UserID:              userID,
	}

	if _, err := s.store.AddUserReport(ctx, rep); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"reportId": rep.ReportID,
		"userId":   userID,
	}).Info("citizen report submitted")

	return rep, nil
}

func (s *IncidentService) GetReport(ctx context.Context, id int64) (*models.UserReport, error) {
	return s.store.GetUserReport(ctx, id)
}

// ListReports returns reports newest first, optionally filtered by user or
// status. The user filter wins when both are set.
func (s *IncidentService) ListReports(ctx context.Context, userID, status string) ([]*models.UserReport, error) {
	switch {
	case userID != "":
		return s.store.ListUserReportsByUser(ctx, userID)
	case status != "":
		return s.store.ListUserReportsByStatus(ctx, status)
	default:
		return s.store.ListUserReports(ctx)
	}
}

// ApproveReport promotes a pending report into a confirmed incident. The
// promotion is not atomic: on partial failure the incident may exist while
// the report stays pending, and retrying can create a duplicate incident.
func (s *IncidentService) ApproveReport(ctx context.Context, reportID int64) (*localstore.PromotionResult, error) {
	result, err := s.store.SyncReportToIncident(ctx, reportID)
	if err != nil {
		if result != nil && result.IncidentID != 0 {
			s.log.WithFields(logrus.Fields{
				"reportId":   reportID,
				"incidentId": result.IncidentID,
			}).Error("report promotion partially failed; incident created but report not approved")
		}
		return result, err
	}

	s.log.WithFields(logrus.Fields{
		"reportId":   reportID,
		"incidentId": result.IncidentID,
	}).Info("report approved and promoted to incident")

	return result, nil
}

func (s *IncidentService) RejectReport(ctx context.Context, reportID int64) (*models.UserReport, error) {
	return s.store.UpdateUserReportStatus(ctx, reportID, models.ReportStatusRejected)
}

// Feed merges confirmed incidents with still-pending citizen reports, newest
// first, so operators triage everything from one list.
func (s *IncidentService) Feed(ctx context.Context) ([]FeedEntry, error) {
	incidents, err := s.store.ListIncidents(ctx)
	if err != nil {
		return nil, err
	}

	pending, err := s.store.ListUserReportsByStatus(ctx, models.ReportStatusPending)
	if err != nil {
		return nil, err
	}

	entries := make([]FeedEntry, 0, len(incidents)+len(pending))
	for _, inc := range incidents {
		entries = append(entries, FeedEntry{
			Kind:      "incident",
			Timestamp: inc.ReportedAt,
			Incident:  inc,
		})
	}
	for _, rep := range pending {
		entries = append(entries, FeedEntry{
			Kind:      "report",
			Timestamp: rep.SubmittedAt,
			Report:    rep,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	return entries, nil
}

// ClearStore wipes both collections. Admin-only maintenance operation.
func (s *IncidentService) ClearStore(ctx context.Context) error {
	return s.store.Clear(ctx)
}
