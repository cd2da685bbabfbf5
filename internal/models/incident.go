package models

import "time"

// Incident severities map to response units at creation time.
const (
	SeverityHigh   = "High"
	SeverityMedium = "Medium"
	SeverityLow    = "Low"
)

const (
	IncidentStatusActive        = "active"
	IncidentStatusResolved      = "resolved"
	IncidentStatusInvestigating = "investigating"
	IncidentStatusPending       = "pending"
)

const (
	SourceUser   = "user"
	SourceAdmin  = "admin"
	SourceSystem = "system"
)

const (
	ReportStatusPending  = "pending"
	ReportStatusApproved = "approved"
	ReportStatusRejected = "rejected"
)

// IncidentTypes is the fixed set of recognized traffic event categories.
var IncidentTypes = []string{
	"Accident",
	"Road Block",
	"Vehicle Breakdown",
	"Traffic Signal Failure",
	"Protest March",
	"Fog Accident",
	"Water Logging",
	"Other",
}

// EmergencyServices lists the units that can be attached to an incident.
var EmergencyServices = []string{"Ambulance", "Police", "Fire Brigade", "Tow Truck"}

// Incident is an operator-recognized traffic event. Identity and the
// created/updated timestamps are assigned by the local store, never by
// callers.
type Incident struct {
	ID                int64     `json:"id"`
	Type              string    `json:"type"`
	Location          string    `json:"location"`
	Severity          string    `json:"severity"`
	Description       string    `json:"description"`
	VehiclesInvolved  int       `json:"vehiclesInvolved"`
	Status            string    `json:"status"`
	ReportedAt        time.Time `json:"reportedAt"`
	ReportedBy        string    `json:"reportedBy"`
	ContactNumber     string    `json:"contactNumber,omitempty"`
	Source            string    `json:"source"`
	District          string    `json:"district"`
	State             string    `json:"state"`
	UnitsAssigned     int       `json:"unitsAssigned"`
	RespondedBy       string    `json:"respondedBy"`
	Evidence          string    `json:"evidence"`
	EmergencyServices []string  `json:"emergencyServices"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// UserReport is a citizen submission pending triage. Its identity space is
// independent from Incident identities.
type UserReport struct {
	ID                  int64     `json:"id"`
	ReportID            string    `json:"reportId"`
	Type                string    `json:"type"`
	Location            string    `json:"location"`
	Severity            string    `json:"severity"`
	Description         string    `json:"description"`
	VehiclesInvolved    int       `json:"vehiclesInvolved"`
	ContactNumber       string    `json:"contactNumber,omitempty"`
	ReportedBy          string    `json:"reportedBy"`
	EvidenceType        string    `json:"evidenceType"`
	EvidenceDescription string    `json:"evidenceDescription"`
	EmergencyServices   []string  `json:"emergencyServices"`
	UserID              string    `json:"userId"`
	Status              string    `json:"status"`
	SubmittedAt         time.Time `json:"submittedAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// UnitsForSeverity derives the number of response units dispatched for a
// freshly created incident.
func UnitsForSeverity(severity string) int {
	switch severity {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}
