package services

import (
	"context"
	"testing"

	"trafficwatch-backend/internal/models"
	"trafficwatch-backend/pkg/localstore"
	"trafficwatch-backend/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIncidentService(t *testing.T) *IncidentService {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := localstore.New(client, localstore.Options{
		KeyPrefix: "svc:",
		District:  "Ludhiana",
		State:     "Punjab",
	})
	require.NoError(t, store.Open(context.Background()))

	return NewIncidentService(store, logger.New("error"))
}

func TestCreateIncidentDefaultsSource(t *testing.T) {
	svc := newIncidentService(t)
	ctx := context.Background()

	inc, err := svc.CreateIncident(ctx, &CreateIncidentRequest{
		Type:     "Accident",
		Location: "Ferozepur Road",
		Severity: models.SeverityHigh,
	})
	require.NoError(t, err)

	assert.Equal(t, models.SourceAdmin, inc.Source)
	assert.Equal(t, models.IncidentStatusActive, inc.Status)
	assert.Equal(t, 3, inc.UnitsAssigned)
	assert.Equal(t, "Ludhiana", inc.District)
}

func TestListIncidentsFilters(t *testing.T) {
	svc := newIncidentService(t)
	ctx := context.Background()

	_, err := svc.CreateIncident(ctx, &CreateIncidentRequest{
		Type: "Accident", Location: "A", Severity: models.SeverityHigh,
	})
	require.NoError(t, err)
	_, err = svc.CreateIncident(ctx, &CreateIncidentRequest{
		Type: "Water Logging", Location: "B", Severity: models.SeverityLow,
		Status: models.IncidentStatusResolved,
	})
	require.NoError(t, err)

	all, err := svc.ListIncidents(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.ListIncidents(ctx, models.IncidentStatusActive, "")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "A", active[0].Location)

	low, err := svc.ListIncidents(ctx, "", models.SeverityLow)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "B", low[0].Location)
}

func TestSubmitReportRequiresUser(t *testing.T) {
	svc := newIncidentService(t)

	_, err := svc.SubmitReport(context.Background(), "", &SubmitReportRequest{
		Type: "Accident", Location: "X", Severity: models.SeverityLow,
	})
	assert.Error(t, err)
}

func TestReportTriageFlow(t *testing.T) {
	svc := newIncidentService(t)
	ctx := context.Background()

	rep, err := svc.SubmitReport(ctx, "citizen-1", &SubmitReportRequest{
		Type:                "Road Block",
		Location:            "GT Road",
		Severity:            models.SeverityMedium,
		EvidenceType:        "Photo",
		EvidenceDescription: "Photo of fallen tree",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, rep.Status)

	result, err := svc.ApproveReport(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.ID, result.ReportID)

	inc, err := svc.GetIncident(ctx, result.IncidentID)
	require.NoError(t, err)
	assert.Equal(t, models.SourceUser, inc.Source)
	assert.Equal(t, "GT Road", inc.Location)
	assert.Equal(t, 1, inc.UnitsAssigned)

	approved, err := svc.ListReports(ctx, "", models.ReportStatusApproved)
	require.NoError(t, err)
	assert.Len(t, approved, 1)
}

func TestRejectReport(t *testing.T) {
	svc := newIncidentService(t)
	ctx := context.Background()

	rep, err := svc.SubmitReport(ctx, "citizen-2", &SubmitReportRequest{
		Type: "Other", Location: "Model Town", Severity: models.SeverityLow,
	})
	require.NoError(t, err)

	rejected, err := svc.RejectReport(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusRejected, rejected.Status)

	// rejected reports never surface in the feed
	feed, err := svc.Feed(ctx)
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestFeedMergesNewestFirst(t *testing.T) {
	svc := newIncidentService(t)
	ctx := context.Background()

	_, err := svc.CreateIncident(ctx, &CreateIncidentRequest{
		Type: "Accident", Location: "Old", Severity: models.SeverityLow,
	})
	require.NoError(t, err)

	rep, err := svc.SubmitReport(ctx, "citizen-3", &SubmitReportRequest{
		Type: "Fog Accident", Location: "New", Severity: models.SeverityHigh,
	})
	require.NoError(t, err)

	feed, err := svc.Feed(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 2)

	kinds := []string{feed[0].Kind, feed[1].Kind}
	assert.Contains(t, kinds, "incident")
	assert.Contains(t, kinds, "report")

	for _, entry := range feed {
		if entry.Kind == "report" {
			assert.Equal(t, rep.ReportID, entry.Report.ReportID)
		}
	}

	assert.False(t, feed[0].Timestamp.Before(feed[1].Timestamp))
}

func TestClearStore(t *testing.T) {
	svc := newIncidentService(t)
	ctx := context.Background()

	_, err := svc.CreateIncident(ctx, &CreateIncidentRequest{
		Type: "Accident", Location: "X", Severity: models.SeverityLow,
	})
	require.NoError(t, err)

	require.NoError(t, svc.ClearStore(ctx))

	all, err := svc.ListIncidents(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, all)
}
