package localstore

import (
	"context"
	"regexp"
	"testing"

	"trafficwatch-backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := New(client, Options{
		KeyPrefix: "test:",
		District:  "Ludhiana",
		State:     "Punjab",
	})
	require.NoError(t, store.Open(context.Background()))
	return store, mr
}

func TestOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	t.Run("idempotent", func(t *testing.T) {
		store := New(client, Options{KeyPrefix: "open:"})
		require.NoError(t, store.Open(context.Background()))
		require.NoError(t, store.Open(context.Background()))
	})

	t.Run("future schema version rejected", func(t *testing.T) {
		require.NoError(t, client.Set(context.Background(), "future:schema", "99", 0).Err())
		store := New(client, Options{KeyPrefix: "future:"})
		err := store.Open(context.Background())
		assert.ErrorIs(t, err, ErrInitialization)
	})

	t.Run("unreachable engine fails", func(t *testing.T) {
		dead := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
		defer dead.Close()
		store := New(dead, Options{})
		err := store.Open(context.Background())
		assert.ErrorIs(t, err, ErrInitialization)
	})

	t.Run("operations before open are rejected", func(t *testing.T) {
		store := New(client, Options{KeyPrefix: "unopened:"})
		_, err := store.AddIncident(context.Background(), &models.Incident{Severity: models.SeverityLow})
		assert.ErrorIs(t, err, ErrNotInitialized)
	})
}

func TestAddIncident(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("identities are pairwise distinct", func(t *testing.T) {
		seen := make(map[int64]bool)
		for i := 0; i < 25; i++ {
			id, err := store.AddIncident(ctx, &models.Incident{
				Type:     "Accident",
				Severity: models.SeverityLow,
			})
			require.NoError(t, err)
			assert.False(t, seen[id], "identity %d assigned twice", id)
			seen[id] = true
		}
	})

	t.Run("creation defaults", func(t *testing.T) {
		inc := &models.Incident{
			Type:     "Water Logging",
			Location: "Ferozepur Road",
			Severity: models.SeverityHigh,
		}
		id, err := store.AddIncident(ctx, inc)
		require.NoError(t, err)

		got, err := store.GetIncident(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.IncidentStatusActive, got.Status)
		assert.Equal(t, 3, got.UnitsAssigned)
		assert.Equal(t, "Pending", got.RespondedBy)
		assert.Equal(t, "None", got.Evidence)
		assert.Equal(t, "Ludhiana", got.District)
		assert.Equal(t, "Punjab", got.State)
		assert.False(t, got.CreatedAt.IsZero())
		assert.Equal(t, got.CreatedAt, got.UpdatedAt)
	})

	t.Run("units derived from severity", func(t *testing.T) {
		cases := map[string]int{
			models.SeverityHigh:   3,
			models.SeverityMedium: 2,
			models.SeverityLow:    1,
		}
		for severity, units := range cases {
			inc := &models.Incident{Type: "Other", Severity: severity}
			_, err := store.AddIncident(ctx, inc)
			require.NoError(t, err)
			assert.Equal(t, units, inc.UnitsAssigned, "severity %s", severity)
		}
	})
}

func TestListIncidents(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("empty collection returns empty slice", func(t *testing.T) {
		incidents, err := store.ListIncidents(ctx)
		require.NoError(t, err)
		assert.Empty(t, incidents)
	})

	t.Run("secondary index queries", func(t *testing.T) {
		for _, severity := range []string{models.SeverityHigh, models.SeverityHigh, models.SeverityLow} {
			_, err := store.AddIncident(ctx, &models.Incident{Type: "Accident", Severity: severity})
			require.NoError(t, err)
		}

		high, err := store.ListIncidentsBySeverity(ctx, models.SeverityHigh)
		require.NoError(t, err)
		assert.Len(t, high, 2)

		active, err := store.ListIncidentsByStatus(ctx, models.IncidentStatusActive)
		require.NoError(t, err)
		assert.Len(t, active, 3)
	})
}

func TestUpdateIncident(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("merge keeps omitted fields", func(t *testing.T) {
		id, err := store.AddIncident(ctx, &models.Incident{
			Type:             "Accident",
			Severity:         models.SeverityLow,
			VehiclesInvolved: 1,
		})
		require.NoError(t, err)

		high := models.SeverityHigh
		updated, err := store.UpdateIncident(ctx, id, IncidentUpdate{Severity: &high})
		require.NoError(t, err)
		assert.Equal(t, models.SeverityHigh, updated.Severity)
		assert.Equal(t, 1, updated.VehiclesInvolved)
		assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))

		// index moved with the severity change
		high2, err := store.ListIncidentsBySeverity(ctx, models.SeverityHigh)
		require.NoError(t, err)
		require.Len(t, high2, 1)
		assert.Equal(t, id, high2[0].ID)

		low, err := store.ListIncidentsBySeverity(ctx, models.SeverityLow)
		require.NoError(t, err)
		assert.Empty(t, low)
	})

	t.Run("unknown identity fails with not found and creates nothing", func(t *testing.T) {
		resolved := models.IncidentStatusResolved
		_, err := store.UpdateIncident(ctx, 9999999, IncidentUpdate{Status: &resolved})
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = store.GetIncident(ctx, 9999999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDeleteIncident(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	id, err := store.AddIncident(ctx, &models.Incident{Type: "Road Block", Severity: models.SeverityMedium})
	require.NoError(t, err)

	require.NoError(t, store.DeleteIncident(ctx, id))
	_, err = store.GetIncident(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	// deletion is idempotent
	assert.NoError(t, store.DeleteIncident(ctx, id))
	assert.NoError(t, store.DeleteIncident(ctx, 424242))
}

func TestAddUserReport(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	rep := &models.UserReport{
		Type:             "Road Block",
		Location:         "GT Road",
		Severity:         models.SeverityMedium,
		Description:      "lane closed",
		VehiclesInvolved: 0,
		ReportedBy:       "J. Singh",
		ContactNumber:    "9876543210",
		UserID:           "session-17",
	}

	id, err := store.AddUserReport(ctx, rep)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))
	assert.Equal(t, models.ReportStatusPending, rep.Status)
	assert.Regexp(t, regexp.MustCompile(`^USR-\d{6}$`), rep.ReportID)
	assert.False(t, rep.SubmittedAt.IsZero())

	t.Run("status forced to pending", func(t *testing.T) {
		r := &models.UserReport{Type: "Other", Severity: models.SeverityLow, Status: "approved"}
		rid, err := store.AddUserReport(ctx, r)
		require.NoError(t, err)

		got, err := store.GetUserReport(ctx, rid)
		require.NoError(t, err)
		assert.Equal(t, models.ReportStatusPending, got.Status)
	})

	t.Run("independent numbering from incidents", func(t *testing.T) {
		incID, err := store.AddIncident(ctx, &models.Incident{Type: "Other", Severity: models.SeverityLow})
		require.NoError(t, err)
		repID, err := store.AddUserReport(ctx, &models.UserReport{Type: "Other", Severity: models.SeverityLow})
		require.NoError(t, err)
		assert.Equal(t, int64(1), incID)
		assert.Equal(t, int64(3), repID)
	})
}

func TestListUserReports(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i, userID := range []string{"u1", "u2", "u1"} {
		_, err := store.AddUserReport(ctx, &models.UserReport{
			Type:     "Fog Accident",
			Severity: models.SeverityLow,
			UserID:   userID,
		})
		require.NoError(t, err, "report %d", i)
	}

	all, err := store.ListUserReports(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := store.ListUserReportsByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, rep := range mine {
		assert.Equal(t, "u1", rep.UserID)
	}

	none, err := store.ListUserReportsByUser(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateUserReportStatus(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	id, err := store.AddUserReport(ctx, &models.UserReport{Type: "Other", Severity: models.SeverityLow})
	require.NoError(t, err)

	rep, err := store.UpdateUserReportStatus(ctx, id, models.ReportStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusRejected, rep.Status)

	pending, err := store.ListUserReportsByStatus(ctx, models.ReportStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = store.UpdateUserReportStatus(ctx, 555555, models.ReportStatusApproved)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSyncReportToIncident(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("promotion mapping", func(t *testing.T) {
		repID, err := store.AddUserReport(ctx, &models.UserReport{
			Type:             "Accident",
			Location:         "X",
			Severity:         models.SeverityHigh,
			ReportedBy:       "A",
			VehiclesInvolved: 2,
		})
		require.NoError(t, err)

		result, err := store.SyncReportToIncident(ctx, repID)
		require.NoError(t, err)
		assert.Equal(t, repID, result.ReportID)

		inc, err := store.GetIncident(ctx, result.IncidentID)
		require.NoError(t, err)
		assert.Equal(t, models.SourceUser, inc.Source)
		assert.Equal(t, 1, inc.UnitsAssigned)
		assert.Equal(t, "Accident", inc.Type)
		assert.Equal(t, "X", inc.Location)
		assert.Equal(t, 2, inc.VehiclesInvolved)
		assert.Equal(t, "Ludhiana", inc.District)
		assert.Equal(t, "Punjab", inc.State)

		rep, err := store.GetUserReport(ctx, repID)
		require.NoError(t, err)
		assert.Equal(t, models.ReportStatusApproved, rep.Status)
	})

	t.Run("unknown report", func(t *testing.T) {
		_, err := store.SyncReportToIncident(ctx, 987654)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("interrupted promotion duplicates on retry", func(t *testing.T) {
		repID, err := store.AddUserReport(ctx, &models.UserReport{
			Type:     "Accident",
			Location: "NH44",
			Severity: models.SeverityHigh,
		})
		require.NoError(t, err)

		before, err := store.CountIncidents(ctx)
		require.NoError(t, err)

		first, err := store.SyncReportToIncident(ctx, repID)
		require.NoError(t, err)

		// Promotion is two writes with no transaction around them. Losing
		// the status flip after the incident insert leaves the incident in
		// place with the report still pending.
		_, err = store.UpdateUserReportStatus(ctx, repID, models.ReportStatusPending)
		require.NoError(t, err)

		orphan, err := store.GetIncident(ctx, first.IncidentID)
		require.NoError(t, err)
		assert.Equal(t, models.SourceUser, orphan.Source)

		rep, err := store.GetUserReport(ctx, repID)
		require.NoError(t, err)
		assert.Equal(t, models.ReportStatusPending, rep.Status)

		// Retrying promotes again and creates a second incident for the
		// same report; reconciliation is left to the operator.
		second, err := store.SyncReportToIncident(ctx, repID)
		require.NoError(t, err)
		assert.NotEqual(t, first.IncidentID, second.IncidentID)

		after, err := store.CountIncidents(ctx)
		require.NoError(t, err)
		assert.Equal(t, before+2, after)

		pending, err := store.CountUserReportsByStatus(ctx, models.ReportStatusPending)
		require.NoError(t, err)
		assert.Zero(t, pending)
	})
}

func TestSubmissionScenario(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	rep := &models.UserReport{
		Type:             "Road Block",
		Location:         "GT Road",
		Severity:         models.SeverityMedium,
		Description:      "lane closed",
		VehiclesInvolved: 0,
		ReportedBy:       "J. Singh",
		ContactNumber:    "9876543210",
	}

	id, err := store.AddUserReport(ctx, rep)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, rep.Status)
	assert.Regexp(t, regexp.MustCompile(`^USR-\d{6}$`), rep.ReportID)

	result, err := store.SyncReportToIncident(ctx, id)
	require.NoError(t, err)

	inc, err := store.GetIncident(ctx, result.IncidentID)
	require.NoError(t, err)
	assert.Equal(t, "Road Block", inc.Type)
	assert.Equal(t, "GT Road", inc.Location)
	// promotion pins unitsAssigned to 1 regardless of severity
	assert.Equal(t, 1, inc.UnitsAssigned)

	promoted, err := store.GetUserReport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusApproved, promoted.Status)
}

func TestClear(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddIncident(ctx, &models.Incident{Type: "Other", Severity: models.SeverityLow})
	require.NoError(t, err)
	_, err = store.AddUserReport(ctx, &models.UserReport{Type: "Other", Severity: models.SeverityLow})
	require.NoError(t, err)

	// Neighbours under the same prefix, like the zone read-cache, must not
	// be swept along with the store's own records.
	require.NoError(t, mr.Set("test:cache:zone:1", "cached"))

	require.NoError(t, store.Clear(ctx))

	assert.True(t, mr.Exists("test:cache:zone:1"))
	assert.True(t, mr.Exists("test:schema"))

	incidents, err := store.ListIncidents(ctx)
	require.NoError(t, err)
	assert.Empty(t, incidents)

	reports, err := store.ListUserReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports)

	// clearing twice is harmless
	assert.NoError(t, store.Clear(ctx))
}
