package services

import (
	"context"

	"trafficwatch-backend/internal/models"
	"trafficwatch-backend/internal/repository"
	"trafficwatch-backend/pkg/localstore"
)

// StatsService assembles the dashboard counters from Mongo aggregations and
// the local incident store's index cardinalities.
type StatsService struct {
	vehicleRepo *repository.VehicleRepository
	zoneRepo    *repository.ZoneRepository
	userRepo    *repository.UserRepository
	store       *localstore.Store
}

func NewStatsService(vehicleRepo *repository.VehicleRepository, zoneRepo *repository.ZoneRepository, userRepo *repository.UserRepository, store *localstore.Store) *StatsService {
	return &StatsService{
		vehicleRepo: vehicleRepo,
		zoneRepo:    zoneRepo,
		userRepo:    userRepo,
		store:       store,
	}
}

type DashboardStats struct {
	TotalVehicles     int64            `json:"totalVehicles"`
	VehiclesByType    map[string]int64 `json:"vehiclesByType"`
	TotalZones        int64            `json:"totalZones"`
	ZonesByCongestion map[string]int64 `json:"zonesByCongestion"`
	TotalUsers        int64            `json:"totalUsers"`
	TotalIncidents    int64            `json:"totalIncidents"`
	ActiveIncidents   int64            `json:"activeIncidents"`
	ResolvedIncidents int64            `json:"resolvedIncidents"`
	HighSeverity      int64            `json:"highSeverity"`
	PendingReports    int64            `json:"pendingReports"`
	ApprovedReports   int64            `json:"approvedReports"`
	RejectedReports   int64            `json:"rejectedReports"`
}

func (s *StatsService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	var err error
	if stats.TotalVehicles, err = s.vehicleRepo.Count(); err != nil {
		return nil, err
	}
	if stats.VehiclesByType, err = s.vehicleRepo.CountByType(); err != nil {
		return nil, err
	}
	if stats.TotalZones, err = s.zoneRepo.Count(); err != nil {
		return nil, err
	}
	if stats.ZonesByCongestion, err = s.zoneRepo.CongestionBreakdown(); err != nil {
		return nil, err
	}
	if stats.TotalUsers, err = s.userRepo.Count(); err != nil {
		return nil, err
	}

	if stats.TotalIncidents, err = s.store.CountIncidents(ctx); err != nil {
		return nil, err
	}
	if stats.ActiveIncidents, err = s.store.CountIncidentsByStatus(ctx, models.IncidentStatusActive); err != nil {
		return nil, err
	}
	if stats.ResolvedIncidents, err = s.store.CountIncidentsByStatus(ctx, models.IncidentStatusResolved); err != nil {
		return nil, err
	}
	if stats.HighSeverity, err = s.store.CountIncidentsBySeverity(ctx, models.SeverityHigh); err != nil {
		return nil, err
	}
	if stats.PendingReports, err = s.store.CountUserReportsByStatus(ctx, models.ReportStatusPending); err != nil {
		return nil, err
	}
	if stats.ApprovedReports, err = s.store.CountUserReportsByStatus(ctx, models.ReportStatusApproved); err != nil {
		return nil, err
	}
	if stats.RejectedReports, err = s.store.CountUserReportsByStatus(ctx, models.ReportStatusRejected); err != nil {
		return nil, err
	}

	return stats, nil
}
