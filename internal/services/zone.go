package services

import (
	"errors"
	"fmt"
	"time"

	"trafficwatch-backend/internal/models"
	"trafficwatch-backend/internal/repository"
	"trafficwatch-backend/pkg/cache"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ZoneService struct {
	zoneRepo     *repository.ZoneRepository
	cacheManager cache.CacheManager
	cacheConfig  cache.CacheConfig
	log          *logrus.Logger
}

func NewZoneService(zoneRepo *repository.ZoneRepository, log *logrus.Logger) *ZoneService {
	return &ZoneService{
		zoneRepo:    zoneRepo,
		cacheConfig: cache.DefaultCacheConfig(),
		log:         log,
	}
}

// SetCacheManager enables read caching for zone queries.
func (s *ZoneService) SetCacheManager(cacheManager cache.CacheManager) {
	s.cacheManager = cacheManager
}

type CreateZoneRequest struct {
	Name            string  `json:"name" validate:"required,min=1,max=100"`
	District        string  `json:"district" validate:"required"`
	State           string  `json:"state" validate:"required"`
	Lat             float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lng             float64 `json:"lng" validate:"required,min=-180,max=180"`
	Address         string  `json:"address,omitempty"`
	RadiusKM        float64 `json:"radiusKm" validate:"required,min=0.1,max=50"`
	CongestionLevel string  `json:"congestionLevel,omitempty" validate:"omitempty,oneof=low moderate high severe"`
	SignalCount     int     `json:"signalCount,omitempty" validate:"omitempty,min=0"`
	Monitored       *bool   `json:"monitored,omitempty"`
}

type UpdateZoneRequest struct {
	Name            string   `json:"name,omitempty"`
	CongestionLevel string   `json:"congestionLevel,omitempty" validate:"omitempty,oneof=low moderate high severe"`
	AvgSpeed        *float64 `json:"avgSpeed,omitempty" validate:"omitempty,min=0"`
	VehicleCount    *int     `json:"vehicleCount,omitempty" validate:"omitempty,min=0"`
	SignalCount     *int     `json:"signalCount,omitempty" validate:"omitempty,min=0"`
	Monitored       *bool    `json:"monitored,omitempty"`
}

func (s *ZoneService) GetAllZones() ([]*models.TrafficZone, error) {
	if s.cacheManager != nil {
		cached, err := s.cacheManager.GetZoneList("all_zones")
		if err != nil {
			s.log.WithError(err).Warn("zone list cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	zones, err := s.zoneRepo.FindAll()
	if err != nil {
		return nil, err
	}

	if s.cacheManager != nil {
		ttl := s.cacheConfig.GetTTLForDataType("zone_list")
		if err := s.cacheManager.SetZoneList("all_zones", zones, ttl); err != nil {
			s.log.WithError(err).Warn("zone list cache write failed")
		}
	}

	return zones, nil
}

func (s *ZoneService) GetZoneByID(id string) (*models.TrafficZone, error) {
	if s.cacheManager != nil {
		cached, err := s.cacheManager.GetZone(id)
		if err != nil {
			s.log.WithError(err).Warn("zone cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	zone, err := s.zoneRepo.FindByID(id)
	if err != nil {
		return nil, err
	}

	if s.cacheManager != nil {
		ttl := s.cacheConfig.GetTTLForDataType("zone")
		if err := s.cacheManager.SetZone(id, zone, ttl); err != nil {
			s.log.WithError(err).Warn("zone cache write failed")
		}
	}

	return zone, nil
}

func (s *ZoneService) GetZonesByDistrict(district string) ([]*models.TrafficZone, error) {
	if s.cacheManager != nil {
		cacheKey := fmt.Sprintf("district_%s", district)
		cached, err := s.cacheManager.GetZoneList(cacheKey)
		if err != nil {
			s.log.WithError(err).Warn("zone list cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	zones, err := s.zoneRepo.FindByDistrict(district)
	if err != nil {
		return nil, err
	}

	if s.cacheManager != nil {
		cacheKey := fmt.Sprintf("district_%s", district)
		ttl := s.cacheConfig.GetTTLForDataType("zone_list")
		if err := s.cacheManager.SetZoneList(cacheKey, zones, ttl); err != nil {
			s.log.WithError(err).Warn("zone list cache write failed")
		}
	}

	return zones, nil
}

func (s *ZoneService) GetZonesByCongestion(level string) ([]*models.TrafficZone, error) {
	return s.zoneRepo.FindByCongestionLevel(level)
}

// GetNearbyZones returns monitored zones within radiusKm of the given point.
func (s *ZoneService) GetNearbyZones(lat, lng, radiusKm float64) ([]*models.TrafficZone, error) {
	if radiusKm <= 0 {
		radiusKm = 5.0
	}
	return s.zoneRepo.FindInRadius(lat, lng, radiusKm)
}

func (s *ZoneService) CreateZone(req *CreateZoneRequest) (*models.TrafficZone, error) {
	existingZone, _ := s.zoneRepo.FindByName(req.Name)
	if existingZone != nil {
		return nil, errors.New("zone name already exists")
	}

	congestion := req.CongestionLevel
	if congestion == "" {
		congestion = "low"
	}

	monitored := true
	if req.Monitored != nil {
		monitored = *req.Monitored
	}

	zone := &models.TrafficZone{
		ID:       primitive.NewObjectID(),
		Name:     req.Name,
		District: req.District,
		State:    req.State,
		Location: models.Location{
			Lat:     req.Lat,
			Lng:     req.Lng,
			Address: req.Address,
		},
		RadiusKM:        req.RadiusKM,
		CongestionLevel: congestion,
		SignalCount:     req.SignalCount,
		Monitored:       monitored,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	created, err := s.zoneRepo.Create(zone)
	if err != nil {
		return nil, err
	}

	s.invalidateListCaches()
	return created, nil
}

func (s *ZoneService) UpdateZone(id string, req *UpdateZoneRequest) (*models.TrafficZone, error) {
	zone, err := s.zoneRepo.FindByID(id)
	if err != nil {
		return nil, errors.New("zone not found")
	}

	if req.Name != "" {
		existingZone, _ := s.zoneRepo.FindByName(req.Name)
		if existingZone != nil && existingZone.ID.Hex() != id {
			return nil, errors.New("zone name already exists")
		}
		zone.Name = req.Name
	}
	if req.CongestionLevel != "" {
		zone.CongestionLevel = req.CongestionLevel
	}
	if req.AvgSpeed != nil {
		zone.AvgSpeed = *req.AvgSpeed
	}
	if req.VehicleCount != nil {
		zone.VehicleCount = *req.VehicleCount
	}
	if req.SignalCount != nil {
		zone.SignalCount = *req.SignalCount
	}
	if req.Monitored != nil {
		zone.Monitored = *req.Monitored
	}

	zone.UpdatedAt = time.Now()

	updated, err := s.zoneRepo.Update(id, zone)
	if err != nil {
		return nil, err
	}

	s.invalidateZoneCaches(id)
	return updated, nil
}

// ReportCongestion updates a zone's live congestion reading.
func (s *ZoneService) ReportCongestion(id, level string, avgSpeed float64, vehicleCount int) error {
	if err := s.zoneRepo.UpdateCongestion(id, level, avgSpeed, vehicleCount); err != nil {
		return err
	}

	s.invalidateZoneCaches(id)
	return nil
}

func (s *ZoneService) DeleteZone(id string) error {
	if _, err := s.zoneRepo.FindByID(id); err != nil {
		return errors.New("zone not found")
	}

	if err := s.zoneRepo.Delete(id); err != nil {
		return err
	}

	s.invalidateZoneCaches(id)
	return nil
}

func (s *ZoneService) CountZones() (int64, error) {
	return s.zoneRepo.Count()
}

func (s *ZoneService) CongestionBreakdown() (map[string]int64, error) {
	return s.zoneRepo.CongestionBreakdown()
}

func (s *ZoneService) invalidateZoneCaches(id string) {
	if s.cacheManager == nil {
		return
	}
	if err := s.cacheManager.InvalidateZone(id); err != nil {
		s.log.WithError(err).Warn("zone cache invalidation failed")
	}
	s.invalidateListCaches()
}

func (s *ZoneService) invalidateListCaches() {
	if s.cacheManager == nil {
		return
	}
	if err := s.cacheManager.InvalidateZoneLists(); err != nil {
		s.log.WithError(err).Warn("zone list cache invalidation failed")
	}
}
