package cache

import (
	"time"

	"trafficwatch-backend/internal/models"
)

// CacheManager defines the interface for read-cache operations.
type CacheManager interface {
	// Zone operations
	GetZone(zoneID string) (*models.TrafficZone, error)
	SetZone(zoneID string, zone *models.TrafficZone, ttl time.Duration) error
	InvalidateZone(zoneID string) error

	// Zone list operations
	GetZoneList(key string) ([]*models.TrafficZone, error)
	SetZoneList(key string, zones []*models.TrafficZone, ttl time.Duration) error
	InvalidateZoneLists() error

	// Generic operations
	Get(key string, dest interface{}) error
	Set(key string, value interface{}, ttl time.Duration) error
	Delete(key string) error

	// Statistics and health
	GetCacheStats() CacheStats
	HealthCheck() error
	Close() error
}

// CacheStats provides cache performance metrics.
type CacheStats struct {
	HitRate     float64 `json:"hitRate"`
	MissRate    float64 `json:"missRate"`
	MemoryUsage int64   `json:"memoryUsage"`
	KeyCount    int     `json:"keyCount"`
	TotalHits   int64   `json:"totalHits"`
	TotalMisses int64   `json:"totalMisses"`
}
