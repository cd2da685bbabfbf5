package cache

import "time"

// CacheConfig holds TTL values and key layout for the read cache.
type CacheConfig struct {
	ZoneDataTTL  time.Duration `json:"zoneDataTTL"`  // single zone documents
	ZoneListTTL  time.Duration `json:"zoneListTTL"`  // zone list queries
	StatsDataTTL time.Duration `json:"statsDataTTL"` // dashboard aggregates
	KeyPrefix    string        `json:"keyPrefix"`
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		ZoneDataTTL:  30 * time.Second,
		ZoneListTTL:  2 * time.Minute,
		StatsDataTTL: 15 * time.Second,
		KeyPrefix:    "trafficwatch:cache:",
	}
}

// GetTTLForDataType returns the TTL to use for a given data type.
func (c CacheConfig) GetTTLForDataType(dataType string) time.Duration {
	switch dataType {
	case "zone":
		return c.ZoneDataTTL
	case "zone_list":
		return c.ZoneListTTL
	case "stats":
		return c.StatsDataTTL
	default:
		return c.ZoneDataTTL
	}
}
