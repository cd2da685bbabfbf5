package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"trafficwatch-backend/internal/models"
	"trafficwatch-backend/pkg/redis"

	redisClient "github.com/redis/go-redis/v9"
)

// RedisCacheManager implements CacheManager using Redis.
type RedisCacheManager struct {
	client *redis.Client
	config CacheConfig
	stats  *cacheStats
	ctx    context.Context
}

type cacheStats struct {
	mu          sync.RWMutex
	totalHits   int64
	totalMisses int64
}

// NewRedisCacheManager creates a new Redis-backed cache manager.
func NewRedisCacheManager(redisClient *redis.Client, config CacheConfig) *RedisCacheManager {
	return &RedisCacheManager{
		client: redisClient,
		config: config,
		stats:  &cacheStats{},
		ctx:    context.Background(),
	}
}

// GetZone retrieves a zone from cache. A miss returns (nil, nil).
func (r *RedisCacheManager) GetZone(zoneID string) (*models.TrafficZone, error) {
	key := r.buildKey("zone", zoneID)

	data, err := r.client.GetClient().Get(r.ctx, key).Result()
	if err != nil {
		if err == redisClient.Nil {
			r.recordMiss()
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get zone from cache: %w", err)
	}

	var zone models.TrafficZone
	if err := json.Unmarshal([]byte(data), &zone); err != nil {
		return nil, fmt.Errorf("failed to unmarshal zone data: %w", err)
	}

	r.recordHit()
	return &zone, nil
}

// SetZone stores a zone in cache with TTL.
func (r *RedisCacheManager) SetZone(zoneID string, zone *models.TrafficZone, ttl time.Duration) error {
	key := r.buildKey("zone", zoneID)

	data, err := json.Marshal(zone)
	if err != nil {
		return fmt.Errorf("failed to marshal zone data: %w", err)
	}

	if err := r.client.GetClient().Set(r.ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set zone in cache: %w", err)
	}

	return nil
}

// InvalidateZone removes a specific zone from cache.
func (r *RedisCacheManager) InvalidateZone(zoneID string) error {
	return r.client.GetClient().Del(r.ctx, r.buildKey("zone", zoneID)).Err()
}

// GetZoneList retrieves a list of zones from cache. A miss returns (nil, nil).
func (r *RedisCacheManager) GetZoneList(key string) ([]*models.TrafficZone, error) {
	cacheKey := r.buildKey("zone_list", key)

	data, err := r.client.GetClient().Get(r.ctx, cacheKey).Result()
	if err != nil {
		if err == redisClient.Nil {
			r.recordMiss()
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get zone list from cache: %w", err)
	}

	var zones []*models.TrafficZone
	if err := json.Unmarshal([]byte(data), &zones); err != nil {
		return nil, fmt.Errorf("failed to unmarshal zone list data: %w", err)
	}

	r.recordHit()
	return zones, nil
}

// SetZoneList stores a list of zones in cache.
func (r *RedisCacheManager) SetZoneList(key string, zones []*models.TrafficZone, ttl time.Duration) error {
	cacheKey := r.buildKey("zone_list", key)

	data, err := json.Marshal(zones)
	if err != nil {
		return fmt.Errorf("failed to marshal zone list data: %w", err)
	}

	if err := r.client.GetClient().Set(r.ctx, cacheKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set zone list in cache: %w", err)
	}

	return nil
}

// InvalidateZoneLists drops every cached zone list. Called after any zone write
// since list membership may have changed.
func (r *RedisCacheManager) InvalidateZoneLists() error {
	pattern := r.buildKey("zone_list", "*")
	keys, err := r.client.GetClient().Keys(r.ctx, pattern).Result()
	if err != nil {
		return fmt.Errorf("failed to scan zone list keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.GetClient().Del(r.ctx, keys...).Err()
}

// Get retrieves a generic value from cache.
func (r *RedisCacheManager) Get(key string, dest interface{}) error {
	cacheKey := r.buildKey("generic", key)

	data, err := r.client.GetClient().Get(r.ctx, cacheKey).Result()
	if err != nil {
		if err == redisClient.Nil {
			r.recordMiss()
			return nil
		}
		return fmt.Errorf("failed to get from cache: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	r.recordHit()
	return nil
}

// Set stores a generic value in cache.
func (r *RedisCacheManager) Set(key string, value interface{}, ttl time.Duration) error {
	cacheKey := r.buildKey("generic", key)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	return r.client.GetClient().Set(r.ctx, cacheKey, data, ttl).Err()
}

// Delete removes a key from cache.
func (r *RedisCacheManager) Delete(key string) error {
	return r.client.GetClient().Del(r.ctx, key).Err()
}

// GetCacheStats returns cache performance statistics.
func (r *RedisCacheManager) GetCacheStats() CacheStats {
	r.stats.mu.RLock()
	totalHits := r.stats.totalHits
	totalMisses := r.stats.totalMisses
	r.stats.mu.RUnlock()

	total := totalHits + totalMisses
	var hitRate, missRate float64
	if total > 0 {
		hitRate = float64(totalHits) / float64(total)
		missRate = float64(totalMisses) / float64(total)
	}

	info, err := r.client.GetClient().Info(r.ctx, "memory").Result()
	var memoryUsage int64
	if err == nil {
		for _, line := range strings.Split(info, "\n") {
			if strings.HasPrefix(line, "used_memory:") {
				if val, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "used_memory:")), 10, 64); err == nil {
					memoryUsage = val
				}
			}
		}
	}

	keyCount := 0
	if keys, err := r.client.GetClient().Keys(r.ctx, r.config.KeyPrefix+"*").Result(); err == nil {
		keyCount = len(keys)
	}

	return CacheStats{
		HitRate:     hitRate,
		MissRate:    missRate,
		MemoryUsage: memoryUsage,
		KeyCount:    keyCount,
		TotalHits:   totalHits,
		TotalMisses: totalMisses,
	}
}

// HealthCheck verifies cache connectivity.
func (r *RedisCacheManager) HealthCheck() error {
	return r.client.GetClient().Ping(r.ctx).Err()
}

// Close closes the cache manager.
func (r *RedisCacheManager) Close() error {
	return r.client.Close()
}

func (r *RedisCacheManager) buildKey(keyType, identifier string) string {
	return fmt.Sprintf("%s%s:%s", r.config.KeyPrefix, keyType, identifier)
}

func (r *RedisCacheManager) recordHit() {
	r.stats.mu.Lock()
	r.stats.totalHits++
	r.stats.mu.Unlock()
}

func (r *RedisCacheManager) recordMiss() {
	r.stats.mu.Lock()
	r.stats.totalMisses++
	r.stats.mu.Unlock()
}
