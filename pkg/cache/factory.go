package cache

import (
	"trafficwatch-backend/pkg/redis"
)

// NewCacheManager creates a cache manager with the given Redis client and configuration.
func NewCacheManager(redisClient *redis.Client, config CacheConfig) CacheManager {
	return NewRedisCacheManager(redisClient, config)
}

// NewDefaultCacheManager creates a cache manager with default configuration.
func NewDefaultCacheManager(redisClient *redis.Client) CacheManager {
	return NewRedisCacheManager(redisClient, DefaultCacheConfig())
}
