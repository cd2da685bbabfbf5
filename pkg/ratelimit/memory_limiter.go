package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"
)

// tokenBucket tracks one client's budget for one category.
type tokenBucket struct {
	capacity   int
	tokens     int
	lastRefill time.Time
}

// MemoryRateLimiter is the fallback when Redis is unreachable at startup.
// Counters live in this process only, so a multi-instance deployment
// enforces looser effective limits than the Redis limiter would.
type MemoryRateLimiter struct {
	config       *Config
	stats        *RateLimiterStats
	customLimits map[string]map[string]RateLimit // clientID -> endpoint -> limit
	buckets      map[string]*tokenBucket         // clientID:category -> bucket
	mu           sync.Mutex
}

func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	if config == nil {
		config = DefaultConfig()
	}

	limiter := &MemoryRateLimiter{
		config:       config,
		stats:        &RateLimiterStats{},
		customLimits: make(map[string]map[string]RateLimit),
		buckets:      make(map[string]*tokenBucket),
	}

	go limiter.pruneIdleBuckets()

	return limiter
}

// Allow reports whether the client may hit the endpoint now. The second
// return value is how long to wait when the answer is no.
func (m *MemoryRateLimiter) Allow(clientID string, endpoint string) (bool, time.Duration, error) {
	if !m.config.Enabled {
		return true, 0, nil
	}

	atomic.AddInt64(&m.stats.TotalRequests, 1)

	m.mu.Lock()
	defer m.mu.Unlock()

	category, limit := m.resolve(clientID, endpoint)

	key := clientID + ":" + category
	bucket, ok := m.buckets[key]
	if !ok {
		bucket = &tokenBucket{
			capacity:   limit.BurstSize,
			tokens:     limit.BurstSize,
			lastRefill: time.Now(),
		}
		m.buckets[key] = bucket
	}

	now := time.Now()
	elapsed := now.Sub(bucket.lastRefill)
	refill := int(elapsed.Minutes() * float64(limit.RequestsPerMinute))
	if refill > 0 {
		bucket.tokens = min(bucket.capacity, bucket.tokens+refill)
		bucket.lastRefill = now
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true, 0, nil
	}

	atomic.AddInt64(&m.stats.BlockedRequests, 1)
	retryAfter := time.Minute / time.Duration(max(1, limit.RequestsPerMinute))
	return false, retryAfter, nil
}

// resolve mirrors the Redis limiter: custom per-client override first, then
// the endpoint's category budget. Callers must hold the mutex.
func (m *MemoryRateLimiter) resolve(clientID, endpoint string) (string, RateLimit) {
	if clientLimits, ok := m.customLimits[clientID]; ok {
		if limit, ok := clientLimits[endpoint]; ok {
			return endpoint, limit
		}
	}

	category := m.config.GetEndpointKey(endpoint, "")
	if limit, ok := m.config.DefaultLimits[category]; ok {
		return category, limit
	}
	if limit, ok := m.config.DefaultLimits["default"]; ok {
		return "default", limit
	}

	return "default", RateLimit{RequestsPerMinute: 60, BurstSize: 15, WindowSize: time.Minute}
}

func (m *MemoryRateLimiter) GetLimits(clientID string) map[string]RateLimit {
	m.mu.Lock()
	defer m.mu.Unlock()

	limits := make(map[string]RateLimit, len(m.config.DefaultLimits))
	for category, limit := range m.config.DefaultLimits {
		limits[category] = limit
	}

	if clientLimits, ok := m.customLimits[clientID]; ok {
		for endpoint, limit := range clientLimits {
			limits[endpoint] = limit
		}
	}

	return limits
}

// SetCustomLimit overrides the budget for one client and endpoint. The
// override lives only in this process.
func (m *MemoryRateLimiter) SetCustomLimit(clientID string, endpoint string, limit RateLimit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.customLimits[clientID] == nil {
		m.customLimits[clientID] = make(map[string]RateLimit)
	}
	m.customLimits[clientID][endpoint] = limit

	return nil
}

func (m *MemoryRateLimiter) GetStats() RateLimiterStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := *m.stats
	stats.CustomClients = len(m.customLimits)
	if stats.TotalRequests > 0 {
		stats.BlockedPercent = float64(stats.BlockedRequests) / float64(stats.TotalRequests) * 100
	}

	return stats
}

// pruneIdleBuckets drops buckets nothing has touched for an hour.
func (m *MemoryRateLimiter) pruneIdleBuckets() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		cutoff := time.Now().Add(-time.Hour)
		for key, bucket := range m.buckets {
			if bucket.lastRefill.Before(cutoff) {
				delete(m.buckets, key)
			}
		}
		m.mu.Unlock()
	}
}
