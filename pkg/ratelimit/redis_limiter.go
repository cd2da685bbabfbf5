package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript counts requests per window atomically. State is one
// small hash per client and category; the window resets wholesale once it
// has elapsed, which is coarse but cheap and good enough for abuse control
// on citizen report submission.
var slidingWindowScript = redis.NewScript(`
local burst = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])

local count = tonumber(redis.call('HGET', KEYS[1], 'count')) or 0
local start = tonumber(redis.call('HGET', KEYS[1], 'start')) or now_ms

if now_ms - start >= window_ms then
	count = 0
	start = now_ms
end

local allowed = count < burst
if allowed then
	count = count + 1
end

local retry_after = 0
if not allowed then
	retry_after = math.ceil((start + window_ms - now_ms) / 1000)
end

redis.call('HSET', KEYS[1], 'count', count, 'start', start)
redis.call('PEXPIRE', KEYS[1], window_ms + 1000)

return {allowed and 1 or 0, retry_after}
`)

// RedisRateLimiter enforces per-category budgets with shared state in
// Redis, so every API instance sees the same counters.
type RedisRateLimiter struct {
	client       *redis.Client
	config       *Config
	stats        *RateLimiterStats
	customLimits map[string]map[string]RateLimit // clientID -> endpoint -> limit
	mu           sync.RWMutex
	ctx          context.Context
}

func NewRedisRateLimiter(client *redis.Client, config *Config) *RedisRateLimiter {
	if config == nil {
		config = DefaultConfig()
	}

	limiter := &RedisRateLimiter{
		client:       client,
		config:       config,
		stats:        &RateLimiterStats{},
		customLimits: make(map[string]map[string]RateLimit),
		ctx:          context.Background(),
	}

	go limiter.syncCustomLimits()

	return limiter
}

// Allow reports whether the client may hit the endpoint now. The second
// return value is how long to wait when the answer is no.
func (r *RedisRateLimiter) Allow(clientID string, endpoint string) (bool, time.Duration, error) {
	if !r.config.Enabled {
		return true, 0, nil
	}

	atomic.AddInt64(&r.stats.TotalRequests, 1)

	category, limit := r.resolve(clientID, endpoint)
	key := fmt.Sprintf("%s%s:%s", r.config.RedisKeyPrefix, clientID, category)

	result, err := slidingWindowScript.Run(r.ctx, r.client, []string{key},
		limit.BurstSize,
		limit.WindowSize.Milliseconds(),
		time.Now().UnixMilli()).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit check failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit script result")
	}

	if values[0].(int64) != 1 {
		atomic.AddInt64(&r.stats.BlockedRequests, 1)
		return false, time.Duration(values[1].(int64)) * time.Second, nil
	}

	return true, 0, nil
}

// resolve picks the bucket name and budget for a request. A custom
// per-client limit keyed by the raw endpoint wins; otherwise the endpoint's
// category budget applies, so for example every incident update shares one
// bucket rather than getting one per path.
func (r *RedisRateLimiter) resolve(clientID, endpoint string) (string, RateLimit) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if clientLimits, ok := r.customLimits[clientID]; ok {
		if limit, ok := clientLimits[endpoint]; ok {
			return endpoint, limit
		}
	}

	category := r.config.GetEndpointKey(endpoint, "")
	if limit, ok := r.config.DefaultLimits[category]; ok {
		return category, limit
	}
	if limit, ok := r.config.DefaultLimits["default"]; ok {
		return "default", limit
	}

	return "default", RateLimit{RequestsPerMinute: 60, BurstSize: 15, WindowSize: time.Minute}
}

// GetLimits returns the budgets in effect for a client: the configured
// category defaults plus any per-client overrides.
func (r *RedisRateLimiter) GetLimits(clientID string) map[string]RateLimit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limits := make(map[string]RateLimit, len(r.config.DefaultLimits))
	for category, limit := range r.config.DefaultLimits {
		limits[category] = limit
	}

	if clientLimits, ok := r.customLimits[clientID]; ok {
		for endpoint, limit := range clientLimits {
			limits[endpoint] = limit
		}
	}

	return limits
}

// SetCustomLimit overrides the budget for one client and endpoint. The
// override is persisted so other instances pick it up on their next sync.
func (r *RedisRateLimiter) SetCustomLimit(clientID string, endpoint string, limit RateLimit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.customLimits[clientID] == nil {
		r.customLimits[clientID] = make(map[string]RateLimit)
	}
	r.customLimits[clientID][endpoint] = limit

	key := r.config.RedisKeyPrefix + "custom:" + clientID
	data, err := json.Marshal(r.customLimits[clientID])
	if err != nil {
		return fmt.Errorf("failed to marshal custom limits: %w", err)
	}

	if err := r.client.Set(r.ctx, key, data, 24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to persist custom limits: %w", err)
	}

	return nil
}

func (r *RedisRateLimiter) GetStats() RateLimiterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := *r.stats
	stats.CustomClients = len(r.customLimits)
	if stats.TotalRequests > 0 {
		stats.BlockedPercent = float64(stats.BlockedRequests) / float64(stats.TotalRequests) * 100
	}

	return stats
}

// LoadCustomLimits pulls persisted per-client overrides from Redis. Called
// once at startup and then periodically by the sync loop.
func (r *RedisRateLimiter) LoadCustomLimits() error {
	prefix := r.config.RedisKeyPrefix + "custom:"
	iter := r.client.Scan(r.ctx, 0, prefix+"*", 100).Iterator()

	loaded := make(map[string]map[string]RateLimit)
	for iter.Next(r.ctx) {
		key := iter.Val()
		clientID := strings.TrimPrefix(key, prefix)

		data, err := r.client.Get(r.ctx, key).Result()
		if err != nil {
			continue
		}

		var limits map[string]RateLimit
		if err := json.Unmarshal([]byte(data), &limits); err != nil {
			continue
		}
		loaded[clientID] = limits
	}
	if err := iter.Err(); err != nil {
		return err
	}

	// Replace wholesale so overrides that expired in Redis drop out here too
	r.mu.Lock()
	r.customLimits = loaded
	r.mu.Unlock()

	return nil
}

// syncCustomLimits keeps this instance's override cache converging with
// what other instances have persisted. Expired overrides fall out of Redis
// on their TTL and are dropped here on the following pass.
func (r *RedisRateLimiter) syncCustomLimits() {
	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		if err := r.LoadCustomLimits(); err != nil {
			continue
		}
	}
}
