package ratelimit

import "time"

// RateLimiter is the throttling surface the HTTP middleware talks to. A
// limiter answers whether a client may hit an endpoint right now and how
// long to wait when it may not.
type RateLimiter interface {
	Allow(clientID string, endpoint string) (bool, time.Duration, error)
	GetLimits(clientID string) map[string]RateLimit
	SetCustomLimit(clientID string, endpoint string, limit RateLimit) error
	GetStats() RateLimiterStats
}

// RateLimit is the budget for one endpoint category.
type RateLimit struct {
	RequestsPerMinute int           `json:"requestsPerMinute"`
	BurstSize         int           `json:"burstSize"`
	WindowSize        time.Duration `json:"windowSize"`
}

// RateLimiterStats is a point-in-time snapshot of limiter activity.
type RateLimiterStats struct {
	TotalRequests   int64   `json:"totalRequests"`
	BlockedRequests int64   `json:"blockedRequests"`
	BlockedPercent  float64 `json:"blockedPercent"`
	CustomClients   int     `json:"customClients"`
}
