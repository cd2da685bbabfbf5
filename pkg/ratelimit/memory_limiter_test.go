package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryRateLimiter_Allow_BasicFunctionality(t *testing.T) {
	config := DefaultConfig()
	config.DefaultLimits["default"] = RateLimit{
		RequestsPerMinute: 5,
		BurstSize:         3,
		WindowSize:        time.Minute,
	}

	limiter := NewMemoryRateLimiter(config)

	clientID := "203.0.113.10"
	endpoint := "reports_submit"

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Allow(clientID, endpoint)
		assert.NoError(t, err)
		assert.True(t, allowed, "Request %d should be allowed", i+1)
	}

	allowed, retryAfter, err := limiter.Allow(clientID, endpoint)
	assert.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestMemoryRateLimiter_SetCustomLimit(t *testing.T) {
	limiter := NewMemoryRateLimiter(DefaultConfig())

	clientID := "trusted-operator"
	endpoint := "reports_submit"

	err := limiter.SetCustomLimit(clientID, endpoint, RateLimit{
		RequestsPerMinute: 10,
		BurstSize:         2,
		WindowSize:        time.Minute,
	})
	assert.NoError(t, err)

	allowed, _, err := limiter.Allow(clientID, endpoint)
	assert.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = limiter.Allow(clientID, endpoint)
	assert.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = limiter.Allow(clientID, endpoint)
	assert.NoError(t, err)
	assert.False(t, allowed)
}

func TestMemoryRateLimiter_Stats(t *testing.T) {
	config := DefaultConfig()
	config.DefaultLimits["default"] = RateLimit{
		RequestsPerMinute: 5,
		BurstSize:         1,
		WindowSize:        time.Minute,
	}

	limiter := NewMemoryRateLimiter(config)

	limiter.Allow("client", "reports_submit")
	limiter.Allow("client", "reports_submit")

	stats := limiter.GetStats()
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.BlockedRequests)
	assert.Equal(t, float64(50), stats.BlockedPercent)
}

func TestMemoryRateLimiter_Disabled(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = false

	limiter := NewMemoryRateLimiter(config)

	for i := 0; i < 10; i++ {
		allowed, _, err := limiter.Allow("client", "reports_submit")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}
}
