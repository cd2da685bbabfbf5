package ratelimit

import (
	"strings"
	"time"
)

// Config holds the configuration for rate limiting
type Config struct {
	// Default rate limits for different endpoint types
	DefaultLimits map[string]RateLimit `json:"defaultLimits"`

	// Redis key prefix for rate limiting data
	RedisKeyPrefix string `json:"redisKeyPrefix"`

	// Cleanup interval for expired rate limit data
	CleanupInterval time.Duration `json:"cleanupInterval"`

	// Enable/disable rate limiting
	Enabled bool `json:"enabled"`
}

// DefaultConfig returns a default rate limiting configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultLimits: map[string]RateLimit{
			// Authentication endpoints, more restrictive
			"auth":        {RequestsPerMinute: 10, BurstSize: 5, WindowSize: time.Minute},
			"auth_login":  {RequestsPerMinute: 5, BurstSize: 2, WindowSize: time.Minute},
			"auth_logout": {RequestsPerMinute: 10, BurstSize: 5, WindowSize: time.Minute},

			// Citizen report submission is the main abuse surface
			"reports_submit": {RequestsPerMinute: 5, BurstSize: 2, WindowSize: time.Minute},
			"reports":        {RequestsPerMinute: 100, BurstSize: 20, WindowSize: time.Minute},
			"reports_review": {RequestsPerMinute: 60, BurstSize: 15, WindowSize: time.Minute},

			// Incident operations
			"incidents":        {RequestsPerMinute: 200, BurstSize: 50, WindowSize: time.Minute},
			"incidents_create": {RequestsPerMinute: 30, BurstSize: 10, WindowSize: time.Minute},
			"incidents_update": {RequestsPerMinute: 50, BurstSize: 10, WindowSize: time.Minute},
			"incidents_delete": {RequestsPerMinute: 10, BurstSize: 3, WindowSize: time.Minute},

			// Zone reads power the public map
			"zones":        {RequestsPerMinute: 200, BurstSize: 50, WindowSize: time.Minute},
			"zones_create": {RequestsPerMinute: 10, BurstSize: 3, WindowSize: time.Minute},

			// Vehicle registrations
			"vehicles":        {RequestsPerMinute: 100, BurstSize: 20, WindowSize: time.Minute},
			"vehicles_create": {RequestsPerMinute: 10, BurstSize: 3, WindowSize: time.Minute},

			// User management
			"users":        {RequestsPerMinute: 50, BurstSize: 10, WindowSize: time.Minute},
			"users_create": {RequestsPerMinute: 10, BurstSize: 3, WindowSize: time.Minute},
			"users_update": {RequestsPerMinute: 20, BurstSize: 5, WindowSize: time.Minute},
			"users_delete": {RequestsPerMinute: 5, BurstSize: 2, WindowSize: time.Minute},

			// Health check, very permissive
			"health": {RequestsPerMinute: 1000, BurstSize: 100, WindowSize: time.Minute},

			// Default fallback
			"default": {RequestsPerMinute: 60, BurstSize: 15, WindowSize: time.Minute},
		},
		RedisKeyPrefix:  "ratelimit:",
		CleanupInterval: 5 * time.Minute,
		Enabled:         true,
	}
}

// GetEndpointKey generates a rate limit key for a specific endpoint
func (c *Config) GetEndpointKey(endpoint, method string) string {
	endpointMap := map[string]string{
		"POST:/api/v1/auth/login":    "auth_login",
		"POST:/api/v1/auth/logout":   "auth_logout",
		"POST:/api/v1/auth/register": "auth",
		"GET:/api/v1/auth/profile":   "auth",

		"POST:/api/v1/reports":           "reports_submit",
		"GET:/api/v1/reports":            "reports",
		"POST:/api/v1/reports/*/approve": "reports_review",
		"POST:/api/v1/reports/*/reject":  "reports_review",

		"GET:/api/v1/incidents":      "incidents",
		"POST:/api/v1/incidents":     "incidents_create",
		"PATCH:/api/v1/incidents/*":  "incidents_update",
		"DELETE:/api/v1/incidents/*": "incidents_delete",

		"GET:/api/v1/zones":  "zones",
		"POST:/api/v1/zones": "zones_create",

		"GET:/api/v1/vehicles":  "vehicles",
		"POST:/api/v1/vehicles": "vehicles_create",

		"GET:/api/v1/users":      "users",
		"POST:/api/v1/users":     "users_create",
		"PATCH:/api/v1/users/*":  "users_update",
		"DELETE:/api/v1/users/*": "users_delete",

		"GET:/api/v1/health": "health",
	}

	// The middleware passes endpoints already combined as "METHOD:/path"
	key := endpoint
	if method != "" {
		key = method + ":" + endpoint
	}
	if category, exists := endpointMap[key]; exists {
		return category
	}

	// Check for wildcard matches
	for pattern, category := range endpointMap {
		if matchesPattern(key, pattern) {
			return category
		}
	}

	return "default"
}

// matchesPattern checks if a key matches a pattern. A "*" segment matches
// any single path segment, so "POST:/api/v1/reports/*/approve" matches
// "POST:/api/v1/reports/42/approve".
func matchesPattern(key, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return key == pattern
	}

	keyParts := strings.Split(key, "/")
	patternParts := strings.Split(pattern, "/")

	// A trailing "*" also swallows any extra segments
	if strings.HasSuffix(pattern, "*") && len(keyParts) > len(patternParts) {
		keyParts = keyParts[:len(patternParts)]
	}

	if len(keyParts) != len(patternParts) {
		return false
	}

	for i, part := range patternParts {
		if part != "*" && part != keyParts[i] {
			return false
		}
	}

	return true
}
