package redis

import (
	"testing"
	"time"

	"trafficwatch-backend/internal/config"
	"trafficwatch-backend/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedisConfig(addr string) config.RedisConfig {
	host, port, _ := splitAddr(addr)
	return config.RedisConfig{
		Host:         host,
		Port:         port,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		RetryDelay:   time.Second,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	}
}

func splitAddr(addr string) (string, string, bool) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:], true
		}
	}
	return addr, "", false
}

func TestNewClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := NewClient(testRedisConfig(mr.Addr()), logger.New("error"))
	defer client.Close()

	require.NotNil(t, client.GetClient())
}

func TestHealthCheck(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := NewClient(testRedisConfig(mr.Addr()), logger.New("error"))
	defer client.Close()

	status := client.HealthCheck()
	assert.True(t, status.IsConnected)
	assert.NotEmpty(t, status.ConnectionInfo)
	assert.False(t, status.LastPing.IsZero())
}

func TestHealthCheckUnreachable(t *testing.T) {
	cfg := testRedisConfig("127.0.0.1:1")
	cfg.DialTimeout = 200 * time.Millisecond

	client := NewClient(cfg, logger.New("error"))
	defer client.Close()

	status := client.HealthCheck()
	assert.False(t, status.IsConnected)
	assert.NotEmpty(t, status.Error)
}

func TestGetConnectionStats(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := NewClient(testRedisConfig(mr.Addr()), logger.New("error"))
	defer client.Close()

	stats := client.GetConnectionStats()
	assert.NotContains(t, stats, "error")
}
