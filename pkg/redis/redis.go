package redis

import (
	"context"
	"fmt"
	"time"

	"trafficwatch-backend/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Client wraps the go-redis client with connection health reporting. The
// local incident store and the rate limiter share one Client per process.
type Client struct {
	client *redis.Client
	config config.RedisConfig
	log    *logrus.Logger
}

type HealthStatus struct {
	IsConnected    bool          `json:"isConnected"`
	LastPing       time.Time     `json:"lastPing"`
	ResponseTime   time.Duration `json:"responseTime"`
	ConnectionInfo string        `json:"connectionInfo"`
	Error          string        `json:"error,omitempty"`
}

// NewClient creates a Redis client with connection pooling.
func NewClient(cfg config.RedisConfig, log *logrus.Logger) *Client {
	c := &Client{config: cfg, log: log}
	c.connect()
	return c
}

func (c *Client) connect() {
	if c.config.URL != "" {
		opt, err := redis.ParseURL(c.config.URL)
		if err != nil {
			c.log.WithError(err).Warn("Failed to parse Redis URL, falling back to host:port")
			c.client = redis.NewClient(c.hostPortOptions())
			return
		}
		opt.PoolSize = c.config.PoolSize
		opt.MinIdleConns = c.config.MinIdleConns
		opt.MaxRetries = c.config.MaxRetries
		opt.MinRetryBackoff = c.config.RetryDelay
		opt.DialTimeout = c.config.DialTimeout
		opt.ReadTimeout = c.config.ReadTimeout
		opt.WriteTimeout = c.config.WriteTimeout
		opt.PoolTimeout = c.config.PoolTimeout
		c.client = redis.NewClient(opt)
		return
	}
	c.client = redis.NewClient(c.hostPortOptions())
}

func (c *Client) hostPortOptions() *redis.Options {
	return &redis.Options{
		Addr:            fmt.Sprintf("%s:%s", c.config.Host, c.config.Port),
		Password:        c.config.Password,
		DB:              c.config.DB,
		PoolSize:        c.config.PoolSize,
		MinIdleConns:    c.config.MinIdleConns,
		MaxRetries:      c.config.MaxRetries,
		MinRetryBackoff: c.config.RetryDelay,
		DialTimeout:     c.config.DialTimeout,
		ReadTimeout:     c.config.ReadTimeout,
		WriteTimeout:    c.config.WriteTimeout,
		PoolTimeout:     c.config.PoolTimeout,
	}
}

// GetClient returns the underlying go-redis client.
func (c *Client) GetClient() *redis.Client {
	return c.client
}

// HealthCheck pings the server and returns detailed status.
func (c *Client) HealthCheck() HealthStatus {
	status := HealthStatus{
		ConnectionInfo: fmt.Sprintf("%s:%s", c.config.Host, c.config.Port),
	}

	if c.client == nil {
		status.Error = "Redis client not initialized"
		return status
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	start := time.Now()
	err := c.client.Ping(ctx).Err()
	status.ResponseTime = time.Since(start)
	status.LastPing = time.Now()

	if err != nil {
		status.Error = err.Error()
	} else {
		status.IsConnected = true
	}

	return status
}

// GetConnectionStats returns connection pool statistics.
func (c *Client) GetConnectionStats() map[string]interface{} {
	if c.client == nil {
		return map[string]interface{}{
			"error": "Redis client not initialized",
		}
	}

	stats := c.client.PoolStats()
	return map[string]interface{}{
		"hits":       stats.Hits,
		"misses":     stats.Misses,
		"timeouts":   stats.Timeouts,
		"totalConns": stats.TotalConns,
		"idleConns":  stats.IdleConns,
		"staleConns": stats.StaleConns,
	}
}

// Close shuts down the Redis client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
