package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// Client wraps a go-redis client
type Client struct {
	rdb    *goredis.Client
	logger *slog.Logger
}

// NewClient connects to Redis and verifies the connection
func NewClient(ctx context.Context, config *Config, logger *slog.Logger) (*Client, error) {
	dialTimeout := config.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        config.Addr,
		Password:    config.Password,
		DB:          config.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("Successfully connected to Redis",
		slog.String("addr", config.Addr),
		slog.Int("db", config.DB),
	)

	return &Client{rdb: rdb, logger: logger}, nil
}

// GetClient returns the underlying go-redis client
func (c *Client) GetClient() *goredis.Client {
	return c.rdb
}

// HealthCheck pings the server
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", slog.Any("error", err))
		return err
	}
	c.logger.Info("Redis connection closed")
	return nil
}
