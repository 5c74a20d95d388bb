package postgresql

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	defaultConnectAttempts = 5
	defaultConnectInterval = 2 * time.Second
	pingTimeout            = 5 * time.Second
	healthCheckTimeout     = 2 * time.Second
)

// Config holds PostgreSQL connection configuration
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// ConnectAttempts bounds the initial ping loop; the database is often
	// still starting when the service boots
	ConnectAttempts int
	ConnectInterval time.Duration
}

// DSN builds the lib/pq connection string
func (c *Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		sslMode,
	)
}

// Client owns the application database pool
type Client struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewClient opens the pool and waits until the database answers a ping
func NewClient(ctx context.Context, config *Config, logger *slog.Logger) (*Client, error) {
	db, err := sqlx.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL pool: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := waitForDatabase(ctx, db, config, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Successfully connected to PostgreSQL",
		slog.String("host", config.Host),
		slog.String("database", config.Database),
		slog.Int("max_open_conns", config.MaxOpenConns),
	)

	return &Client{db: db, logger: logger}, nil
}

func waitForDatabase(ctx context.Context, db *sqlx.DB, config *Config, logger *slog.Logger) error {
	attempts := config.ConnectAttempts
	if attempts <= 0 {
		attempts = defaultConnectAttempts
	}
	interval := config.ConnectInterval
	if interval <= 0 {
		interval = defaultConnectInterval
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}

		logger.Warn("PostgreSQL not reachable yet",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Any("error", err),
		)

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("gave up connecting to PostgreSQL: %w", ctx.Err())
		case <-time.After(interval):
		}
	}

	return fmt.Errorf("failed to connect to PostgreSQL after %d attempts: %w", attempts, err)
}

// NewFromDB wraps an already opened database handle
func NewFromDB(db *sqlx.DB, logger *slog.Logger) *Client {
	return &Client{db: db, logger: logger}
}

// GetDB returns the underlying sqlx.DB instance
func (c *Client) GetDB() *sqlx.DB {
	return c.db
}

// Close closes the pool
func (c *Client) Close() error {
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close PostgreSQL connection", slog.Any("error", err))
		return err
	}
	c.logger.Info("PostgreSQL connection closed")
	return nil
}

// HealthCheck verifies the pool can run a query
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var one int
	if err := c.db.GetContext(ctx, &one, "SELECT 1"); err != nil {
		return fmt.Errorf("database query health check failed: %w", err)
	}

	return nil
}
