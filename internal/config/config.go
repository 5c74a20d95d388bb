package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cuongbtq/jobmatch-applications/internal/api/domain"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Environment variables that override secrets from the YAML file
const (
	EnvDatabasePassword = "DATABASE_PASSWORD"
	EnvRabbitMQPassword = "RABBITMQ_PASSWORD"
	EnvJWTSecret        = "JWT_SECRET"
	EnvRedisPassword    = "REDIS_PASSWORD"
	EnvServiceToken     = "DIRECTORY_SERVICE_TOKEN"
)

// Config represents the complete application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	RabbitMQ     RabbitMQConfig     `yaml:"rabbitmq"`
	Redis        RedisConfig        `yaml:"redis"`
	Logging      LoggingConfig      `yaml:"logging"`
	App          AppConfig          `yaml:"app"`
	Worker       WorkerConfig       `yaml:"worker"`
	Auth         AuthConfig         `yaml:"auth"`
	Directories  DirectoriesConfig  `yaml:"directories"`
	Applications ApplicationsConfig `yaml:"applications"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	ConnectInterval time.Duration `yaml:"connect_interval"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name               string `yaml:"name"`
	Durable            bool   `yaml:"durable"`
	AutoDelete         bool   `yaml:"auto_delete"`
	Exclusive          bool   `yaml:"exclusive"`
	DeadLetterExchange string `yaml:"dead_letter_exchange"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds event publish settings. Retries use a fixed delay.
type PublishConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Confirms   bool          `yaml:"confirms"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	Tag           string `yaml:"tag"`
	PrefetchCount int    `yaml:"prefetch_count"`
}

// RedisConfig holds the notification dedup store connection
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level            string `yaml:"level"`
	Format           string `yaml:"format"`
	Output           string `yaml:"output"`
	EnableCaller     bool   `yaml:"enable_caller"`
	EnableStackTrace bool   `yaml:"enable_stack_trace"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds notification worker configuration
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	JobTimeout      time.Duration `yaml:"job_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	DedupTTL        time.Duration `yaml:"dedup_ttl"`
	ClaimLease      time.Duration `yaml:"claim_lease"`
	MetricsPort     int           `yaml:"metrics_port"`
}

// Lease bounds how long an unfinished claim blocks redeliveries. Zero
// ClaimLease means twice the job timeout.
func (w *WorkerConfig) Lease() time.Duration {
	if w.ClaimLease > 0 {
		return w.ClaimLease
	}
	return 2 * w.JobTimeout
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// DirectoriesConfig holds the job and user service clients
type DirectoriesConfig struct {
	Jobs         DirectoryConfig `yaml:"jobs"`
	Users        DirectoryConfig `yaml:"users"`
	ServiceToken string          `yaml:"service_token"`
}

// DirectoryConfig holds one directory service endpoint
type DirectoryConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ApplicationsConfig tunes the application lifecycle engine
type ApplicationsConfig struct {
	// AllowReapplicationAfter lists prior statuses that do not block a new
	// application to the same job. Empty blocks on any prior application.
	AllowReapplicationAfter []string      `yaml:"allow_reapplication_after"`
	NotificationTimeout     time.Duration `yaml:"notification_timeout"`
	EnrichmentConcurrency   int           `yaml:"enrichment_concurrency"`
}

// Load reads and parses the configuration file, then applies secret
// overrides from the environment
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()

	return &config, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	override(&c.Database.Password, EnvDatabasePassword)
	override(&c.RabbitMQ.Password, EnvRabbitMQPassword)
	override(&c.Auth.JWTSecret, EnvJWTSecret)
	override(&c.Redis.Password, EnvRedisPassword)
	override(&c.Directories.ServiceToken, EnvServiceToken)
}

// ReapplicationPolicy builds the duplicate application policy
func (c *ApplicationsConfig) ReapplicationPolicy() (domain.ReapplicationPolicy, error) {
	var policy domain.ReapplicationPolicy
	for _, raw := range c.AllowReapplicationAfter {
		status, err := domain.ParseStatus(strings.ToLower(strings.TrimSpace(raw)))
		if err != nil {
			return domain.ReapplicationPolicy{}, fmt.Errorf("invalid allow_reapplication_after entry: %w", err)
		}
		policy.AllowAfter = append(policy.AllowAfter, status)
	}
	return policy, nil
}

// Validate checks the sections both services depend on
func (c *Config) Validate() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %q", c.Logging.Format)
	}

	return nil
}

// ValidateAPIConfig checks the configuration of the application API service
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if err := c.Validate(); err != nil {
		return err
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt_secret is required")
	}

	if c.Directories.Jobs.BaseURL == "" {
		return fmt.Errorf("job directory base_url is required")
	}

	if c.Directories.Users.BaseURL == "" {
		return fmt.Errorf("user directory base_url is required")
	}

	if c.Applications.EnrichmentConcurrency < 0 {
		return fmt.Errorf("applications enrichment_concurrency must not be negative")
	}

	if _, err := c.Applications.ReapplicationPolicy(); err != nil {
		return err
	}

	return nil
}

// ValidateWorkerConfig checks the configuration of the notification worker
func (c *Config) ValidateWorkerConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	if c.Worker.DedupTTL <= 0 {
		return fmt.Errorf("worker dedup_ttl must be greater than 0")
	}

	if c.Worker.ClaimLease < 0 {
		return fmt.Errorf("worker claim_lease must not be negative")
	}

	if c.Worker.Lease() < c.Worker.JobTimeout {
		return fmt.Errorf("worker claim_lease must be at least job_timeout")
	}

	if c.Worker.Lease() > c.Worker.DedupTTL {
		return fmt.Errorf("worker claim_lease must not exceed dedup_ttl")
	}

	if c.Worker.MetricsPort < 0 || c.Worker.MetricsPort > MaxPort {
		return fmt.Errorf("invalid worker metrics port: %d", c.Worker.MetricsPort)
	}

	return nil
}
