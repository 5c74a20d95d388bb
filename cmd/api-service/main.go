package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/jobmatch-applications/internal/api/auth"
	"github.com/cuongbtq/jobmatch-applications/internal/api/directory"
	"github.com/cuongbtq/jobmatch-applications/internal/api/handler"
	"github.com/cuongbtq/jobmatch-applications/internal/api/publisher"
	"github.com/cuongbtq/jobmatch-applications/internal/api/router"
	"github.com/cuongbtq/jobmatch-applications/internal/api/service"
	"github.com/cuongbtq/jobmatch-applications/internal/api/storage"
	"github.com/cuongbtq/jobmatch-applications/internal/config"
	"github.com/cuongbtq/jobmatch-applications/internal/metrics"
	"github.com/cuongbtq/jobmatch-applications/shared/logger"
	"github.com/cuongbtq/jobmatch-applications/shared/postgresql"
	"github.com/cuongbtq/jobmatch-applications/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer appLogger.Close()
	appLogger = appLogger.WithAttrs(slog.String("service", cfg.App.Name))

	appLogger.Info("Starting application service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	store := storage.NewStorage(dbClient.GetDB(), appLogger.Logger)
	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = store.Migrate(migrateCtx)
	cancelMigrate()
	if err != nil {
		dbClient.Close()
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		dbClient.Close()
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	svc, err := initService(cfg, store, rabbitClient, appLogger.Logger)
	if err != nil {
		dbClient.Close()
		rabbitClient.Close()
		return err
	}

	// Initialize router
	r := initRouter(cfg, appLogger.Logger, svc, dbClient, rabbitClient)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	// Cleanup function to close all resources
	cleanup := func() {
		cancel()
		// in-flight notifications still need the broker
		svc.Wait()
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		ConnectAttempts: cfg.ConnectAttempts,
		ConnectInterval: cfg.ConnectInterval,
	}

	return postgresql.NewClient(context.Background(), dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		DeadLetterExchange: cfg.Queue.DeadLetterExchange,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublisherConfirms:  cfg.Publish.Confirms,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initService wires the directory clients and the event publisher into the
// application engine
func initService(cfg *config.Config, store *storage.Storage, rabbitClient *rabbitmq.Client, logger *slog.Logger) (*service.ApplicationService, error) {
	policy, err := cfg.Applications.ReapplicationPolicy()
	if err != nil {
		return nil, fmt.Errorf("invalid reapplication policy: %w", err)
	}

	jobs := directory.NewJobClient(directory.Config{
		BaseURL:      cfg.Directories.Jobs.BaseURL,
		Timeout:      cfg.Directories.Jobs.Timeout,
		ServiceToken: cfg.Directories.ServiceToken,
	}, logger)
	users := directory.NewUserClient(directory.Config{
		BaseURL:      cfg.Directories.Users.BaseURL,
		Timeout:      cfg.Directories.Users.Timeout,
		ServiceToken: cfg.Directories.ServiceToken,
	}, logger)

	pub := publisher.New(rabbitClient, publisher.Config{
		MaxRetries: cfg.RabbitMQ.Publish.MaxRetries,
		RetryDelay: cfg.RabbitMQ.Publish.RetryDelay,
	}, logger)

	return service.New(store, jobs, users, pub, logger, service.Options{
		Policy:                policy,
		NotificationTimeout:   cfg.Applications.NotificationTimeout,
		EnrichmentConcurrency: cfg.Applications.EnrichmentConcurrency,
	}), nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, svc *service.ApplicationService, dbClient *postgresql.Client, rabbitClient *rabbitmq.Client) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	metrics.Register()

	handlerDeps := &handler.Dependencies{
		Logger:       logger,
		ServiceName:  cfg.App.Name,
		Applications: svc,
		HealthChecks: map[string]handler.HealthCheck{
			"database": dbClient.HealthCheck,
			"rabbitmq": rabbitClient.HealthCheck,
		},
	}

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	return router.SetupRouter(handlerDeps, verifier)
}
