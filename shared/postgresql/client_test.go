package postgresql

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Host:     "db.internal",
		Port:     5433,
		User:     "apps",
		Password: "secret",
		Database: "applications_db",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db.internal port=5433 user=apps password=secret dbname=applications_db sslmode=disable", cfg.DSN())
}

func TestClient_HealthCheck(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	client := NewFromDB(sqlx.NewDb(db, "postgres"), slog.New(slog.NewTextHandler(io.Discard, nil)))

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	require.NoError(t, client.HealthCheck(context.Background()))

	mock.ExpectPing().WillReturnError(assert.AnError)
	err = client.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database health check failed")

	mock.ExpectClose()
	require.NoError(t, client.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfig_DSNDefaultsSSLMode(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: 5432, User: "u", Password: "p", Database: "d"}
	assert.Contains(t, cfg.DSN(), "sslmode=disable")
}

func TestNewClient_GivesUp(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("after the configured attempts", func(t *testing.T) {
		client, err := NewClient(context.Background(), &Config{
			Host:            "127.0.0.1",
			Port:            1,
			User:            "u",
			Database:        "d",
			ConnectAttempts: 2,
			ConnectInterval: 10 * time.Millisecond,
		}, logger)

		require.Error(t, err)
		assert.Nil(t, client)
		assert.Contains(t, err.Error(), "after 2 attempts")
	})

	t.Run("when the context is canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)

		_, err := NewClient(ctx, &Config{
			Host:            "127.0.0.1",
			Port:            1,
			User:            "u",
			Database:        "d",
			ConnectAttempts: 100,
			ConnectInterval: time.Second,
		}, logger)

		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
