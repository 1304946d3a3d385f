package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/brawlrec-backend/internal/runlock"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "https://api.moxfield.com/v2", cfg.Moxfield.BaseURL)
	assert.Equal(t, "MoxKey; BrawlREC 1.0", cfg.Moxfield.UserAgent)
	assert.Equal(t, "brawl", cfg.Moxfield.Format)
	assert.Equal(t, 500*time.Millisecond, cfg.Moxfield.RequestDelay)
	assert.Equal(t, 64, cfg.Moxfield.PageSize)
	assert.Equal(t, 1000, cfg.Ingestion.MaxDecksPerRun)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, runlock.DefaultTTL, cfg.Redis.LockTTL)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/brawl.db")
	t.Setenv("MOXFIELD_REQUEST_DELAY_MS", "1200")
	t.Setenv("MOXFIELD_REQUEST_TIMEOUT", "5s")
	t.Setenv("MAX_DECKS_PER_RUN", "250")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RUN_LOCK_TTL", "30m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/tmp/brawl.db", cfg.Database.DSN())
	assert.Equal(t, 1200*time.Millisecond, cfg.Moxfield.RequestDelay)
	assert.Equal(t, 5*time.Second, cfg.Moxfield.RequestTimeout)
	assert.Equal(t, 250, cfg.Ingestion.MaxDecksPerRun)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 30*time.Minute, cfg.Redis.LockTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown driver", "DB_DRIVER", "mysql"},
		{"bad log level", "LOG_LEVEL", "chatty"},
		{"bad base url", "MOXFIELD_BASE_URL", "not a url"},
		{"zero ceiling", "MAX_DECKS_PER_RUN", "0"},
		{"page too large", "MOXFIELD_PAGE_SIZE", "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ProductionPostgresNeedsPassword(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DB_DRIVER", "postgres")

	_, err := Load()
	assert.ErrorContains(t, err, "database password")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Driver:   "postgres",
		Host:     "db",
		Port:     "5432",
		User:     "brawl",
		Password: "secret",
		Database: "brawlrec",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=brawl password=secret dbname=brawlrec sslmode=disable", cfg.DSN())
}

func TestLoad_ValidationMessage(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	assert.ErrorContains(t, err, "Driver must be one of: postgres sqlite")
}
