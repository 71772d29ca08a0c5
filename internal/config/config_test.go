package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, 7*24*time.Hour, cfg.AccessCodeTTL)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 1024, cfg.StatsCacheSize)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Empty(t, cfg.HTTP.CORSOrigins)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"CRICKET_HTTP_PORT":           "9090",
		"CRICKET_HTTP_CORS_ORIGINS":   "http://localhost:3000,https://club.example",
		"CRICKET_STORAGE_TYPE":        "postgres",
		"CRICKET_DB_DSN":              "postgres://localhost/cricket",
		"CRICKET_REDIS_POOL_SIZE":     "20",
		"CRICKET_AUTH_JWT_SECRET":     "s3cret",
		"CRICKET_AUTH_ADMIN_USERNAME": "admin",
		"CRICKET_AUTH_ADMIN_PASSWORD": "password123",
		"CRICKET_ACCESS_CODE_TTL":     "48h",
		"CRICKET_LOG_LEVEL":           "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, []string{"http://localhost:3000", "https://club.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, "postgres://localhost/cricket", cfg.DB.DSN)
	assert.Equal(t, 20, cfg.Redis.PoolSize)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 48*time.Hour, cfg.AccessCodeTTL)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"storage type":   {"CRICKET_STORAGE_TYPE": "mongo"},
		"log level":      {"CRICKET_LOG_LEVEL": "chatty"},
		"ttl":            {"CRICKET_ACCESS_CODE_TTL": "0s"},
		"bad duration":   {"CRICKET_SWEEP_INTERVAL": "soon"},
		"admin password": {"CRICKET_AUTH_ADMIN_USERNAME": "admin"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(vars)
			assert.Error(t, err)
		})
	}
}
