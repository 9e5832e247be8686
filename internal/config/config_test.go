package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"CONFIG_FILE", "TELEGRAM_TOKEN", "DATABASE_URL", "HTTP_ADDR", "JWT_SECRET", "TIMEZONE",
		"SWEEP_AT", "LOG_LEVEL", "ENV", "LOG_FILE", "HORIZON_DAYS", "SWEEP_INTERVAL_HOURS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "shared_planner.db", cfg.DatabaseURL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 14, cfg.HorizonDays)
	assert.Equal(t, "00:05", cfg.SweepAt)
	assert.Zero(t, cfg.SweepInterval)
	assert.Error(t, cfg.RequireJWTSecret())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "planner.yaml")
	content := "database_url: /tmp/from-file.db\ntimezone: UTC\nhorizon_days: 21\nsweep_interval_hours: 6\nlog:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DATABASE_URL", "/tmp/from-env.db")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/from-env.db", cfg.DatabaseURL)
	assert.Equal(t, 21, cfg.HorizonDays)
	assert.Equal(t, 6*time.Hour, cfg.SweepInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.RequireJWTSecret())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoadRejectsBadHorizon(t *testing.T) {
	clearEnv(t)
	t.Setenv("HORIZON_DAYS", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "HORIZON_DAYS")
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.Error(t, err)
}
