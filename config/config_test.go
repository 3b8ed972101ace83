package config

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/collab")
	t.Setenv("JWT_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 50.0, cfg.DefaultRadiusKm)
	assert.Equal(t, time.Hour, cfg.ApplyRateWindow)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/collab")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("DEFAULT_RADIUS_KM", "25.5")
	t.Setenv("APPLY_RATE_LIMIT", "5")
	t.Setenv("APPLY_RATE_WINDOW", "10m")
	t.Setenv("REMINDER_AFTER", "not-a-duration")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pgx", cfg.DatabaseDriver)
	assert.Equal(t, 25.5, cfg.DefaultRadiusKm)
	assert.Equal(t, 5, cfg.ApplyRateLimit)
	assert.Equal(t, 10*time.Minute, cfg.ApplyRateWindow)
	assert.Equal(t, 72*time.Hour, cfg.ReminderAfter)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET_KEY", "secret")
	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/collab")
	t.Setenv("DATABASE_DRIVER", "mysql")
	_, err = Load()
	assert.ErrorContains(t, err, "DATABASE_DRIVER")
}

func TestConfigureLogging(t *testing.T) {
	defer log.SetLevel(log.GetLevel())
	defer log.SetFormatter(log.StandardLogger().Formatter)

	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	cfg.ConfigureLogging()
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	cfg = &Config{LogLevel: "loud"}
	cfg.ConfigureLogging()
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}
