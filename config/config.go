// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port            string
	DatabaseURL     string
	DatabaseDriver  string
	JWTSecret       string
	RedisURL        string
	SynonymsFile    string
	DefaultRadiusKm float64
	ApplyRateLimit  int
	ApplyRateWindow time.Duration
	// ReminderSchedule is a cron spec; empty disables the reminder job.
	ReminderSchedule string
	ReminderAfter    time.Duration
	CORSOrigins      []string
	LogLevel         string
	LogFormat        string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DatabaseDriver:   getEnv("DATABASE_DRIVER", "postgres"),
		JWTSecret:        getEnv("JWT_SECRET_KEY", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		SynonymsFile:     getEnv("SYNONYMS_FILE", ""),
		DefaultRadiusKm:  getFloat("DEFAULT_RADIUS_KM", 50),
		ApplyRateLimit:   getInt("APPLY_RATE_LIMIT", 20),
		ApplyRateWindow:  getDuration("APPLY_RATE_WINDOW", time.Hour),
		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "0 9 * * *"),
		ReminderAfter:    getDuration("REMINDER_AFTER", 72*time.Hour),
		CORSOrigins:      getList("CORS_ORIGINS", []string{"*"}),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	// Check required environment variables
	required := map[string]string{"DATABASE_URL": c.DatabaseURL, "JWT_SECRET_KEY": c.JWTSecret}
	for _, key := range []string{"DATABASE_URL", "JWT_SECRET_KEY"} {
		if required[key] == "" {
			return fmt.Errorf("required environment variable %s is not set", key)
		}
	}
	if c.DatabaseDriver != "postgres" && c.DatabaseDriver != "pgx" {
		return fmt.Errorf("DATABASE_DRIVER must be postgres or pgx, got %q", c.DatabaseDriver)
	}
	if c.DefaultRadiusKm <= 0 {
		return fmt.Errorf("DEFAULT_RADIUS_KM must be positive")
	}
	return nil
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the standard logrus logger.
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Printf("Unknown LOG_LEVEL %q, using info", c.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
