package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string

	// JWTSecret signs bearer tokens. The default exists so development
	// boots with zero configuration; production must override it.
	JWTSecret string

	// AnomalyTimeout bounds one request's anomaly rule evaluation. Rules
	// that miss the deadline degrade to "not flagged".
	AnomalyTimeout time.Duration

	// AlertNotifyURL is an optional shoutrrr URL receiving high-severity
	// flag notifications. Empty disables the push.
	AlertNotifyURL string

	// DigestSchedule is the cron expression for the unresolved-alert digest.
	DigestSchedule string
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:    getEnv("AEGIS_ENV", "development"),
		HTTPPort:       getEnv("AEGIS_HTTP_PORT", "8080"),
		DatabasePath:   getEnv("AEGIS_DB_PATH", filepath.Join("data", "aegis.db")),
		JWTSecret:      getEnv("AEGIS_JWT_SECRET", "aegis-dev-secret"),
		AnomalyTimeout: getDurationMS("AEGIS_ANOMALY_TIMEOUT_MS", 2000),
		AlertNotifyURL: getEnv("AEGIS_ALERT_NOTIFY_URL", ""),
		DigestSchedule: getEnv("AEGIS_DIGEST_SCHEDULE", "0 * * * *"),
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getDurationMS(key string, fallback int) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return time.Duration(fallback) * time.Millisecond
}
