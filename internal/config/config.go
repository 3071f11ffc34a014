package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the escalation engine service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	SweepInterval   time.Duration
	CleanupInterval time.Duration
	SessionMaxAge   time.Duration
	QueueLimit      int

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("HANDOFF_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("HANDOFF_METRICS_NAMESPACE", "handoff"),
		AllowAnyOrigin:   false,
		ShutdownTimeout:  15 * time.Second,
		SweepInterval:    5 * time.Second,
		CleanupInterval:  time.Hour,
		SessionMaxAge:    24 * time.Hour,
		QueueLimit:       256,
		DatabaseURL:      trimSpaceEnv("DATABASE_URL"),
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("HANDOFF_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval, err = durationFromEnv("HANDOFF_SWEEP_INTERVAL", cfg.SweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.CleanupInterval, err = durationFromEnv("HANDOFF_CLEANUP_INTERVAL", cfg.CleanupInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionMaxAge, err = durationFromEnv("HANDOFF_SESSION_MAX_AGE", cfg.SessionMaxAge)
	if err != nil {
		return Config{}, err
	}
	cfg.QueueLimit, err = intFromEnv("HANDOFF_QUEUE_LIMIT", cfg.QueueLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("HANDOFF_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SweepInterval < time.Second {
		return Config{}, fmt.Errorf("HANDOFF_SWEEP_INTERVAL must be at least 1s")
	}
	if cfg.CleanupInterval < time.Minute {
		return Config{}, fmt.Errorf("HANDOFF_CLEANUP_INTERVAL must be at least 1m")
	}
	if cfg.SessionMaxAge < time.Minute {
		return Config{}, fmt.Errorf("HANDOFF_SESSION_MAX_AGE must be at least 1m")
	}
	if cfg.QueueLimit < 0 {
		return Config{}, fmt.Errorf("HANDOFF_QUEUE_LIMIT must be >= 0")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimSpaceEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimSpaceEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimSpaceEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimSpaceEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: %q is not a boolean", key, v)
	}
}
