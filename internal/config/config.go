// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server and fleetctl.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (dispatcher dashboard dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// JWTSecret is the HS256 key bearer tokens are verified with. Required.
	JWTSecret string

	// RedisURL selects the shared Redis snapshot cache when set,
	// e.g. redis://localhost:6379/0. Empty keeps the cache in process.
	RedisURL string

	// SnapshotCacheTTL bounds how stale a fleet snapshot may be. Defaults
	// to 3s; 0 disables caching.
	SnapshotCacheTTL time.Duration

	// ExpectedDurationMinutes is the baseline run time of every service. Defaults to 45.
	ExpectedDurationMinutes int

	// DefaultDelayToleranceMinutes applies to tenants without their own. Defaults to 15.
	DefaultDelayToleranceMinutes int

	// ScanInterval runs the anomaly scan of every tenant periodically.
	// Defaults to 0, which leaves scanning to POST /alerts/scan and fleetctl.
	ScanInterval time.Duration

	// ScanConcurrency bounds how many tenants are scanned at once. Defaults to 4.
	ScanConcurrency int

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// AutoMigrate applies pending migrations at startup. Defaults to false.
	AutoMigrate bool
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, and one
// naming each variable whose value cannot be parsed.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RedisURL:    os.Getenv("REDIS_URL"),
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	var errs []error
	if err := loadScanSettings(&cfg); err != nil {
		errs = append(errs, err)
	}
	cfg.SnapshotCacheTTL = getDuration("SNAPSHOT_CACHE_TTL", 3*time.Second, &errs)
	cfg.ScanInterval = getDuration("SCAN_INTERVAL", 0, &errs)
	cfg.MaxBodyBytes = int64(getInt("MAX_BODY_BYTES", 1<<20, &errs))
	cfg.AutoMigrate = getBool("AUTO_MIGRATE", false, &errs)
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadDatabaseURL returns DATABASE_URL alone, for tools that only need the
// database (fleetctl migrate).
func LoadDatabaseURL() (string, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return "", errors.New("required environment variables not set: DATABASE_URL")
	}
	return url, nil
}

// LoadScan returns the subset of Config a one-off anomaly scan needs:
// DatabaseURL and the delay settings. JWT_SECRET is not required.
func LoadScan() (Config, error) {
	url, err := LoadDatabaseURL()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{DatabaseURL: url}
	if err := loadScanSettings(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadScanSettings fills the delay detection fields shared by Load and LoadScan.
func loadScanSettings(cfg *Config) error {
	var errs []error
	cfg.ExpectedDurationMinutes = getInt("EXPECTED_DURATION_MINUTES", 45, &errs)
	cfg.DefaultDelayToleranceMinutes = getInt("DEFAULT_DELAY_TOLERANCE_MINUTES", 15, &errs)
	cfg.ScanConcurrency = getInt("SCAN_CONCURRENCY", 4, &errs)
	return errors.Join(errs...)
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getInt parses a non-negative integer variable, appending to errs on failure.
func getInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a non-negative integer", key, v))
		return fallback
	}
	return n
}

// getDuration parses a Go duration such as "3s" or "1m30s".
func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a non-negative duration", key, v))
		return fallback
	}
	return d
}

func getBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return fallback
	}
	return b
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
