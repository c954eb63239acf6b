// Package config handles application configuration.
//
// Go Pattern: Configuration via environment variables with sensible defaults.
// A .env file is read first when present, so local development does not need
// exported variables. Real environment variables always win over the file.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "dev-jwt-secret-change-in-production"

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    string
	GinMode string // "debug", "release", or "test"

	// Database settings. An empty DatabaseURL runs without load history.
	DatabaseURL    string
	MigrationsPath string

	// Documents offered by the viewer. The primary one is opened for every
	// new session unless the caller passes ?url=.
	PrimaryPDFURL   string
	SecondaryPDFURL string

	// Viewer behavior
	SearchDebounce time.Duration
	SessionTTL     time.Duration

	// PDF loading
	MaxPDFSize         int64 // bytes
	FetchTimeout       time.Duration
	ExtractConcurrency int
	// Internal networks remote fetches may reach anyway. Empty means public
	// addresses only.
	FetchAllowedNetworks []netip.Prefix

	// Worker settings
	WorkerCount  int // Number of background worker goroutines
	JobQueueSize int // Size of the in-memory job queue buffer

	// Rate limiting
	RateLimit int // Requests per minute per client IP
	// Proxies whose X-Forwarded-For is believed. Empty means the client IP
	// is always the connection's peer address.
	TrustedProxies []string

	// Session tokens
	JWTSecret string

	// CORS
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
//
// Go Pattern: Functions that can fail return (value, error). The caller
// decides whether a bad configuration is fatal.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),

		PrimaryPDFURL:   getEnv("PRIMARY_PDF_URL", "https://arxiv.org/pdf/1708.08021.pdf"),
		SecondaryPDFURL: getEnv("SECONDARY_PDF_URL", "https://arxiv.org/pdf/1604.02480.pdf"),

		SearchDebounce: getEnvDuration("SEARCH_DEBOUNCE_MS", time.Millisecond, 500*time.Millisecond),
		SessionTTL:     getEnvDuration("SESSION_TTL_MINUTES", time.Minute, 60*time.Minute),

		MaxPDFSize:         int64(getEnvInt("MAX_PDF_SIZE_MB", 50)) << 20,
		FetchTimeout:       getEnvDuration("FETCH_TIMEOUT_SECONDS", time.Second, 30*time.Second),
		ExtractConcurrency: getEnvInt("EXTRACT_CONCURRENCY", 4),

		WorkerCount:  getEnvInt("WORKER_COUNT", 3),
		JobQueueSize: getEnvInt("JOB_QUEUE_SIZE", 100),

		RateLimit:      getEnvInt("RATE_LIMIT", 120),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		JWTSecret: getEnv("JWT_SECRET", defaultJWTSecret),

		// CORS — in production, set this to your frontend URL
		AllowedOrigins: []string{
			getEnv("CORS_ORIGIN", "http://localhost:5173"),
		},
	}

	if cfg.MaxPDFSize <= 0 {
		return nil, fmt.Errorf("MAX_PDF_SIZE_MB must be positive")
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("WORKER_COUNT must be at least 1")
	}

	for _, raw := range getEnvList("FETCH_ALLOWED_NETWORKS") {
		prefix, err := parsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("FETCH_ALLOWED_NETWORKS: %w", err)
		}
		cfg.FetchAllowedNetworks = append(cfg.FetchAllowedNetworks, prefix)
	}
	for _, raw := range cfg.TrustedProxies {
		if _, err := parsePrefix(raw); err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
	}

	// Security: in release mode, we refuse to start with the default secret.
	if cfg.GinMode == "release" && cfg.JWTSecret == defaultJWTSecret {
		return nil, fmt.Errorf("JWT_SECRET must be set in production; refusing to start with default secret")
	}

	return cfg, nil
}

// getEnv reads an environment variable with a fallback default.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvInt reads an integer environment variable with a fallback.
func getEnvInt(key string, fallback int) int {
	str := getEnv(key, "")
	if str == "" {
		return fallback
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return fallback
	}
	return val
}

// getEnvList reads a comma-separated list, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parsePrefix accepts a CIDR ("10.0.0.0/8") or a single address.
func parsePrefix(raw string) (netip.Prefix, error) {
	if strings.Contains(raw, "/") {
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid network %q", raw)
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid address %q", raw)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// getEnvDuration reads an integer count of unit from the environment.
// Negative values fall back to the default; zero is kept (it disables the
// behavior for timeouts and TTLs that treat zero as "off").
func getEnvDuration(key string, unit, fallback time.Duration) time.Duration {
	n := getEnvInt(key, -1)
	if n < 0 {
		return fallback
	}
	return time.Duration(n) * unit
}
