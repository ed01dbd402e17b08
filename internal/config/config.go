package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Storage. Empty DatabaseURL selects the in-memory stores (dev mode).
	DatabaseURL string

	// External checks
	RegistryAPIURL   string
	SanctionsAPIURL  string
	UseStubChecks    bool
	HTTPTimeout      time.Duration
	MaxRetries       int
	InitialBackoff   time.Duration
	MaxConcurrency   int

	// Background verifier
	VerifyWorkers   int
	VerifyQueueSize int
	VerifyTimeout   time.Duration
	SweepInterval   time.Duration
	SweepDeadline   time.Duration

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// JWT / Auth. The signing secret is process configuration; the default
	// exists for local development only.
	JWTSecret    string
	JWTAccessTTL time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RegistryAPIURL:  getEnv("REGISTRY_API_URL", "http://localhost:8091"),
		SanctionsAPIURL: getEnv("SANCTIONS_API_URL", "http://localhost:8092"),
		UseStubChecks:   getEnv("USE_STUB_CHECKS", "true") == "true",
		HTTPTimeout:     getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		InitialBackoff:  getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 16),

		VerifyWorkers:   getEnvInt("VERIFY_WORKERS", 4),
		VerifyQueueSize: getEnvInt("VERIFY_QUEUE_SIZE", 256),
		VerifyTimeout:   getEnvDuration("VERIFY_TIMEOUT", 30*time.Second),
		SweepInterval:   getEnvDuration("PENDING_SWEEP_INTERVAL", time.Minute),
		SweepDeadline:   getEnvDuration("PENDING_SWEEP_DEADLINE", 5*time.Minute),

		CacheTTL: getEnvDuration("CACHE_TTL", time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		JWTSecret:    getEnv("JWT_SECRET", "kyc-default-dev-secret-change-me"),
		JWTAccessTTL: getEnvDuration("JWT_ACCESS_TTL", 30*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
