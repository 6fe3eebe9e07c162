package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration. Subsystem tuning (rate limit
// classes, tier profiles, fraud weights) lives in the owning package's
// config; this struct only wires infrastructure.
type Server struct {
	Addr     string
	LogLevel string

	// DatabaseURL enables the Postgres-backed stores when set. Empty means
	// the in-memory stores are used (dev and test).
	DatabaseURL string

	// RedisURL enables the shared rate-limit window store. Empty means
	// per-process windows, which makes limits per-instance rather than
	// global in a multi-instance deployment.
	RedisURL string

	// KafkaBrokers enables the security event stream when set.
	KafkaBrokers    string
	KafkaEventTopic string

	// StepUpSigningKey signs step-up assertion tokens.
	StepUpSigningKey string
	StepUpTTL        time.Duration

	RequestTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:             getEnv("BANKGUARD_ADDR", ":8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		KafkaBrokers:     os.Getenv("KAFKA_BROKERS"),
		KafkaEventTopic:  getEnv("KAFKA_EVENT_TOPIC", "bankguard.security.events"),
		StepUpSigningKey: getEnv("STEPUP_SIGNING_KEY", "dev-secret-key-change-in-production"),
		StepUpTTL:        5 * time.Minute,
		RequestTimeout:   30 * time.Second,
	}

	if ttl := os.Getenv("STEPUP_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.StepUpTTL = d
		}
	}
	if t := os.Getenv("REQUEST_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			cfg.RequestTimeout = d
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetEnvInt reads an integer environment variable with a fallback.
func GetEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
