package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// Pending configures the deferred-action queue.
type Pending struct {
	KeyPrefix           string
	TTL                 time.Duration
	DispatchConcurrency int
}

// Redis configures the optional Redis backend. An empty URL means Redis is
// not configured.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Postgres configures the optional Postgres backend. An empty DSN means
// Postgres is not configured.
type Postgres struct {
	DSN string
}

// Reviews configures the external reviews API client. An empty base URL
// selects the mock dispatcher.
type Reviews struct {
	BaseURL string
}

// Config is the full process configuration.
type Config struct {
	Server   Server
	Pending  Pending
	Redis    Redis
	Postgres Postgres
	Reviews  Reviews
}

// FromEnv builds the configuration from environment variables so main stays
// lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envOr("PENDING_ADDR", ":8080"),
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Pending: Pending{
			KeyPrefix:           envOr("PENDING_KEY_PREFIX", "pending_action_"),
			TTL:                 envDuration("PENDING_TTL", 30*time.Minute),
			DispatchConcurrency: envInt("PENDING_DISPATCH_CONCURRENCY", 8),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: Postgres{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Reviews: Reviews{
			BaseURL: os.Getenv("REVIEWS_API_URL"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
