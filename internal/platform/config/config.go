// Package config assembles the immutable process configuration once at start.
// Nothing else reads the environment; everything downstream receives this
// struct or a field of it.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures workflow service configuration.
type Config struct {
	// Addr is the app server listen address.
	Addr string
	// MetricsAddr serves prometheus metrics separately from the app.
	MetricsAddr string

	// JWTVerifyKey verifies bearer tokens issued by the auth service.
	JWTVerifyKey string

	// Upstream base URLs.
	RecordStoreURL    string
	SearchURL         string
	UserManagementURL string
	NotificationURL   string

	// UpstreamTimeout bounds every upstream HTTP call, including the
	// detached persist/index path, which has no other deadline.
	UpstreamTimeout time.Duration

	// RedisURL enables the actor details cache when non-empty.
	RedisURL      string
	ActorCacheTTL time.Duration

	// DatabaseURL is used by the migration runner only.
	DatabaseURL string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:              envOr("WORKFLOW_ADDR", ":5050"),
		MetricsAddr:       envOr("METRICS_ADDR", ":9090"),
		JWTVerifyKey:      envOr("JWT_VERIFY_KEY", "dev-secret-key-change-in-production"),
		RecordStoreURL:    envOr("RECORD_STORE_URL", "http://localhost:3447"),
		SearchURL:         envOr("SEARCH_URL", "http://localhost:9200"),
		UserManagementURL: envOr("USER_MANAGEMENT_URL", "http://localhost:3030"),
		NotificationURL:   envOr("NOTIFICATION_URL", "http://localhost:2020"),
		UpstreamTimeout:   envDurationOr("UPSTREAM_TIMEOUT_SECONDS", 30*time.Second),
		RedisURL:          os.Getenv("REDIS_URL"),
		ActorCacheTTL:     envDurationOr("ACTOR_CACHE_TTL_SECONDS", 5*time.Minute),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
