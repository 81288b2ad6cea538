package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	ListenAddr  string
	DatabaseURL string

	// Environment is stamped onto every analytics event.
	Environment string

	// JWTSecret and JWTIssuer verify session tokens minted by the
	// external identity provider.
	JWTSecret string
	JWTIssuer string

	// AdminUser/AdminPassword protect the /admin endpoints via HTTP
	// basic auth. Admin access is disabled when the password is empty.
	AdminUser     string
	AdminPassword string

	// RedisAddr enables the resolved-tier cache when non-empty.
	RedisAddr string

	// TierCacheTTL bounds how stale a cached tier may be.
	TierCacheTTL time.Duration
}

// Load reads configuration from environment variables and applies
// defaults.
func Load() *Config {
	cfg := &Config{
		ListenAddr:    getenv("APP_LISTEN_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("APP_DATABASE_URL"),
		Environment:   getenv("APP_ENVIRONMENT", "production"),
		JWTSecret:     os.Getenv("APP_JWT_SECRET"),
		JWTIssuer:     getenv("APP_JWT_ISSUER", "innerlab-auth"),
		AdminUser:     getenv("APP_ADMIN_USER", "admin"),
		AdminPassword: os.Getenv("APP_ADMIN_PASSWORD"),
		RedisAddr:     os.Getenv("APP_REDIS_ADDR"),
		TierCacheTTL:  60 * time.Second,
	}

	if v := os.Getenv("APP_TIER_CACHE_TTL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.TierCacheTTL = time.Duration(secs) * time.Second
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
