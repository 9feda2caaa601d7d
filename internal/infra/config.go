package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds process level settings loaded from environment variables.
// Sponsor data settings live in internal/config.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	DBMaxConns       int
	RefreshToken     string
	CacheBackend     string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RunTimeout       time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
}

// Cache backends.
const (
	CacheBackendFile     = "file"
	CacheBackendPostgres = "postgres"
)

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DBMaxConns:       getEnvInt("DB_MAX_CONNS", 4),
		RefreshToken:     os.Getenv("SPONSORKIT_REFRESH_TOKEN"),
		CacheBackend:     strings.ToLower(getEnv("SPONSORKIT_CACHE_BACKEND", CacheBackendFile)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RunTimeout:       time.Second * time.Duration(getEnvInt("SPONSORKIT_RUN_TIMEOUT_SECONDS", 300)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 6),
		CORSOrigins:      splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	switch cfg.CacheBackend {
	case CacheBackendFile:
	case CacheBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres cache backend")
		}
	default:
		return nil, fmt.Errorf("unknown SPONSORKIT_CACHE_BACKEND %q", cfg.CacheBackend)
	}

	return cfg, nil
}

// HasDatabase reports whether a Postgres connection is configured.
func (c *Config) HasDatabase() bool {
	return c != nil && c.DatabaseURL != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
