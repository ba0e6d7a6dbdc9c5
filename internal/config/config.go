// Package config loads process settings from the environment and the
// per-world optimizer tuning from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvDBPath          = "PLANNER_DB_PATH"
	EnvWorldConfig     = "PLANNER_WORLD_CONFIG"
	EnvLogLevel        = "PLANNER_LOG_LEVEL"
	EnvLogFormat       = "PLANNER_LOG_FORMAT"
	EnvHTTPAddr        = "PLANNER_HTTP_ADDR"
	EnvCatalogTTL      = "PLANNER_CATALOG_TTL"
	EnvCatalogCacheCap = "PLANNER_CATALOG_CACHE_SIZE"
)

// Config holds the process configuration.
type Config struct {
	DBPath           string
	WorldConfigPath  string // empty means DefaultWorld
	LogLevel         string
	LogFormat        string
	HTTPAddr         string
	CatalogTTL       time.Duration
	CatalogCacheSize int
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// A missing .env file is fine, real env vars may be set instead.
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:          getEnv(EnvDBPath, "data/planner/planner.db"),
		WorldConfigPath: getEnv(EnvWorldConfig, ""),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		LogFormat:       getEnv(EnvLogFormat, "text"),
		HTTPAddr:        getEnv(EnvHTTPAddr, ":8080"),
	}

	ttl, err := time.ParseDuration(getEnv(EnvCatalogTTL, "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid %s value: %w", EnvCatalogTTL, err)
	}
	if ttl < 0 {
		return nil, fmt.Errorf("invalid %s value: must not be negative", EnvCatalogTTL)
	}
	cfg.CatalogTTL = ttl

	size, err := strconv.Atoi(getEnv(EnvCatalogCacheCap, "256"))
	if err != nil {
		return nil, fmt.Errorf("invalid %s value: %w", EnvCatalogCacheCap, err)
	}
	cfg.CatalogCacheSize = size

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
