// Package config loads the service's environment-driven configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every environment-derived setting the service needs at
// startup. There is no config file: settings come from environment
// variables or built-in defaults. PoolIdleTimeout has no variable and
// always keeps its default.
type Config struct {
	DatabaseURL string

	LLMProvider string // "openai" or "anthropic"
	APIKey      string
	BaseURL     string
	ModelName   string

	ServiceAPIKey     string
	RequireServiceKey bool

	QueryTimeout    time.Duration
	RequestDeadline time.Duration
	PoolMaxConns    int32
	PoolIdleTimeout time.Duration

	DebugSQL bool

	SchemaPath    string
	PlanCachePath string

	ListenAddr string
	LogDir     string
}

// Load reads Config from the process environment, applying the defaults
// spelled out in the resource model (pool max 5, idle-timeout 10s,
// statement_timeout 60s, request deadline 120s).
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),

		LLMProvider: getenvDefault("LLM_PROVIDER", "openai"),
		APIKey:      os.Getenv("OPENAI_API_KEY"),
		BaseURL:     os.Getenv("LLM_BASE_URL"),
		ModelName:   getenvDefault("LLM_MODEL", "gpt-4o-mini"),

		ServiceAPIKey: os.Getenv("SERVICE_API_KEY"),

		PoolMaxConns:    5,
		PoolIdleTimeout: 10 * time.Second,
		QueryTimeout:    60 * time.Second,
		RequestDeadline: 120 * time.Second,

		SchemaPath:    getenvDefault("SCHEMA_PATH", "schema.yaml"),
		PlanCachePath: getenvDefault("PLAN_CACHE_PATH", "data/plancache.db"),

		ListenAddr: getenvDefault("LISTEN_ADDR", ":8080"),
		LogDir:     getenvDefault("LOG_DIR", "."),
	}

	if cfg.LLMProvider == "anthropic" {
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			cfg.APIKey = v
		}
	}

	if v := os.Getenv("DB_QUERY_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_QUERY_TIMEOUT_MS: %w", err)
		}
		cfg.QueryTimeout = time.Duration(ms) * time.Millisecond
	}

	if v := os.Getenv("REQUEST_DEADLINE_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REQUEST_DEADLINE_MS: %w", err)
		}
		cfg.RequestDeadline = time.Duration(ms) * time.Millisecond
	}

	if v := os.Getenv("DB_POOL_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_POOL_MAX_CONNS: %w", err)
		}
		cfg.PoolMaxConns = int32(n)
	}

	cfg.DebugSQL = parseBool(os.Getenv("DEBUG_SQL"))
	cfg.RequireServiceKey = parseBool(os.Getenv("REQUIRE_SERVICE_KEY"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s_API_KEY is required", upperProvider(cfg.LLMProvider))
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

func upperProvider(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC"
	default:
		return "OPENAI"
	}
}
