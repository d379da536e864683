// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the runtime settings shared by the bookstore binaries.
type Config struct {
	Port         string
	LogLevel     string
	ServiceName  string
	OrderIDStart int
	SeedCatalog  bool

	RateLimitRPS   float64
	RateLimitBurst int

	// Operator auth is disabled unless both are set.
	OperatorTokenHash string
	OperatorTokenSalt string

	OTLPEndpoint  string
	OTLPInsecure  bool
	TraceSampling float64
}

// AuthEnabled reports whether mutating HTTP routes require the operator token.
func (c Config) AuthEnabled() bool {
	return c.OperatorTokenHash != "" && c.OperatorTokenSalt != ""
}

// Load reads the configuration from the environment, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ServiceName:       getEnv("SERVICE_NAME", "bookstore"),
		OperatorTokenHash: getEnv("OPERATOR_TOKEN_HASH", ""),
		OperatorTokenSalt: getEnv("OPERATOR_TOKEN_SALT", ""),
		OTLPEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	var err error
	if cfg.OrderIDStart, err = strconv.Atoi(getEnv("ORDER_ID_START", "1000")); err != nil {
		return Config{}, fmt.Errorf("invalid ORDER_ID_START: %w", err)
	}
	if cfg.SeedCatalog, err = strconv.ParseBool(getEnv("SEED_CATALOG", "true")); err != nil {
		return Config{}, fmt.Errorf("invalid SEED_CATALOG: %w", err)
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "20"), 64); err != nil {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "40")); err != nil {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}
	if cfg.OTLPInsecure, err = strconv.ParseBool(getEnv("OTEL_EXPORTER_OTLP_INSECURE", "true")); err != nil {
		return Config{}, fmt.Errorf("invalid OTEL_EXPORTER_OTLP_INSECURE: %w", err)
	}
	if cfg.TraceSampling, err = strconv.ParseFloat(getEnv("OTEL_TRACE_SAMPLING", "1.0"), 64); err != nil {
		return Config{}, fmt.Errorf("invalid OTEL_TRACE_SAMPLING: %w", err)
	}

	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return Config{}, fmt.Errorf("rate limit must be positive, got %v rps burst %d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if (cfg.OperatorTokenHash == "") != (cfg.OperatorTokenSalt == "") {
		return Config{}, fmt.Errorf("OPERATOR_TOKEN_HASH and OPERATOR_TOKEN_SALT must be set together")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
