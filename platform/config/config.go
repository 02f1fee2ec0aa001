// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// ScraperConfig provides settings for the scraper service module.
type ScraperConfig interface {
	GetEnabledSources() []string
}

// CacheConfig provides settings for the search result cache.
type CacheConfig interface {
	GetRedisURL() string
	GetCacheTTL() time.Duration
}

// RateLimitConfig provides settings for per-IP request limiting.
type RateLimitConfig interface {
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
}

// ClientConfig provides settings for the search client.
type ClientConfig interface {
	GetScraperBaseURL() string
	GetClientMaxAttempts() int
	GetClientBaseDelay() time.Duration
	GetClientAttemptTimeout() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                  string
	HTTPAddr             string
	CORSAllowAll         bool
	CORSOrigins          []string
	EnabledSources       []string
	ScraperBaseURL       string
	ClientMaxAttempts    int
	ClientBaseDelay      time.Duration
	ClientAttemptTimeout time.Duration
	RedisURL             string
	CacheTTL             time.Duration
	RateLimitRPS         float64
	RateLimitBurst       int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// ScraperConfig implementation
func (c *Config) GetEnabledSources() []string { return c.EnabledSources }

// CacheConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetCacheTTL() time.Duration { return c.CacheTTL }

// RateLimitConfig implementation
func (c *Config) GetRateLimitRPS() float64 { return c.RateLimitRPS }
func (c *Config) GetRateLimitBurst() int   { return c.RateLimitBurst }

// ClientConfig implementation
func (c *Config) GetScraperBaseURL() string              { return c.ScraperBaseURL }
func (c *Config) GetClientMaxAttempts() int              { return c.ClientMaxAttempts }
func (c *Config) GetClientBaseDelay() time.Duration      { return c.ClientBaseDelay }
func (c *Config) GetClientAttemptTimeout() time.Duration { return c.ClientAttemptTimeout }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":3001"),
		CORSAllowAll:         corsAllowAll,
		CORSOrigins:          corsOrigins,
		EnabledSources:       splitCSV(getEnv("SCRAPER_SOURCES", "facebook-marketplace,poshmark")),
		ScraperBaseURL:       getEnv("SCRAPER_BASE_URL", "http://localhost:3001"),
		ClientMaxAttempts:    mustInt(getEnv("CLIENT_MAX_ATTEMPTS", "3")),
		ClientBaseDelay:      mustDuration(getEnv("CLIENT_BASE_DELAY", "1s")),
		ClientAttemptTimeout: mustDuration(getEnv("CLIENT_ATTEMPT_TIMEOUT", "30s")),
		RedisURL:             getEnv("REDIS_URL", ""),
		CacheTTL:             mustDuration(getEnv("CACHE_TTL", "5m")),
		RateLimitRPS:         mustFloat(getEnv("RATE_LIMIT_RPS", "10")),
		RateLimitBurst:       mustInt(getEnv("RATE_LIMIT_BURST", "20")),
	}

	if cfg.ClientMaxAttempts < 1 {
		return nil, fmt.Errorf("CLIENT_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.ClientBaseDelay <= 0 || cfg.ClientAttemptTimeout <= 0 {
		return nil, fmt.Errorf("CLIENT_BASE_DELAY and CLIENT_ATTEMPT_TIMEOUT must be positive durations")
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
