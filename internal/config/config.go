// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/debate-labs/internal/store"
)

// Config holds all application configuration.
type Config struct {
	Port               string
	FrontendURL        string
	AppEnv             string
	CORSOrigins        []string
	MaxRequestBodySize int64
	LLM                LLMConfig
	Store              StoreConfig
	RateLimit          RateLimitConfig
}

// LLMConfig configures the completion backend.
type LLMConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	SiteURL  string
	AppName  string
}

// StoreConfig selects where debate sessions are persisted.
type StoreConfig struct {
	Driver string
	Path   string // JSON snapshot file for the file driver
	DBPath string // database file for the sqlite driver
}

// RateLimitConfig bounds message requests per caller.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		FrontendURL:        getEnv("FRONTEND_URL", ""),
		AppEnv:             getEnv("APP_ENV", ""),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "*")),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		LLM: LLMConfig{
			Provider: strings.ToLower(getEnv("LLM_PROVIDER", "openrouter")),
			APIKey:   getEnv("OPENROUTER_API_KEY", ""),
			BaseURL:  getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:    getEnv("LLM_MODEL", "google/gemma-3-27b-it:free"),
			SiteURL:  getEnv("SITE_URL", "http://localhost:5000"),
			AppName:  getEnv("APP_NAME", "DebateApp"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", store.DriverFile)),
			Path:   getEnv("STORE_PATH", "./data/sessions.json"),
			DBPath: getEnv("DB_PATH", "./data/debate.db"),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM_MODEL cannot be empty")
	}
	switch c.Store.Driver {
	case store.DriverFile:
		if c.Store.Path == "" {
			return fmt.Errorf("STORE_PATH cannot be empty")
		}
	case store.DriverSQLite:
		if c.Store.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", store.DriverFile, store.DriverSQLite, c.Store.Driver)
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if c.AppEnv != "" {
		return strings.EqualFold(c.AppEnv, "development")
	}
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns CORS origins, adding FrontendURL when set.
func (c *Config) AllowedOrigins() []string {
	origins := append([]string(nil), c.CORSOrigins...)
	if c.FrontendURL != "" {
		for _, o := range origins {
			if o == c.FrontendURL {
				return origins
			}
		}
		origins = append(origins, c.FrontendURL)
	}
	return origins
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
