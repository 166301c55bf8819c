package config

import (
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/debate-labs/internal/store"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "FRONTEND_URL", "APP_ENV", "CORS_ORIGINS", "MAX_REQUEST_BODY_SIZE",
		"LLM_PROVIDER", "OPENROUTER_API_KEY", "OPENROUTER_BASE_URL", "LLM_MODEL",
		"SITE_URL", "APP_NAME", "STORE_DRIVER", "STORE_PATH", "DB_PATH",
		"RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW",
	} {
		unsetEnv(t, key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.LLM.Model != "google/gemma-3-27b-it:free" {
		t.Fatalf("unexpected default model %q", cfg.LLM.Model)
	}
	if cfg.LLM.BaseURL != "https://openrouter.ai/api/v1" {
		t.Fatalf("unexpected base url %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.SiteURL != "http://localhost:5000" || cfg.LLM.AppName != "DebateApp" {
		t.Fatalf("unexpected attribution %q %q", cfg.LLM.SiteURL, cfg.LLM.AppName)
	}
	if cfg.Store.Driver != store.DriverFile || cfg.Store.Path != "./data/sessions.json" {
		t.Fatalf("unexpected store config %+v", cfg.Store)
	}
	if cfg.RateLimit.Requests != 20 || cfg.RateLimit.Window != time.Minute {
		t.Fatalf("unexpected rate limit %+v", cfg.RateLimit)
	}
	if cfg.MaxRequestBodySize != 1<<20 {
		t.Fatalf("unexpected body limit %d", cfg.MaxRequestBodySize)
	}
	if !slices.Equal(cfg.CORSOrigins, []string{"*"}) {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
	if !cfg.IsDevelopment() {
		t.Fatal("expected development mode without FRONTEND_URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("DB_PATH", "/tmp/d.db")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("RATE_LIMIT_REQUESTS", "not-a-number")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("FRONTEND_URL", "https://debate.example")
	t.Setenv("APP_ENV", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9000" || cfg.Store.Driver != store.DriverSQLite || cfg.Store.DBPath != "/tmp/d.db" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.RateLimit.Window != 30*time.Second {
		t.Fatalf("expected 30s window, got %s", cfg.RateLimit.Window)
	}
	if cfg.RateLimit.Requests != 20 {
		t.Fatalf("invalid int should fall back to default, got %d", cfg.RateLimit.Requests)
	}
	want := []string{"https://a.example", "https://b.example", "https://debate.example"}
	if got := cfg.AllowedOrigins(); !slices.Equal(got, want) {
		t.Fatalf("AllowedOrigins() = %v, want %v", got, want)
	}
	if cfg.IsDevelopment() {
		t.Fatal("expected production mode for a public FRONTEND_URL")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Port:               "8080",
			MaxRequestBodySize: 1024,
			LLM:                LLMConfig{Model: "m"},
			Store:              StoreConfig{Driver: store.DriverFile, Path: "s.json"},
			RateLimit:          RateLimitConfig{Requests: 1, Window: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty port", mutate: func(c *Config) { c.Port = "" }, wantErr: "PORT"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "redis" }, wantErr: "STORE_DRIVER"},
		{name: "sqlite without path", mutate: func(c *Config) { c.Store.Driver = store.DriverSQLite }, wantErr: "DB_PATH"},
		{name: "zero window", mutate: func(c *Config) { c.RateLimit.Window = 0 }, wantErr: "RATE_LIMIT_WINDOW"},
		{name: "empty model", mutate: func(c *Config) { c.LLM.Model = "" }, wantErr: "LLM_MODEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestIsDevelopmentAppEnv(t *testing.T) {
	t.Parallel()

	cfg := Config{AppEnv: "production"}
	if cfg.IsDevelopment() {
		t.Fatal("APP_ENV=production should not be development")
	}
	cfg = Config{AppEnv: "Development", FrontendURL: "https://debate.example"}
	if !cfg.IsDevelopment() {
		t.Fatal("APP_ENV=development should win over FRONTEND_URL")
	}
}

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}
