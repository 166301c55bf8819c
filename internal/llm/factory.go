// Package llm provides chat completion backends for the debate engine.
package llm

import (
	"fmt"
	"log/slog"

	"github.com/ashureev/debate-labs/internal/debate"
)

// Provider names accepted by New.
const (
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Config selects and configures a backend.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	SiteURL  string
	AppName  string
}

// New returns the backend named by cfg.Provider. An OpenRouter provider
// without an API key yields a Disabled backend so the server still starts.
// The boolean reports whether completions can succeed.
func New(cfg Config, logger *slog.Logger) (debate.Backend, bool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Provider {
	case ProviderOpenRouter, "":
		if cfg.APIKey == "" {
			logger.Warn("OPENROUTER_API_KEY is not set, completion requests will fail")
			return Disabled{}, false, nil
		}
		return NewOpenRouter(cfg, logger), true, nil
	case ProviderMock:
		logger.Info("using mock completion backend")
		return NewMock(0), true, nil
	default:
		return nil, false, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
