// Debate Labs - AI debate server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/debate-labs/internal/api"
	"github.com/ashureev/debate-labs/internal/config"
	"github.com/ashureev/debate-labs/internal/debate"
	"github.com/ashureev/debate-labs/internal/identity"
	"github.com/ashureev/debate-labs/internal/llm"
	"github.com/ashureev/debate-labs/internal/middleware"
	"github.com/ashureev/debate-labs/internal/store"
	"github.com/ashureev/debate-labs/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "store", cfg.Store.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	backing, err := store.Open(ctx, store.Options{
		Driver: cfg.Store.Driver,
		Path:   cfg.Store.Path,
		DBPath: cfg.Store.DBPath,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	sessions := store.NewSerialized(backing)
	defer func() {
		if closeErr := sessions.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()
	slog.Info("Session store ready", "sessions", len(sessions.Load(ctx)))

	backend, aiEnabled, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		SiteURL:  cfg.LLM.SiteURL,
		AppName:  cfg.LLM.AppName,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize completion backend", "error", err)
		os.Exit(1)
	}
	slog.Info("Completion backend ready", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model, "ai_enabled", aiEnabled)

	// Initialize services.
	ctrl := debate.NewController(sessions, debate.NewPipeline(backend, logger), cfg.LLM.Model, logger)
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit.Requests, cfg.RateLimit.Window)

	// Initialize handlers.
	debateHandler := api.NewDebateHandler(ctrl, aiEnabled, cfg.MaxRequestBodySize, logger)
	origins := cfg.AllowedOrigins()
	wsHandler := api.NewWebSocketHandler(ctrl, api.OriginPatterns(origins, cfg.IsDevelopment()), limiter, logger)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(origins))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	debateHandler.RegisterRoutes(r, limiter.Middleware)

	// WebSocket endpoint.
	r.Get("/ws/debate", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler(cfg.IsDevelopment()))

	// Create server.
	// Note: streamed replies require no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
