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

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/bomquote/internal/config"
	"github.com/JonMunkholm/bomquote/internal/core"
	"github.com/JonMunkholm/bomquote/internal/gateway"
	"github.com/JonMunkholm/bomquote/internal/logging"
	"github.com/JonMunkholm/bomquote/internal/quote"
	"github.com/JonMunkholm/bomquote/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"gateway", cfg.Gateway.Endpoint(),
		"gateway_max_concurrent", cfg.Gateway.MaxConcurrent,
		"display_mode", cfg.Wizard.DisplayMode,
		"auto_submit", cfg.Wizard.AutoSubmit,
		"quote_enabled", cfg.Quote.Enabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	store := core.NewStore(cfg.Wizard.SessionTTL, cfg.Wizard.DefaultPageSize)
	service := core.NewService(store, gateway.New(cfg.Gateway.Endpoint(), cfg.Gateway.Timeout), core.Options{
		Mode:            cfg.Wizard.DisplayMode,
		PreviewRows:     cfg.Upload.PreviewRows,
		AutoSubmit:      cfg.Wizard.AutoSubmit,
		AutoSubmitDelay: cfg.Wizard.AutoSubmitDelay,
		MaxConcurrent:   cfg.Gateway.MaxConcurrent,
		MaxWait:         cfg.Gateway.MaxWait,
	})

	// Leave the interface nil when quotes are off so the server hides the flow
	var quotes web.QuoteSender
	if cfg.Quote.Enabled() {
		quotes = quote.New(cfg.Quote.Endpoint(), cfg.Quote.Timeout)
		slog.Info("quote requests enabled", "endpoint", cfg.Quote.Endpoint())
	}

	server := web.NewServer(service, quotes, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go store.RunJanitor(jobCtx, sweepInterval(cfg.Wizard.SessionTTL))

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Wait for pricing calls that outlived their requests
		status := service.LimiterStatus()
		if status.Active > 0 {
			slog.Info("waiting for pricing calls to complete", "active", status.Active)
			if err := service.WaitForCalls(shutdownCtx); err != nil {
				slog.Warn("pricing calls did not complete in time", "error", err)
			} else {
				slog.Info("all pricing calls completed")
			}
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}

// sweepInterval checks for idle sessions a few times per TTL.
func sweepInterval(ttl time.Duration) time.Duration {
	iv := ttl / 4
	if iv < time.Minute {
		iv = time.Minute
	}
	return iv
}
