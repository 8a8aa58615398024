package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tasktracker/internal/adapter/http/routes"
	"tasktracker/internal/core/port"
	"tasktracker/internal/core/telemetry"
	"tasktracker/pkg/config"
	"tasktracker/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// StartServer serves the API until ctx is cancelled, then drains in-flight
// requests and closes the store.
func StartServer(ctx context.Context, cfg *config.AppConfig, probe port.Telemetry, metrics *telemetry.AppMetrics, l *logger.LokiLogger) error {
	container, err := NewContainer(ctx, cfg, probe, metrics, l)
	if err != nil {
		return err
	}
	defer container.Close()

	router := routes.SetupRouterWithConfig(routes.HandlersConfig{
		TaskHandler: container.TaskHandler,
	}, metrics, l, cfg)

	slog.Info("Server starting",
		"port", cfg.HTTP.Port,
		"environment", cfg.Environment,
		"database_driver", cfg.Database.Driver,
		"cache_enabled", cfg.CacheEnabled(),
		"rate_limit_enabled", cfg.RateLimitEnabled,
		"https_enforced", cfg.EnforceHTTPS)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("Server failed to start", "error", err)
			return fmt.Errorf("listen: %w", err)
		}
		return nil

	case <-ctx.Done():
		slog.Info("Server shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
