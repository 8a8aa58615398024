package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	server "tasktracker/internal/adapter/http"
	"tasktracker/internal/adapter/telemetry"
	"tasktracker/pkg/config"
	"tasktracker/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()

	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	if err := run(ctx, cfg); err != nil {
		stop()
		log.Fatal(err)
	}
}

// run wires logging, telemetry and the HTTP server, and blocks until ctx is
// done or the server fails. Cleanups have run by the time it returns.
func run(ctx context.Context, cfg *config.AppConfig) error {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slogger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	l, err := logger.NewLokiLogger(cfg.OTel.ServiceName, cfg.LokiURL)

	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	defer l.Close()

	tel, err := telemetry.NewContainer(ctx, cfg, slogger)

	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Telemetry shutdown failed", "error", err)
		}
	}()

	tel.AppMetrics.StartSystemMetrics(ctx)

	if err := server.StartServer(ctx, cfg, tel.NewTelemetryProbe(slogger), tel.AppMetrics, l); err != nil {
		l.Zap().Error("Server stopped with error", zap.Error(err))
		return fmt.Errorf("server: %w", err)
	}

	l.Zap().Info("Shut down gracefully")

	return nil
}
