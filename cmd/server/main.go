package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jerome00253/RIB-Factory/internal/analysis"
	"github.com/jerome00253/RIB-Factory/internal/config"
	"github.com/jerome00253/RIB-Factory/internal/handler"
	"github.com/jerome00253/RIB-Factory/internal/metrics"
	"github.com/jerome00253/RIB-Factory/internal/queue"
	"github.com/jerome00253/RIB-Factory/internal/server"
	"github.com/jerome00253/RIB-Factory/internal/service"
	"github.com/jerome00253/RIB-Factory/internal/storage"
	"github.com/jerome00253/RIB-Factory/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.New(cfg.Logging.Level)
	defer log.Sync()

	ctx := context.Background()
	log.Info(ctx, "Starting application")

	store := storage.NewResultStore()
	log.Info(ctx, "Result store initialized")

	m := metrics.New()

	analyzer := analysis.New(cfg.Analyzer.BaseURL, cfg.Analyzer.Timeout, log, m)
	log.Info(ctx, "Analysis client initialized",
		"base_url", cfg.Analyzer.BaseURL,
	)

	q := queue.New(analyzer, store, log, m)
	log.Info(ctx, "Processing queue initialized")

	scanService := service.NewScanService(store, q, log, cfg.Batch.MaxSize)
	log.Info(ctx, "Services initialized")

	scanHandler := handler.NewScanHandler(scanService, log)
	healthHandler := handler.NewHealthHandler()
	log.Info(ctx, "Handlers initialized")

	srv := server.New(cfg, log, m, scanHandler, healthHandler)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal(ctx, "Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	log.Info(ctx, "Application started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "Received shutdown signal")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown in order:
	// 1. Stop accepting new HTTP requests
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "HTTP server shutdown error",
			"error", err,
		)
	}

	// 2. Let the queue drain the scans already picked up
	if err := q.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "Queue shutdown error",
			"error", err,
		)
	}

	log.Info(ctx, "Application stopped gracefully")
}
