package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/atxcivic/fire-analysis-etl/internal/adapter/httpadapter"
	"github.com/atxcivic/fire-analysis-etl/internal/analyze"
	"github.com/atxcivic/fire-analysis-etl/internal/clean"
	"github.com/atxcivic/fire-analysis-etl/internal/config"
	"github.com/atxcivic/fire-analysis-etl/internal/crosswalk"
	"github.com/atxcivic/fire-analysis-etl/internal/download"
	"github.com/atxcivic/fire-analysis-etl/internal/observability"
	"github.com/atxcivic/fire-analysis-etl/internal/pipeline"
	"github.com/atxcivic/fire-analysis-etl/internal/visualize"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client := download.NewClient(cfg.HTTPTimeout, cfg.MaxRetries, logger)

	p := pipeline.New(logger, metrics,
		download.NewStage(cfg, client, logger, metrics),
		clean.NewStage(cfg, logger, metrics),
		crosswalk.NewStage(cfg, logger, metrics),
		analyze.NewStage(cfg, logger, metrics),
		visualize.NewStage(cfg, logger, metrics),
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run the pipeline. On success the process keeps serving /metrics and
	// /readyz until terminated.
	runErr := make(chan error, 1)
	go func() {
		runErr <- p.Run(ctx)
	}()

	exitCode := 0
	select {
	case err := <-runErr:
		if err != nil {
			logger.Error("pipeline error", "error", err)
			exitCode = 1
		} else {
			logger.Info("pipeline complete", "outputs_dir", cfg.OutputsDir)
			<-ctx.Done()
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	os.Exit(exitCode)
}
