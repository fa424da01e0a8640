package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/atxcivic/fire-analysis-etl/internal/config"
	"github.com/atxcivic/fire-analysis-etl/internal/download"
	"github.com/atxcivic/fire-analysis-etl/internal/observability"
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
	stage := download.NewStage(cfg, client, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := stage.Run(ctx); err != nil {
		logger.Error("download stage failed", "error", err)
		os.Exit(1)
	}
	logger.Info("download stage complete", "raw_dir", cfg.RawDir)
}
