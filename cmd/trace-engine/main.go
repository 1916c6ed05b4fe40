package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ranscope/trace-engine/internal/config"
	"github.com/ranscope/trace-engine/internal/engine"
	"github.com/ranscope/trace-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.JSON)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting trace-engine",
		slog.Int("sources", len(cfg.Sources)),
		slog.String("output", cfg.Output.Dir))

	pipeline, err := engine.NewPipeline(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	doc, err := pipeline.Run(ctx)
	if err != nil {
		logger.Error("analysis run failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("analysis written",
		slog.String("dir", cfg.Output.Dir),
		slog.Int("entities", len(doc.Timelines)),
		slog.Int("episodes", len(doc.Episodes)))
}
