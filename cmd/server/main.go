package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pulsemon/internal/app"
	"pulsemon/internal/config"
)

func main() {
	cfg, err := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	if err != nil {
		logger.Error("config invalid", "err", err)
		os.Exit(1)
	}
	logger.Info("starting pulsemon", "addr", cfg.Addr, "source", cfg.SourceMode, "telemetry", cfg.TelemetryURL, "archive", cfg.ArchivePath)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("init failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := a.Run(ctx); err != nil {
		logger.Error("shutdown with error", "err", err)
		os.Exit(1)
	}
}
