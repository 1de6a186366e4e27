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

	"pulsemon/internal/collector"
	"pulsemon/internal/config"
	"pulsemon/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	if err != nil {
		logger.Error("config invalid", "err", err)
		os.Exit(1)
	}

	svc := collector.NewService(collector.NewHostCollector(), uint64(time.Now().UnixNano()), logger.With("module", "collector"))
	srv := &http.Server{
		Addr:              cfg.TelemetryAddr,
		Handler:           telemetry.NewHandler(svc, logger.With("module", "telemetry")).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("telemetryd listening", "addr", cfg.TelemetryAddr, "version", telemetry.Version)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("telemetryd failed", "err", err)
		os.Exit(1)
	}
}
