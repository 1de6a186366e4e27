package app

import (
	"log/slog"
	"time"

	"pulsemon/internal/alerts"
	"pulsemon/internal/bus"
	"pulsemon/internal/config"
	"pulsemon/internal/monitor"
	"pulsemon/internal/sampler"
)

// NewMonitor builds the sampling strategy and monitor described by cfg.
// pulsetop and the server share it.
func NewMonitor(cfg config.Config, events *bus.Bus, logger *slog.Logger) (*monitor.Monitor, error) {
	mode, err := sampler.ParseMode(cfg.SourceMode)
	if err != nil {
		return nil, err
	}
	dedup, err := alerts.ParseDedupPolicy(cfg.DedupPolicy)
	if err != nil {
		return nil, err
	}
	smp, syn := sampler.New(sampler.Options{
		Mode:     mode,
		Endpoint: cfg.TelemetryURL,
		Timeout:  cfg.TelemetryTO,
		Seed:     uint64(time.Now().UnixNano()),
	}, logger.With("module", "sampler"))

	return monitor.New(monitor.Config{
		Interval:      cfg.RefreshEvery,
		MaxDataPoints: cfg.MaxDataPoints,
		MaxAlerts:     cfg.MaxAlerts,
		Thresholds:    cfg.Thresholds,
		Dedup:         dedup,
		WarmupPoints:  cfg.WarmupPoints,
	}, smp, syn, events, logger.With("module", "monitor"))
}
