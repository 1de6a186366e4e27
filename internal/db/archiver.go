package db

import (
	"context"
	"log/slog"
	"time"

	"pulsemon/internal/bus"
	"pulsemon/internal/models"
)

// Archiver persists recorded samples and raised alerts. It is a bus
// subscriber, so a slow disk never holds up the monitor cycle.
type Archiver struct {
	repo    *Repository
	log     *slog.Logger
	timeout time.Duration
}

func NewArchiver(repo *Repository, logger *slog.Logger) *Archiver {
	return &Archiver{repo: repo, log: logger, timeout: 5 * time.Second}
}

func (a *Archiver) Handle(ev bus.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	switch p := ev.Payload.(type) {
	case models.Sample:
		if err := a.repo.InsertSample(ctx, p); err != nil {
			a.log.Error("archive sample failed", "err", err)
		}
	case models.Alert:
		if err := a.repo.InsertAlerts(ctx, []models.Alert{p}); err != nil {
			a.log.Error("archive alert failed", "err", err, "alert_id", p.ID)
		}
	}
}
