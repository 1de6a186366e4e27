package retention

import (
	"context"
	"log/slog"
	"time"
)

// Pruner deletes archived rows older than a cutoff.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) error
}

type Service struct {
	repo          Pruner
	retentionDays int
	log           *slog.Logger
	now           func() time.Time
}

func NewService(repo Pruner, days int, logger *slog.Logger) *Service {
	if days <= 0 {
		days = 14
	}
	return &Service{repo: repo, retentionDays: days, log: logger, now: time.Now}
}

func (s *Service) Cutoff() time.Time {
	return s.now().UTC().AddDate(0, 0, -s.retentionDays)
}

func (s *Service) Run(ctx context.Context) {
	cutoff := s.Cutoff()
	if err := s.repo.DeleteOlderThan(ctx, cutoff); err != nil {
		s.log.Error("retention cleanup failed", "err", err)
	} else {
		s.log.Info("retention cleanup completed", "cutoff", cutoff)
	}
}

// Loop prunes immediately and then every interval until ctx is done.
func (s *Service) Loop(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 6 * time.Hour
	}
	t := time.NewTicker(every)
	defer t.Stop()
	s.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Run(ctx)
		}
	}
}
