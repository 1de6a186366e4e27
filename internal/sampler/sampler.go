// Package sampler produces metric samples, either from the HTTP telemetry
// collaborator or from a synthetic generator. Sample never fails: collaborator
// errors degrade to synthetic data.
package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pulsemon/internal/models"
)

type Sampler interface {
	Sample(ctx context.Context) models.Sample
}

type Mode string

const (
	ModeRemote    Mode = "remote"
	ModeSynthetic Mode = "synthetic"
)

func ParseMode(v string) (Mode, error) {
	switch Mode(v) {
	case "", ModeRemote:
		return ModeRemote, nil
	case ModeSynthetic:
		return ModeSynthetic, nil
	}
	return "", fmt.Errorf("unknown source mode %q", v)
}

type Options struct {
	Mode     Mode
	Endpoint string
	Timeout  time.Duration
	Seed     uint64
}

// New selects the sampling strategy for opts.Mode. The returned Synthetic is
// the generator used for fallback and warm-up in either mode.
func New(opts Options, logger *slog.Logger) (Sampler, *Synthetic) {
	syn := NewSynthetic(opts.Seed)
	if opts.Mode == ModeSynthetic {
		return syn, syn
	}
	if opts.Endpoint == "" {
		logger.Warn("remote source selected without endpoint, sampling synthetic data")
		return syn, syn
	}
	return NewRemote(opts.Endpoint, opts.Timeout, syn, logger), syn
}
