// Package monitor wires the sampling loop: Sampler -> history.Buffer ->
// alerts.Evaluator -> alerts.Log, driven by a Scheduler.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pulsemon/internal/alerts"
	"pulsemon/internal/bus"
	"pulsemon/internal/history"
	"pulsemon/internal/models"
	"pulsemon/internal/sampler"
)

type Config struct {
	Interval      time.Duration
	MaxDataPoints int
	MaxAlerts     int
	Thresholds    models.Thresholds
	Dedup         alerts.DedupPolicy
	// WarmupPoints pre-seeds an empty history with calm synthetic samples
	// when monitoring starts. Zero disables it.
	WarmupPoints int
}

func DefaultConfig() Config {
	return Config{
		Interval:      2 * time.Second,
		MaxDataPoints: 20,
		MaxAlerts:     10,
		Thresholds:    models.DefaultThresholds(),
		Dedup:         alerts.DedupNone,
		WarmupPoints:  10,
	}
}

type Monitor struct {
	sampler   sampler.Sampler
	warmup    *sampler.Synthetic
	history   *history.Buffer
	evaluator *alerts.Evaluator
	alerts    *alerts.Log
	sched     *Scheduler
	bus       *bus.Bus
	log       *slog.Logger

	// runMu serializes Start and Stop.
	runMu sync.Mutex

	mu           sync.RWMutex
	thresholds   models.Thresholds
	warmupPoints int
}

// New builds a stopped monitor. warmup and events may be nil.
func New(cfg Config, smp sampler.Sampler, warmup *sampler.Synthetic, events *bus.Bus, logger *slog.Logger) (*Monitor, error) {
	buf, err := history.NewBuffer(cfg.MaxDataPoints)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	alertLog, err := alerts.NewLog(cfg.MaxAlerts, cfg.Dedup)
	if err != nil {
		return nil, fmt.Errorf("alert log: %w", err)
	}
	th := cfg.Thresholds
	if th == nil {
		th = models.Thresholds{}
	}
	m := &Monitor{
		sampler:      smp,
		warmup:       warmup,
		history:      buf,
		evaluator:    alerts.NewEvaluator(),
		alerts:       alertLog,
		bus:          events,
		log:          logger,
		thresholds:   th.Clone(),
		warmupPoints: cfg.WarmupPoints,
	}
	m.sched, err = NewScheduler(m.RunCycle, cfg.Interval, logger)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	return m, nil
}

// RunCycle performs one sample -> append -> evaluate -> record pass.
func (m *Monitor) RunCycle(ctx context.Context) error {
	s := m.sampler.Sample(ctx)
	if !s.Complete() {
		return fmt.Errorf("%w: sample has %d of %d metrics", models.ErrCycleFailure, len(s.Values), len(models.MetricNames))
	}
	m.history.Append(s)
	raised := m.evaluator.Evaluate(s, m.Thresholds())
	m.alerts.Record(raised)

	m.publish(bus.TypeSampleRecorded, s)
	for _, a := range raised {
		m.publish(bus.TypeAlertRaised, a)
	}
	return nil
}

// Start begins monitoring; a no-op when already running. ctx bounds the
// lifetime of the loop.
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.sched.State() == Running {
		return
	}
	if m.warmup != nil && m.warmupPoints > 0 && m.history.Len() == 0 {
		m.history.Replace(m.warmup.Warmup(m.warmupPoints, m.sched.Interval()))
	}
	if !m.sched.Start(ctx) {
		return
	}
	m.log.Info("monitoring started", "interval", m.sched.Interval())
	m.publish(bus.TypeMonitorStarted, m.Settings())
}

func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.sched.Stop() {
		return
	}
	m.log.Info("monitoring stopped")
	m.publish(bus.TypeMonitorStopped, nil)
}

func (m *Monitor) Running() bool { return m.sched.State() == Running }

// Reset clears history and alerts. Monitoring keeps its current state.
func (m *Monitor) Reset() {
	m.history.Reset()
	m.alerts.Clear()
	m.publish(bus.TypeMonitorReset, nil)
}

func (m *Monitor) SetInterval(d time.Duration) error { return m.sched.SetInterval(d) }

func (m *Monitor) SetMaxDataPoints(n int) error { return m.history.Resize(n) }

func (m *Monitor) SetMaxAlerts(n int) error { return m.alerts.Resize(n) }

func (m *Monitor) SetThresholds(th models.Thresholds) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds = th.Clone()
}

func (m *Monitor) Thresholds() models.Thresholds {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.thresholds.Clone()
}

func (m *Monitor) History() []models.Sample { return m.history.Snapshot() }

func (m *Monitor) Current() (models.Sample, bool) { return m.history.Latest() }

func (m *Monitor) Alerts() []models.Alert { return m.alerts.Items() }

func (m *Monitor) DismissAlert(id string) bool { return m.alerts.Dismiss(id) }

func (m *Monitor) ClearAlerts() { m.alerts.Clear() }

// Trend compares the two newest readings of metric.
func (m *Monitor) Trend(metric string) string {
	last := m.history.Last(2)
	if len(last) < 2 {
		return "stable"
	}
	prev, cur := last[0].Get(metric), last[1].Get(metric)
	switch {
	case cur > prev:
		return "up"
	case cur < prev:
		return "down"
	default:
		return "stable"
	}
}

func (m *Monitor) publish(typ string, payload any) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(typ, payload)
}
