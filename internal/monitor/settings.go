package monitor

import (
	"errors"
	"fmt"
	"time"

	"pulsemon/internal/alerts"
	"pulsemon/internal/models"
)

// Settings is the runtime-adjustable configuration surface.
type Settings struct {
	RefreshIntervalMs int64             `json:"refreshIntervalMs"`
	MaxDataPoints     int               `json:"maxDataPoints"`
	MaxAlerts         int               `json:"maxAlerts"`
	Thresholds        models.Thresholds `json:"thresholds"`
}

func (m *Monitor) Settings() Settings {
	return Settings{
		RefreshIntervalMs: m.sched.Interval().Milliseconds(),
		MaxDataPoints:     m.history.Cap(),
		MaxAlerts:         m.alerts.Cap(),
		Thresholds:        m.Thresholds(),
	}
}

// ApplySettings validates s and applies every field. Zero numeric fields and
// a nil threshold map are left unchanged.
func (m *Monitor) ApplySettings(s Settings) error {
	if s.RefreshIntervalMs < 0 {
		return fmt.Errorf("refreshIntervalMs: %w", models.ErrInvalidInterval)
	}
	if s.MaxDataPoints < 0 {
		return fmt.Errorf("maxDataPoints: %w", models.ErrInvalidCapacity)
	}
	if s.MaxAlerts < 0 {
		return fmt.Errorf("maxAlerts: %w", models.ErrInvalidCapacity)
	}
	for k := range s.Thresholds {
		if !isMetric(k) {
			return fmt.Errorf("thresholds: unknown metric %q", k)
		}
	}

	var errs []error
	if s.RefreshIntervalMs > 0 {
		errs = append(errs, m.SetInterval(time.Duration(s.RefreshIntervalMs)*time.Millisecond))
	}
	if s.MaxDataPoints > 0 {
		errs = append(errs, m.SetMaxDataPoints(s.MaxDataPoints))
	}
	if s.MaxAlerts > 0 {
		errs = append(errs, m.SetMaxAlerts(s.MaxAlerts))
	}
	if s.Thresholds != nil {
		m.SetThresholds(s.Thresholds)
	}
	return errors.Join(errs...)
}

func isMetric(name string) bool {
	for _, n := range models.MetricNames {
		if n == name {
			return true
		}
	}
	return false
}

type Status struct {
	State       string             `json:"state"`
	Running     bool               `json:"running"`
	Settings    Settings           `json:"settings"`
	DedupPolicy alerts.DedupPolicy `json:"dedupPolicy"`
	Samples     int                `json:"samples"`
	Alerts      int                `json:"alerts"`
	Scheduler   SchedulerStats     `json:"scheduler"`
	Current     *models.Sample     `json:"current,omitempty"`
}

func (m *Monitor) Status() Status {
	st := Status{
		State:       m.sched.State().String(),
		Running:     m.Running(),
		Settings:    m.Settings(),
		DedupPolicy: m.alerts.Policy(),
		Samples:     m.history.Len(),
		Alerts:      m.alerts.Len(),
		Scheduler:   m.sched.Stats(),
	}
	if cur, ok := m.Current(); ok {
		st.Current = &cur
	}
	return st
}
