package alerts

import (
	"fmt"
	"sync"

	"pulsemon/internal/models"
)

type DedupPolicy string

const (
	// DedupNone records every alert; a condition that persists produces an
	// alert on every tick.
	DedupNone DedupPolicy = "none"
	// DedupPerMetric keeps only the first alert per metric within a single
	// Record call.
	DedupPerMetric DedupPolicy = "per_metric"
)

func ParseDedupPolicy(v string) (DedupPolicy, error) {
	switch DedupPolicy(v) {
	case "", DedupNone:
		return DedupNone, nil
	case DedupPerMetric:
		return DedupPerMetric, nil
	}
	return "", fmt.Errorf("unknown dedup policy %q", v)
}

// Log is a bounded alert list, newest first.
type Log struct {
	mu       sync.RWMutex
	items    []models.Alert
	capacity int
	policy   DedupPolicy
}

func NewLog(capacity int, policy DedupPolicy) (*Log, error) {
	if capacity <= 0 {
		return nil, models.ErrInvalidCapacity
	}
	if policy == "" {
		policy = DedupNone
	}
	return &Log{capacity: capacity, policy: policy}, nil
}

func (l *Log) Policy() DedupPolicy { return l.policy }

// Record prepends alerts, keeping their relative order, then drops the
// oldest entries beyond capacity.
func (l *Log) Record(alerts []models.Alert) {
	if len(alerts) == 0 {
		return
	}
	if l.policy == DedupPerMetric {
		alerts = firstPerMetric(alerts)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	merged := make([]models.Alert, 0, len(alerts)+len(l.items))
	merged = append(merged, alerts...)
	merged = append(merged, l.items...)
	if len(merged) > l.capacity {
		merged = merged[:l.capacity]
	}
	l.items = merged
}

func firstPerMetric(alerts []models.Alert) []models.Alert {
	seen := make(map[string]bool, len(alerts))
	out := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if seen[a.Metric] {
			continue
		}
		seen[a.Metric] = true
		out = append(out, a)
	}
	return out
}

// Dismiss removes the alert with the given id. It reports whether one was found.
func (l *Log) Dismiss(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, a := range l.items {
		if a.ID == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}

func (l *Log) Items() []models.Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Alert, len(l.items))
	copy(out, l.items)
	return out
}

// Replace swaps the content for alerts (newest first), truncated to capacity.
func (l *Log) Replace(alerts []models.Alert) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := min(len(alerts), l.capacity)
	l.items = make([]models.Alert, n)
	copy(l.items, alerts[:n])
}

func (l *Log) Resize(capacity int) error {
	if capacity <= 0 {
		return models.ErrInvalidCapacity
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.capacity = capacity
	if len(l.items) > capacity {
		l.items = l.items[:capacity:capacity]
	}
	return nil
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *Log) Cap() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.capacity
}
