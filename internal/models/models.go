package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"time"
)

const (
	CPUUsage          = "cpuUsage"
	MemoryUsage       = "memoryUsage"
	ResponseTime      = "responseTime"
	Throughput        = "throughput"
	ErrorRate         = "errorRate"
	ActiveConnections = "activeConnections"
)

// MetricNames is the fixed metric set carried by every sample, in the
// order used for evaluation and display.
var MetricNames = []string{CPUUsage, MemoryUsage, ResponseTime, Throughput, ErrorRate, ActiveConnections}

// Units used by the dashboards.
var MetricUnits = map[string]string{
	CPUUsage:          "%",
	MemoryUsage:       "%",
	ResponseTime:      "ms",
	Throughput:        "req/s",
	ErrorRate:         "%",
	ActiveConnections: "",
}

var (
	ErrCollaboratorUnavailable = errors.New("telemetry collaborator unavailable")
	ErrMalformedResponse       = errors.New("malformed telemetry response")
	ErrCycleFailure            = errors.New("monitor cycle failed")
	ErrInvalidCapacity         = errors.New("capacity must be positive")
	ErrInvalidInterval         = errors.New("interval must be positive")
)

type Source string

const (
	SourceRemote    Source = "remote"
	SourcePartial   Source = "partial"
	SourceSynthetic Source = "synthetic"
)

type Sample struct {
	Values    map[string]float64
	Timestamp time.Time
	Source    Source
}

func NewSample(ts time.Time, src Source) Sample {
	return Sample{Values: make(map[string]float64, len(MetricNames)), Timestamp: ts.UTC(), Source: src}
}

func (s Sample) Get(metric string) float64 { return s.Values[metric] }

func (s Sample) Clone() Sample {
	out := s
	out.Values = maps.Clone(s.Values)
	return out
}

// Complete reports whether the sample carries exactly the fixed metric set.
func (s Sample) Complete() bool {
	if len(s.Values) != len(MetricNames) {
		return false
	}
	for _, name := range MetricNames {
		if _, ok := s.Values[name]; !ok {
			return false
		}
	}
	return true
}

func (s Sample) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(s.Values)+2)
	for k, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("metric %s: non-finite value", k)
		}
		m[k] = v
	}
	m["timestamp"] = s.Timestamp.UTC().Format(time.RFC3339Nano)
	if s.Source != "" {
		m["source"] = s.Source
	}
	return json.Marshal(m)
}

func (s *Sample) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := Sample{Values: make(map[string]float64, len(MetricNames))}
	for k, v := range raw {
		switch k {
		case "timestamp":
			var ts string
			if err := json.Unmarshal(v, &ts); err != nil {
				return fmt.Errorf("timestamp: %w", err)
			}
			t, err := time.Parse(time.RFC3339Nano, ts)
			if err != nil {
				return fmt.Errorf("timestamp: %w", err)
			}
			out.Timestamp = t.UTC()
		case "source":
			var src string
			if err := json.Unmarshal(v, &src); err != nil {
				return fmt.Errorf("source: %w", err)
			}
			out.Source = Source(src)
		default:
			var f float64
			if err := json.Unmarshal(v, &f); err != nil {
				return fmt.Errorf("metric %s: %w", k, err)
			}
			out.Values[k] = f
		}
	}
	*s = out
	return nil
}

// Thresholds maps a metric name to its alert limit. A missing entry never alerts.
type Thresholds map[string]float64

func DefaultThresholds() Thresholds {
	return Thresholds{
		CPUUsage:     80,
		MemoryUsage:  85,
		ResponseTime: 1000,
		ErrorRate:    5,
	}
}

func (t Thresholds) Clone() Thresholds { return maps.Clone(t) }

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityError:
		return 3
	default:
		return 0
	}
}

func ParseSeverity(v string) (Severity, error) {
	switch Severity(v) {
	case SeverityInfo, SeverityWarning, SeverityError:
		return Severity(v), nil
	}
	return "", fmt.Errorf("unknown severity %q", v)
}

type Alert struct {
	ID        string    `json:"id"`
	Severity  Severity  `json:"type"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
