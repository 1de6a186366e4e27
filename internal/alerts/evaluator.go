package alerts

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"pulsemon/internal/models"
)

// severityTable is the fixed per-metric severity policy. Latency and error
// metrics are errors, saturation metrics are warnings.
var severityTable = map[string]models.Severity{
	models.CPUUsage:          models.SeverityWarning,
	models.MemoryUsage:       models.SeverityWarning,
	models.ActiveConnections: models.SeverityWarning,
	models.ResponseTime:      models.SeverityError,
	models.ErrorRate:         models.SeverityError,
	models.Throughput:        models.SeverityInfo,
}

var metricLabels = map[string]string{
	models.CPUUsage:          "High CPU usage",
	models.MemoryUsage:       "High memory usage",
	models.ResponseTime:      "Slow response time",
	models.Throughput:        "High throughput",
	models.ErrorRate:         "High error rate",
	models.ActiveConnections: "High active connections",
}

func SeverityFor(metric string) models.Severity {
	if s, ok := severityTable[metric]; ok {
		return s
	}
	return models.SeverityInfo
}

type Evaluator struct {
	now func() time.Time
	seq atomic.Uint64
}

func NewEvaluator() *Evaluator {
	return &Evaluator{now: time.Now}
}

// Evaluate returns one alert per configured metric whose value is strictly
// greater than its limit, in models.MetricNames order.
func (e *Evaluator) Evaluate(s models.Sample, th models.Thresholds) []models.Alert {
	var out []models.Alert
	now := e.now().UTC()
	for _, metric := range models.MetricNames {
		limit, ok := th[metric]
		if !ok {
			continue
		}
		value, ok := s.Values[metric]
		if !ok || math.IsNaN(value) || math.IsNaN(limit) {
			continue
		}
		if !(value > limit) {
			continue
		}
		out = append(out, models.Alert{
			ID:        fmt.Sprintf("%s-%d-%d", metric, now.UnixMilli(), e.seq.Add(1)),
			Severity:  SeverityFor(metric),
			Metric:    metric,
			Value:     value,
			Threshold: limit,
			Message:   formatMessage(metric, value, limit),
			Timestamp: now,
		})
	}
	return out
}

func formatMessage(metric string, value, limit float64) string {
	label, ok := metricLabels[metric]
	if !ok {
		label = "Threshold exceeded for " + metric
	}
	unit := models.MetricUnits[metric]
	return fmt.Sprintf("%s detected: %s%s (threshold %s%s)", label, formatReading(value, limit), unit, formatValue(limit), unit)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

// formatReading falls back to full precision when rounding would print an
// exceeding value as the limit itself.
func formatReading(value, limit float64) string {
	s := formatValue(value)
	if value > limit && s == formatValue(limit) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	return s
}
