package alerts

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsemon/internal/models"
)

func fullSample(values map[string]float64) models.Sample {
	s := models.NewSample(time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC), models.SourceRemote)
	for _, name := range models.MetricNames {
		s.Values[name] = 0
	}
	for k, v := range values {
		s.Values[k] = v
	}
	return s
}

func newTestEvaluator() *Evaluator {
	e := NewEvaluator()
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }
	return e
}

func TestEvaluateCPUAboveThreshold(t *testing.T) {
	e := newTestEvaluator()
	got := e.Evaluate(fullSample(map[string]float64{models.CPUUsage: 95}), models.Thresholds{models.CPUUsage: 80})
	require.Len(t, got, 1)
	a := got[0]
	assert.Equal(t, models.CPUUsage, a.Metric)
	assert.Equal(t, models.SeverityWarning, a.Severity)
	assert.Contains(t, a.Message, "95")
	assert.Contains(t, a.Message, "80")
	assert.Equal(t, 95.0, a.Value)
	assert.Equal(t, 80.0, a.Threshold)
}

func TestEvaluateEqualValueDoesNotAlert(t *testing.T) {
	e := newTestEvaluator()
	got := e.Evaluate(fullSample(map[string]float64{models.CPUUsage: 80}), models.Thresholds{models.CPUUsage: 80})
	assert.Empty(t, got)
}

func TestEvaluateMessageNeverPrintsValueAsLimit(t *testing.T) {
	e := newTestEvaluator()
	got := e.Evaluate(fullSample(map[string]float64{models.CPUUsage: 80.04}), models.Thresholds{models.CPUUsage: 80})
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "80.04%")
	assert.Contains(t, got[0].Message, "(threshold 80%)")

	got = e.Evaluate(fullSample(map[string]float64{models.CPUUsage: 80.26}), models.Thresholds{models.CPUUsage: 80})
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "80.3%")
}

func TestEvaluateAlertsIffStrictlyGreaterAndConfigured(t *testing.T) {
	cases := []struct {
		name       string
		value      float64
		limit      float64
		configured bool
		want       bool
	}{
		{"above", 91, 90, true, true},
		{"equal", 90, 90, true, false},
		{"below", 89, 90, true, false},
		{"above but unconfigured", 1000, 0, false, false},
		{"negative limit", 0, -1, true, true},
		{"nan value", math.NaN(), 1, true, false},
	}
	for _, tc := range cases {
		for _, metric := range models.MetricNames {
			th := models.Thresholds{}
			if tc.configured {
				th[metric] = tc.limit
			}
			got := newTestEvaluator().Evaluate(fullSample(map[string]float64{metric: tc.value}), th)
			if tc.want {
				require.Len(t, got, 1, "%s/%s", tc.name, metric)
				assert.Equal(t, metric, got[0].Metric)
			} else {
				assert.Empty(t, got, "%s/%s", tc.name, metric)
			}
		}
	}
}

func TestEvaluateOrderIsFixed(t *testing.T) {
	th := models.Thresholds{}
	values := map[string]float64{}
	for _, name := range models.MetricNames {
		th[name] = 1
		values[name] = 2
	}
	for i := 0; i < 20; i++ {
		got := newTestEvaluator().Evaluate(fullSample(values), th)
		require.Len(t, got, len(models.MetricNames))
		for j, a := range got {
			assert.Equal(t, models.MetricNames[j], a.Metric)
		}
	}
}

func TestEvaluateSeverityTable(t *testing.T) {
	assert.Equal(t, models.SeverityError, SeverityFor(models.ResponseTime))
	assert.Equal(t, models.SeverityError, SeverityFor(models.ErrorRate))
	assert.Equal(t, models.SeverityWarning, SeverityFor(models.CPUUsage))
	assert.Equal(t, models.SeverityWarning, SeverityFor(models.MemoryUsage))
	assert.Equal(t, models.SeverityWarning, SeverityFor(models.ActiveConnections))
	assert.Equal(t, models.SeverityInfo, SeverityFor(models.Throughput))
	for _, name := range models.MetricNames {
		_, ok := severityTable[name]
		assert.True(t, ok, "metric %s missing from severity table", name)
	}
}

func TestEvaluateIDsAreDistinct(t *testing.T) {
	e := newTestEvaluator()
	s := fullSample(map[string]float64{models.CPUUsage: 95})
	th := models.Thresholds{models.CPUUsage: 80}
	a := e.Evaluate(s, th)
	b := e.Evaluate(s, th)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.NotEqual(t, a[0].ID, b[0].ID)
}
