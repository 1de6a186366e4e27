package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsemon/internal/models"
)

func sampleWithCPU(v float64, at time.Time) models.Sample {
	s := models.NewSample(at, models.SourceSynthetic)
	for _, name := range models.MetricNames {
		s.Values[name] = 0
	}
	s.Values[models.CPUUsage] = v
	return s
}

func cpuValues(samples []models.Sample) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		out = append(out, s.Get(models.CPUUsage))
	}
	return out
}

func TestNewBufferRejectsNonPositiveCapacity(t *testing.T) {
	_, err := NewBuffer(0)
	require.ErrorIs(t, err, models.ErrInvalidCapacity)
	_, err = NewBuffer(-3)
	require.ErrorIs(t, err, models.ErrInvalidCapacity)
}

func TestAppendEvictsOldestFirst(t *testing.T) {
	b, err := NewBuffer(3)
	require.NoError(t, err)
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	for i, v := range []float64{1, 2, 3, 4} {
		b.Append(sampleWithCPU(v, now.Add(time.Duration(i)*time.Second)))
	}
	assert.Equal(t, []float64{2, 3, 4}, cpuValues(b.Snapshot()))
	assert.Equal(t, 3, b.Len())
}

func TestSnapshotKeepsLastCapacitySamplesInOrder(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	for _, capacity := range []int{1, 2, 5, 20} {
		b, err := NewBuffer(capacity)
		require.NoError(t, err)
		n := capacity*3 + 1
		want := make([]float64, 0, capacity)
		for i := 0; i < n; i++ {
			b.Append(sampleWithCPU(float64(i), now.Add(time.Duration(i)*time.Second)))
			if i >= n-capacity {
				want = append(want, float64(i))
			}
		}
		snap := b.Snapshot()
		require.Len(t, snap, capacity, "capacity %d", capacity)
		assert.Equal(t, want, cpuValues(snap), "capacity %d", capacity)
	}
}

func TestAppendStoresCopy(t *testing.T) {
	b, err := NewBuffer(2)
	require.NoError(t, err)
	s := sampleWithCPU(10, time.Now())
	b.Append(s)
	s.Values[models.CPUUsage] = 99

	latest, ok := b.Latest()
	require.True(t, ok)
	assert.Equal(t, 10.0, latest.Get(models.CPUUsage))

	snap := b.Snapshot()
	snap[0].Values[models.CPUUsage] = 77
	latest, _ = b.Latest()
	assert.Equal(t, 10.0, latest.Get(models.CPUUsage))
}

func TestResizeKeepsNewest(t *testing.T) {
	b, err := NewBuffer(5)
	require.NoError(t, err)
	now := time.Now()
	for i := 1; i <= 5; i++ {
		b.Append(sampleWithCPU(float64(i), now))
	}
	require.NoError(t, b.Resize(2))
	assert.Equal(t, []float64{4, 5}, cpuValues(b.Snapshot()))
	assert.Equal(t, 2, b.Cap())

	require.NoError(t, b.Resize(4))
	b.Append(sampleWithCPU(6, now))
	assert.Equal(t, []float64{4, 5, 6}, cpuValues(b.Snapshot()))
	assert.ErrorIs(t, b.Resize(0), models.ErrInvalidCapacity)
}

func TestLastAndReset(t *testing.T) {
	b, err := NewBuffer(4)
	require.NoError(t, err)
	now := time.Now()
	_, ok := b.Latest()
	assert.False(t, ok)
	for i := 1; i <= 6; i++ {
		b.Append(sampleWithCPU(float64(i), now))
	}
	assert.Equal(t, []float64{5, 6}, cpuValues(b.Last(2)))
	assert.Equal(t, []float64{3, 4, 5, 6}, cpuValues(b.Last(10)))

	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Snapshot())
}

func TestReplaceTruncatesToCapacity(t *testing.T) {
	b, err := NewBuffer(2)
	require.NoError(t, err)
	now := time.Now()
	b.Append(sampleWithCPU(100, now))
	b.Replace([]models.Sample{sampleWithCPU(1, now), sampleWithCPU(2, now), sampleWithCPU(3, now)})
	assert.Equal(t, []float64{2, 3}, cpuValues(b.Snapshot()))
}
