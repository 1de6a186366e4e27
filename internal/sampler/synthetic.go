package sampler

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"pulsemon/internal/models"
)

type valueRange struct {
	min, max float64
	integer  bool
}

// Ranges of the synthetic generator, per metric.
var syntheticRanges = map[string]valueRange{
	models.CPUUsage:          {0, 100, false},
	models.MemoryUsage:       {0, 100, false},
	models.ResponseTime:      {100, 1100, false},
	models.Throughput:        {500, 1500, false},
	models.ErrorRate:         {0, 5, false},
	models.ActiveConnections: {10, 110, true},
}

// Calmer ranges used for warm-up history.
var warmupRanges = map[string]valueRange{
	models.CPUUsage:          {20, 80, false},
	models.MemoryUsage:       {15, 85, false},
	models.ResponseTime:      {200, 700, false},
	models.Throughput:        {400, 1200, false},
	models.ErrorRate:         {0, 2, false},
	models.ActiveConnections: {20, 70, true},
}

// Synthetic produces randomized but shape-valid samples. It never touches
// the network.
type Synthetic struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func NewSynthetic(seed uint64) *Synthetic {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Synthetic{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), now: time.Now}
}

func (s *Synthetic) Sample(context.Context) models.Sample {
	out := models.NewSample(s.now(), models.SourceSynthetic)
	for _, name := range models.MetricNames {
		out.Values[name] = s.Value(name)
	}
	return out
}

// Value draws a synthetic reading for a single metric.
func (s *Synthetic) Value(metric string) float64 {
	return s.draw(syntheticRanges[metric])
}

func (s *Synthetic) draw(r valueRange) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.integer {
		return r.min + float64(s.rnd.IntN(int(r.max-r.min)))
	}
	return r.min + s.rnd.Float64()*(r.max-r.min)
}

// Warmup returns n calm samples spaced by interval and ending now, oldest first.
func (s *Synthetic) Warmup(n int, interval time.Duration) []models.Sample {
	if n <= 0 {
		return nil
	}
	now := s.now()
	out := make([]models.Sample, 0, n)
	for i := 0; i < n; i++ {
		ts := now.Add(-time.Duration(n-1-i) * interval)
		smp := models.NewSample(ts, models.SourceSynthetic)
		for _, name := range models.MetricNames {
			smp.Values[name] = s.draw(warmupRanges[name])
		}
		out = append(out, smp)
	}
	return out
}
