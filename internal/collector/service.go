// Package collector builds the telemetry payload served by telemetryd:
// host CPU and memory from /proc, the request-level fields simulated.
package collector

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Wire field names of the telemetry payload.
const (
	FieldCPU         = "cpu_usage"
	FieldMemory      = "memory_usage"
	FieldResponse    = "response_time"
	FieldThroughput  = "throughput"
	FieldErrorRate   = "error_rate"
	FieldConnections = "active_connections"
	FieldTimestamp   = "timestamp"
)

type span struct{ lo, hi float64 }

type fieldSpan struct {
	field string
	span
}

// Draw order is fixed so a seeded Service is reproducible.
var (
	simulated = []fieldSpan{
		{FieldResponse, span{100, 500}},
		{FieldThroughput, span{500, 1000}},
		{FieldErrorRate, span{0, 2}},
		{FieldConnections, span{10, 100}},
	}
	// used when /proc cannot be read
	cpuFallback    = fieldSpan{FieldCPU, span{20, 80}}
	memoryFallback = fieldSpan{FieldMemory, span{30, 70}}
	hostFallback   = []fieldSpan{cpuFallback, memoryFallback}
)

type Service struct {
	host *HostCollector
	log  *slog.Logger
	now  func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewService(host *HostCollector, seed uint64, logger *slog.Logger) *Service {
	return &Service{
		host: host,
		log:  logger,
		now:  time.Now,
		rnd:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Payload returns one telemetry reading keyed by wire field name. The
// timestamp is unix seconds.
func (s *Service) Payload() map[string]any {
	out := map[string]any{FieldTimestamp: float64(s.now().UnixMilli()) / 1000}
	for _, f := range simulated {
		out[f.field] = s.draw(f.field, f.span)
	}
	if s.host != nil {
		r, err := s.host.Collect()
		if err == nil {
			out[FieldMemory] = round2(r.MemPct)
			if r.CPUValid {
				out[FieldCPU] = round2(r.CPUPct)
			} else {
				out[FieldCPU] = s.draw(FieldCPU, cpuFallback.span)
			}
			return out
		}
		s.log.Debug("host metrics unavailable, simulating", "err", err)
	}
	for _, f := range hostFallback {
		out[f.field] = s.draw(f.field, f.span)
	}
	return out
}

func (s *Service) draw(field string, sp span) float64 {
	s.mu.Lock()
	v := sp.lo + s.rnd.Float64()*(sp.hi-sp.lo)
	if field == FieldConnections {
		n := s.rnd.IntN(int(sp.hi-sp.lo) + 1)
		s.mu.Unlock()
		return sp.lo + float64(n)
	}
	s.mu.Unlock()
	return round2(v)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
