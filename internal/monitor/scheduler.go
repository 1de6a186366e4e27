package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"pulsemon/internal/models"
)

type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// CycleFunc performs one tick of work.
type CycleFunc func(ctx context.Context) error

type SchedulerStats struct {
	Cycles    uint64    `json:"cycles"`
	Skipped   uint64    `json:"skipped"`
	Failures  uint64    `json:"failures"`
	LastRun   time.Time `json:"lastRun,omitzero"`
	LastError string    `json:"lastError,omitempty"`
}

// Scheduler runs a CycleFunc immediately on Start and then every interval.
// A tick that fires while the previous cycle is still running is skipped.
// Errors and panics inside a cycle are logged and do not stop the loop.
type Scheduler struct {
	cycle CycleFunc
	log   *slog.Logger

	mu       sync.Mutex
	state    State
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}

	busy     atomic.Bool
	cycles   atomic.Uint64
	skipped  atomic.Uint64
	failures atomic.Uint64

	lastMu  sync.Mutex
	lastRun time.Time
	lastErr string
}

func NewScheduler(cycle CycleFunc, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, models.ErrInvalidInterval
	}
	return &Scheduler{cycle: cycle, interval: interval, log: logger}, nil
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval changes the period. The tick already pending keeps its
// deadline; the new period applies from the one after it.
func (s *Scheduler) SetInterval(d time.Duration) error {
	if d <= 0 {
		return models.ErrInvalidInterval
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
	return nil
}

// Start moves the scheduler to Running and reports whether it did so. It is
// a no-op returning false when already running. Cancelling parent stops the
// scheduler as Stop would.
func (s *Scheduler) Start(parent context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running {
		return false
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = Running
	go s.loop(ctx, s.done)
	return true
}

// Stop cancels pending ticks and the context of any in-flight cycle, then
// waits for that cycle to return. It reports whether the scheduler was
// running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return false
	}
	cancel, done := s.cancel, s.done
	s.state = Stopped
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	cancel()
	<-done
	return true
}

// release returns the scheduler to Stopped after its loop ends on its own.
// A loop already detached by Stop leaves the state alone.
func (s *Scheduler) release(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != done {
		return
	}
	s.cancel()
	s.state = Stopped
	s.cancel, s.done = nil, nil
}

func (s *Scheduler) Stats() SchedulerStats {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	return SchedulerStats{
		Cycles:    s.cycles.Load(),
		Skipped:   s.skipped.Load(),
		Failures:  s.failures.Load(),
		LastRun:   s.lastRun,
		LastError: s.lastErr,
	}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	var inflight sync.WaitGroup
	defer close(done)
	defer s.release(done)
	defer inflight.Wait()

	first := s.Interval()
	s.fire(ctx, &inflight)
	timer := time.NewTimer(first)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.fire(ctx, &inflight)
			timer.Reset(s.Interval())
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, inflight *sync.WaitGroup) {
	if ctx.Err() != nil {
		return
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.log.Debug("previous cycle still running, tick skipped")
		return
	}
	inflight.Add(1)
	go func() {
		defer inflight.Done()
		defer s.busy.Store(false)
		s.run(ctx)
	}()
}

func (s *Scheduler) run(ctx context.Context) {
	err := s.safeCycle(ctx)
	s.cycles.Add(1)
	s.lastMu.Lock()
	s.lastRun = time.Now().UTC()
	if err != nil {
		s.lastErr = err.Error()
	}
	s.lastMu.Unlock()
	if err != nil {
		s.failures.Add(1)
		s.log.Error("monitor cycle failed", "err", err)
	}
}

func (s *Scheduler) safeCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", models.ErrCycleFailure, r)
		}
	}()
	return s.cycle(ctx)
}
