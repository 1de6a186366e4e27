// Package bus is the typed in-process event bus that connects the monitor
// loop to its consumers (websocket hub, archive, notifier, NATS bridge, TUI).
package bus

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	TypeSampleRecorded = "sample.recorded"
	TypeAlertRaised    = "alert.raised"
	TypeMonitorStarted = "monitor.started"
	TypeMonitorStopped = "monitor.stopped"
	TypeMonitorReset   = "monitor.reset"
)

type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload,omitempty"`
}

type Handler func(Event)

type subscriber struct {
	name    string
	ch      chan Event
	dropped atomic.Uint64
	done    chan struct{}
}

// Bus fans events out to subscribers. Each subscriber has its own buffered
// queue and goroutine; when a queue is full the event is dropped for that
// subscriber only, so a slow consumer never blocks the publisher.
type Bus struct {
	log *slog.Logger

	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	closed bool
}

func New(logger *slog.Logger) *Bus {
	return &Bus{log: logger, subs: map[*subscriber]struct{}{}}
}

// Subscribe registers h under name. The returned func unsubscribes and waits
// for h to finish its current event.
func (b *Bus) Subscribe(name string, buffer int, h Handler) func() {
	if buffer <= 0 {
		buffer = 64
	}
	s := &subscriber{name: name, ch: make(chan Event, buffer), done: make(chan struct{})}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.done)
		return func() {}
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go func() {
		defer close(s.done)
		for evt := range s.ch {
			b.deliver(s, h, evt)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[s]; ok {
				delete(b.subs, s)
				close(s.ch)
			}
			b.mu.Unlock()
			<-s.done
		})
	}
}

func (b *Bus) deliver(s *subscriber, h Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked", "subscriber", s.name, "type", evt.Type, "panic", r)
		}
	}()
	h(evt)
}

// Publish wraps payload in an Event and queues it for every subscriber.
func (b *Bus) Publish(typ string, payload any) Event {
	evt := Event{ID: uuid.NewString(), Type: typ, Time: time.Now().UTC(), Payload: payload}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return evt
	}
	for s := range b.subs {
		select {
		case s.ch <- evt:
		default:
			if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
				b.log.Warn("subscriber queue full, event dropped", "subscriber", s.name, "type", typ, "dropped", n)
			}
		}
	}
	return evt
}

// Close unsubscribes everyone and waits for in-flight handlers.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = map[*subscriber]struct{}{}
	for s := range subs {
		close(s.ch)
	}
	b.mu.Unlock()
	for s := range subs {
		<-s.done
	}
}
