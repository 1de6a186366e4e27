// Package notifier forwards raised alerts to external chat channels.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"pulsemon/internal/bus"
	"pulsemon/internal/models"
)

var ErrNotConfigured = errors.New("notifier not configured")

type Channel interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, msg string) error
}

// Recorder stores the outcome of each delivery. *db.Repository satisfies it.
type Recorder interface {
	InsertNotificationEvent(ctx context.Context, alertID, channel, status string, attempts int, lastErr string, sent *time.Time) error
}

type ForwarderOptions struct {
	MinSeverity models.Severity
	// Burst messages may go out back to back, then one per Every.
	Every       time.Duration
	Burst       int
	MaxAttempts int
	Backoff     time.Duration
}

func DefaultForwarderOptions() ForwarderOptions {
	return ForwarderOptions{
		MinSeverity: models.SeverityError,
		Every:       3 * time.Second,
		Burst:       5,
		MaxAttempts: 3,
		Backoff:     300 * time.Millisecond,
	}
}

// Forwarder is a bus subscriber that relays alerts at or above MinSeverity.
// Alerts beyond the rate limit are dropped rather than queued.
type Forwarder struct {
	ch      Channel
	rec     Recorder
	opts    ForwarderOptions
	limiter *rate.Limiter
	log     *slog.Logger
	now     func() time.Time
	sleep   func(time.Duration)
}

func NewForwarder(ch Channel, rec Recorder, opts ForwarderOptions, logger *slog.Logger) *Forwarder {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	limit := rate.Inf
	if opts.Every > 0 {
		limit = rate.Every(opts.Every)
	}
	return &Forwarder{
		ch:      ch,
		rec:     rec,
		opts:    opts,
		limiter: rate.NewLimiter(limit, opts.Burst),
		log:     logger,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

func (f *Forwarder) Handle(ev bus.Event) {
	a, ok := ev.Payload.(models.Alert)
	if !ok || ev.Type != bus.TypeAlertRaised {
		return
	}
	if a.Severity.Rank() < f.opts.MinSeverity.Rank() || !f.ch.Enabled() {
		return
	}
	if !f.limiter.Allow() {
		f.log.Warn("notification rate limited", "alert_id", a.ID, "channel", f.ch.Name())
		f.record(a.ID, "throttled", 0, "", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	f.deliver(ctx, a.ID, FormatAlert(a))
}

func (f *Forwarder) deliver(ctx context.Context, alertID, msg string) {
	attempts := 0
	var err error
	for attempts < f.opts.MaxAttempts {
		attempts++
		err = f.ch.Send(ctx, msg)
		if err == nil {
			now := f.now().UTC()
			f.record(alertID, "sent", attempts, "", &now)
			return
		}
		if attempts < f.opts.MaxAttempts {
			f.sleep(time.Duration(attempts) * f.opts.Backoff)
		}
	}
	f.record(alertID, "failed", attempts, err.Error(), nil)
	f.log.Warn("notify failed", "err", err, "alert_id", alertID, "attempts", attempts)
}

func (f *Forwarder) record(alertID, status string, attempts int, lastErr string, sent *time.Time) {
	if f.rec == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.rec.InsertNotificationEvent(ctx, alertID, f.ch.Name(), status, attempts, lastErr, sent); err != nil {
		f.log.Error("record notification failed", "err", err)
	}
}

func FormatAlert(a models.Alert) string {
	return fmt.Sprintf("ALERT [%s] %s at %s", strings.ToUpper(string(a.Severity)), a.Message, a.Timestamp.UTC().Format(time.RFC3339))
}
