package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsemon/internal/bus"
	"pulsemon/internal/models"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type fakeChannel struct {
	mu    sync.Mutex
	fails int
	sent  []string
}

func (c *fakeChannel) Name() string  { return "fake" }
func (c *fakeChannel) Enabled() bool { return true }

func (c *fakeChannel) Send(_ context.Context, msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fails > 0 {
		c.fails--
		return errors.New("upstream 502")
	}
	c.sent = append(c.sent, msg)
	return nil
}

type event struct {
	alertID, status string
	attempts        int
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []event
}

func (r *fakeRecorder) InsertNotificationEvent(_ context.Context, alertID, _, status string, attempts int, _ string, _ *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{alertID, status, attempts})
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func alertEvent(id string, sev models.Severity) bus.Event {
	return bus.Event{Type: bus.TypeAlertRaised, Payload: models.Alert{
		ID: id, Severity: sev, Metric: models.ErrorRate, Value: 7, Threshold: 5,
		Message: "High error rate detected: 7% (threshold 5%)", Timestamp: time.Now(),
	}}
}

func newTestForwarder(ch Channel, rec Recorder, opts ForwarderOptions) *Forwarder {
	f := NewForwarder(ch, rec, opts, discard())
	f.sleep = func(time.Duration) {}
	return f
}

func TestTelegramSendPostsMessage(t *testing.T) {
	var got map[string]any
	var path string
	tg := NewTelegram("tok", "42")
	tg.BaseURL = "http://telegram.test"
	tg.HTTP = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		path = req.URL.Path
		_ = json.NewDecoder(req.Body).Decode(&got)
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{"ok":true}`)), Header: make(http.Header)}, nil
	})}

	require.NoError(t, tg.Send(context.Background(), "hello"))
	assert.Equal(t, "/bottok/sendMessage", path)
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
}

func TestTelegramErrors(t *testing.T) {
	tg := NewTelegram("", "")
	assert.ErrorIs(t, tg.Send(context.Background(), "x"), ErrNotConfigured)

	tg.Update("tok", "1")
	tg.HTTP = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusBadRequest, Body: io.NopCloser(strings.NewReader("chat not found")), Header: make(http.Header)}, nil
	})}
	assert.ErrorContains(t, tg.Send(context.Background(), "x"), "chat not found")
}

func TestForwarderFiltersBySeverity(t *testing.T) {
	ch := &fakeChannel{}
	f := newTestForwarder(ch, nil, DefaultForwarderOptions())

	f.Handle(alertEvent("a1", models.SeverityWarning))
	f.Handle(alertEvent("a2", models.SeverityError))
	f.Handle(bus.Event{Type: bus.TypeSampleRecorded, Payload: models.Sample{}})

	require.Len(t, ch.sent, 1)
	assert.Contains(t, ch.sent[0], "[ERROR]")
	assert.Contains(t, ch.sent[0], "High error rate")
}

func TestForwarderRetriesThenRecords(t *testing.T) {
	ch := &fakeChannel{fails: 2}
	rec := &fakeRecorder{}
	f := newTestForwarder(ch, rec, DefaultForwarderOptions())

	f.Handle(alertEvent("a1", models.SeverityError))
	assert.Len(t, ch.sent, 1)
	assert.Equal(t, []event{{"a1", "sent", 3}}, rec.events)

	ch.fails = 5
	f.Handle(alertEvent("a2", models.SeverityError))
	assert.Equal(t, event{"a2", "failed", 3}, rec.events[1])
}

func TestForwarderRateLimits(t *testing.T) {
	ch := &fakeChannel{}
	rec := &fakeRecorder{}
	opts := DefaultForwarderOptions()
	opts.Every = time.Hour
	opts.Burst = 2
	f := newTestForwarder(ch, rec, opts)

	for _, id := range []string{"a1", "a2", "a3"} {
		f.Handle(alertEvent(id, models.SeverityError))
	}
	assert.Len(t, ch.sent, 2)
	require.Len(t, rec.events, 3)
	assert.Equal(t, "throttled", rec.events[2].status)
}
