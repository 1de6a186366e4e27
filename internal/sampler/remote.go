package sampler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"pulsemon/internal/models"
)

// wireFields maps the collaborator's JSON fields to metric names.
var wireFields = map[string]string{
	models.CPUUsage:          "cpu_usage",
	models.MemoryUsage:       "memory_usage",
	models.ResponseTime:      "response_time",
	models.Throughput:        "throughput",
	models.ErrorRate:         "error_rate",
	models.ActiveConnections: "active_connections",
}

// WireField returns the collaborator JSON field for a metric.
func WireField(metric string) string { return wireFields[metric] }

// Remote queries the telemetry collaborator and falls back to the synthetic
// generator when it is unavailable or sends fields it cannot use.
type Remote struct {
	Endpoint string
	Timeout  time.Duration
	HTTP     *http.Client

	fallback    *Synthetic
	log         *slog.Logger
	now         func() time.Time
	unavailable atomic.Bool
}

func NewRemote(endpoint string, timeout time.Duration, fallback *Synthetic, logger *slog.Logger) *Remote {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Remote{
		Endpoint: endpoint,
		Timeout:  timeout,
		HTTP:     &http.Client{},
		fallback: fallback,
		log:      logger,
		now:      time.Now,
	}
}

// ForceUnavailable makes every Sample take the synthetic path without
// contacting the collaborator.
func (r *Remote) ForceUnavailable(v bool) { r.unavailable.Store(v) }

func (r *Remote) Sample(ctx context.Context) models.Sample {
	if r.unavailable.Load() {
		return r.fallback.Sample(ctx)
	}
	payload, elapsed, err := r.fetch(ctx)
	if err != nil {
		r.log.Warn("telemetry fetch failed, using synthetic sample", "endpoint", r.Endpoint, "err", err)
		return r.fallback.Sample(ctx)
	}

	out := models.NewSample(r.now(), models.SourceRemote)
	var synthesized []string
	for _, name := range models.MetricNames {
		if v, ok := numericField(payload, wireFields[name]); ok {
			out.Values[name] = v
			continue
		}
		if name == models.ResponseTime {
			out.Values[name] = float64(elapsed.Milliseconds())
			continue
		}
		out.Values[name] = r.fallback.Value(name)
		synthesized = append(synthesized, name)
	}
	if len(synthesized) > 0 {
		out.Source = models.SourcePartial
		r.log.Debug("telemetry response incomplete", "err", models.ErrMalformedResponse, "synthesized", synthesized)
	}
	r.log.Debug("telemetry fetched", "duration_ms", elapsed.Milliseconds())
	return out
}

func (r *Remote) fetch(ctx context.Context) (map[string]json.RawMessage, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.Endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", models.ErrCollaboratorUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	res, err := r.HTTP.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", models.ErrCollaboratorUnavailable, err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, fmt.Errorf("%w: read body: %v", models.ErrCollaboratorUnavailable, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, elapsed, fmt.Errorf("%w: status %d", models.ErrCollaboratorUnavailable, res.StatusCode)
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, elapsed, fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
	}
	if payload == nil {
		return nil, elapsed, fmt.Errorf("%w: empty payload", models.ErrMalformedResponse)
	}
	return payload, elapsed, nil
}

func numericField(payload map[string]json.RawMessage, field string) (float64, bool) {
	raw, ok := payload[field]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
