// Package telemetry serves the HTTP telemetry endpoint polled by the monitor.
package telemetry

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const Version = "1.0.0"

// PayloadSource produces one reading keyed by wire field name.
type PayloadSource interface {
	Payload() map[string]any
}

type Handler struct {
	src PayloadSource
	log *slog.Logger
	now func() time.Time
}

func NewHandler(src PayloadSource, logger *slog.Logger) *Handler {
	return &Handler{src: src, log: logger, now: time.Now}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)
	r.Get("/api/metrics", h.handleMetrics)
	r.Get("/api/health", h.handleHealth)
	return r
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	p := h.src.Payload()
	h.log.Debug("metrics served", "remote", r.RemoteAddr)
	writeJSON(w, p)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "healthy",
		"timestamp": float64(h.now().UnixMilli()) / 1000,
		"version":   Version,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
