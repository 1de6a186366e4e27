package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pulsemon/internal/models"
	"pulsemon/internal/monitor"
)

const SettingsKey = "monitor.settings"

// Archive is the optional on-disk history. *db.Repository satisfies it.
type Archive interface {
	RecentSamples(ctx context.Context, from time.Time, limit int) ([]models.Sample, error)
	RecentAlerts(ctx context.Context, since time.Time, limit int) ([]models.Alert, error)
	SaveSetting(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
}

type Notifier interface {
	Send(ctx context.Context, msg string) error
}

type Deps struct {
	Monitor *monitor.Monitor
	// Archive and Notifier may be nil.
	Archive  Archive
	Notifier Notifier
	// Hub serves /ws when set.
	Hub            http.Handler
	AllowedOrigins []string
	// BaseContext parents the monitor loop started through the API.
	BaseContext context.Context
}

type Server struct {
	mon     *monitor.Monitor
	archive Archive
	notify  Notifier
	hub     http.Handler
	origins []string
	base    context.Context
	log     *slog.Logger
}

func NewServer(d Deps, logger *slog.Logger) *Server {
	base := d.BaseContext
	if base == nil {
		base = context.Background()
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		mon:     d.Monitor,
		archive: d.Archive,
		notify:  d.Notifier,
		hub:     d.Hub,
		origins: origins,
		base:    base,
		log:     logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if s.hub != nil {
		r.Handle("/ws", s.hub)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Post("/monitor/start", s.handleStart)
		r.Post("/monitor/stop", s.handleStop)
		r.Post("/monitor/reset", s.handleReset)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		r.Get("/metrics/current", s.handleCurrent)
		r.Get("/metrics/history", s.handleHistory)
		r.Get("/metrics/archive", s.handleArchive)

		r.Get("/alerts", s.handleAlerts)
		r.Delete("/alerts", s.handleClearAlerts)
		r.Delete("/alerts/{id}", s.handleDismissAlert)
		r.Get("/alerts/archive", s.handleAlertArchive)
		r.Post("/alerts/test-notification", s.handleTestNotification)

		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
	})
	return logMiddleware(r, s.log)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mon.Status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.mon.Start(s.base)
	writeJSON(w, s.mon.Status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.mon.Stop()
	writeJSON(w, s.mon.Status())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mon.Reset()
	writeJSON(w, s.mon.Status())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mon.Settings())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var in monitor.Settings
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.mon.ApplySettings(in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	out := s.mon.Settings()
	if s.archive != nil {
		b, _ := json.Marshal(out)
		if err := s.archive.SaveSetting(r.Context(), SettingsKey, string(b)); err != nil {
			s.log.Warn("persist settings failed", "err", err)
		}
	}
	writeJSON(w, out)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	cur, ok := s.mon.Current()
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no samples yet"))
		return
	}
	trends := make(map[string]string, len(models.MetricNames))
	for _, name := range models.MetricNames {
		trends[name] = s.mon.Trend(name)
	}
	writeJSON(w, map[string]any{"sample": cur, "trends": trends, "thresholds": s.mon.Thresholds()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	hist := s.mon.History()
	if n, err := strconv.Atoi(r.URL.Query().Get("last")); err == nil && n >= 0 && n < len(hist) {
		hist = hist[len(hist)-n:]
	}
	writeJSON(w, hist)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, errors.New("archive disabled"))
		return
	}
	rng := parseRange(r.URL.Query().Get("range"))
	samples, err := s.archive.RecentSamples(r.Context(), time.Now().Add(-rng), 4096)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, samples)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mon.Alerts())
}

func (s *Server) handleClearAlerts(w http.ResponseWriter, r *http.Request) {
	s.mon.ClearAlerts()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDismissAlert(w http.ResponseWriter, r *http.Request) {
	if !s.mon.DismissAlert(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, errors.New("alert not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAlertArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, errors.New("archive disabled"))
		return
	}
	rng := parseRange(r.URL.Query().Get("range"))
	items, err := s.archive.RecentAlerts(r.Context(), time.Now().Add(-rng), 500)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, items)
}

func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if s.notify == nil {
		writeError(w, http.StatusNotFound, errors.New("notifications disabled"))
		return
	}
	if err := s.notify.Send(r.Context(), "pulsemon test alert: notification channel is working"); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+monitor.ExportFileName(time.Now())+`"`)
	if err := s.mon.WriteExport(w); err != nil {
		s.log.Error("export failed", "err", err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.mon.Import(http.MaxBytesReader(w, r.Body, 32<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, map[string]any{
		"metrics":    len(snap.Metrics),
		"alerts":     len(snap.Alerts),
		"exportTime": snap.ExportTime,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.archive != nil {
		if err := s.archive.Ping(r.Context()); err != nil {
			http.Error(w, "archive not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func parseRange(v string) time.Duration {
	if v == "" {
		return time.Hour
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return time.Hour
	}
	if d <= 0 {
		return time.Hour
	}
	return d
}
