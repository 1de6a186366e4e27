package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pulsemon/internal/bus"
	"pulsemon/internal/config"
	"pulsemon/internal/db"
	"pulsemon/internal/hub"
	"pulsemon/internal/models"
	"pulsemon/internal/monitor"
	"pulsemon/internal/notifier"
	"pulsemon/internal/retention"
	"pulsemon/internal/web"
)

type App struct {
	cfg config.Config
	log *slog.Logger

	events  *bus.Bus
	monitor *monitor.Monitor
	hub     *hub.Hub

	db        *db.Repository
	retention *retention.Service
	notify    *notifier.Telegram
	nats      *bus.NATSBridge

	httpSrv *http.Server
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	events := bus.New(logger.With("module", "bus"))
	mon, err := NewMonitor(cfg, events, logger)
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:     cfg,
		log:     logger,
		events:  events,
		monitor: mon,
		hub:     hub.New(cfg.AllowedOrigins, logger.With("module", "hub")),
		notify:  notifier.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID),
	}
	a.subscribe("hub", 256, a.hub.Handle)

	if cfg.ArchivePath != "" {
		if err := a.openArchive(); err != nil {
			return nil, err
		}
	}

	if a.notify.Enabled() {
		minSev, _ := models.ParseSeverity(cfg.NotifyMinSeverity)
		opts := notifier.DefaultForwarderOptions()
		opts.MinSeverity = minSev
		var rec notifier.Recorder
		if a.db != nil {
			rec = a.db
		}
		fwd := notifier.NewForwarder(a.notify, rec, opts, logger.With("module", "notifier"))
		a.subscribe("notifier", 64, fwd.Handle)
	}

	if cfg.NATSURL != "" {
		bridge, err := bus.NewNATSBridge(cfg.NATSURL, cfg.NATSSubject, logger.With("module", "nats"))
		if err != nil {
			logger.Warn("nats unavailable, bridge disabled", "url", cfg.NATSURL, "err", err)
		} else {
			a.nats = bridge
			a.subscribe("nats", 256, bridge.Handle)
		}
	}
	return a, nil
}

func (a *App) openArchive() error {
	sqldb, err := db.Open(a.cfg.ArchivePath)
	if err != nil {
		return err
	}
	if err := db.Migrate(sqldb); err != nil {
		_ = sqldb.Close()
		return err
	}
	a.db = db.NewRepository(sqldb)
	a.retention = retention.NewService(a.db, a.cfg.RetentionDays, a.log.With("module", "retention"))
	a.subscribe("archive", 256, db.NewArchiver(a.db, a.log.With("module", "archive")).Handle)
	a.restoreSettings()
	return nil
}

// restoreSettings applies settings saved through the API on a previous run.
func (a *App) restoreSettings() {
	raw, ok, err := a.db.LoadSetting(context.Background(), web.SettingsKey)
	if err != nil || !ok {
		return
	}
	var s monitor.Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		a.log.Warn("saved settings unreadable", "err", err)
		return
	}
	if err := a.monitor.ApplySettings(s); err != nil {
		a.log.Warn("saved settings rejected", "err", err)
		return
	}
	a.log.Info("restored saved settings", "refresh_ms", s.RefreshIntervalMs, "max_data_points", s.MaxDataPoints)
}

// subscribe registers h for the lifetime of the app; shutdown closes the bus.
func (a *App) subscribe(name string, buffer int, h bus.Handler) {
	a.events.Subscribe(name, buffer, h)
}

func (a *App) Monitor() *monitor.Monitor { return a.monitor }

func (a *App) Handler(ctx context.Context) http.Handler {
	d := web.Deps{
		Monitor:        a.monitor,
		Hub:            http.HandlerFunc(a.hub.HandleConnect),
		AllowedOrigins: a.cfg.AllowedOrigins,
		BaseContext:    ctx,
	}
	if a.db != nil {
		d.Archive = a.db
	}
	if a.notify.Enabled() {
		d.Notifier = a.notify
	}
	return web.NewServer(d, a.log.With("module", "web")).Routes()
}

func (a *App) Run(ctx context.Context) error {
	go a.hub.Run(ctx)
	a.httpSrv = &http.Server{Addr: a.cfg.Addr, Handler: a.Handler(ctx), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		a.log.Info("http server listening", "addr", a.cfg.Addr)
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("http server failed", "err", err)
		}
	}()

	if a.retention != nil {
		go a.retention.Loop(ctx, 6*time.Hour)
	}
	if a.cfg.Autostart {
		a.monitor.Start(ctx)
	}

	<-ctx.Done()
	return a.shutdown()
}

func (a *App) shutdown() error {
	a.monitor.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errs := []error{a.httpSrv.Shutdown(shutdownCtx)}
	a.events.Close()
	if a.nats != nil {
		a.nats.Close()
	}
	if a.db != nil {
		errs = append(errs, a.db.DB().Close())
	}
	return errors.Join(errs...)
}
