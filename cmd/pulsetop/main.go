package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"pulsemon/internal/app"
	"pulsemon/internal/bus"
	"pulsemon/internal/config"
	"pulsemon/internal/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	// stdout belongs to the dashboard
	logFile, err := os.OpenFile(filepath.Join(os.TempDir(), "pulsetop.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "log file:", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	events := bus.New(logger.With("module", "bus"))
	defer events.Close()
	mon, err := app.NewMonitor(cfg, events, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "monitor:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	p := tea.NewProgram(tui.NewModel(ctx, mon, "."), tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := events.Subscribe("tui", 64, func(ev bus.Event) { p.Send(tui.EventMsg(ev)) })
	if cfg.Autostart {
		mon.Start(ctx)
	}
	_, runErr := p.Run()
	mon.Stop()
	unsubscribe()
	if runErr != nil {
		logger.Error("dashboard exited with error", "err", runErr)
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}
