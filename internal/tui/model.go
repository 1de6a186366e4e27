// Package tui is the terminal dashboard for a running monitor.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"pulsemon/internal/bus"
	"pulsemon/internal/monitor"
)

// EventMsg carries a bus event into the program and triggers a redraw.
type EventMsg bus.Event

// Model renders the monitor's state; the monitor itself stays authoritative.
type Model struct {
	mon       *monitor.Monitor
	ctx       context.Context
	exportDir string
	now       func() time.Time

	width     int
	height    int
	status    string
	lastEvent time.Time
}

func NewModel(ctx context.Context, mon *monitor.Monitor, exportDir string) Model {
	if exportDir == "" {
		exportDir = "."
	}
	return Model{mon: mon, ctx: ctx, exportDir: exportDir, now: time.Now}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case EventMsg:
		m.lastEvent = msg.Time
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Toggle):
		if m.mon.Running() {
			m.mon.Stop()
			m.status = "monitoring paused"
		} else {
			m.mon.Start(m.ctx)
			m.status = "monitoring started"
		}
	case key.Matches(msg, keys.Reset):
		m.mon.Reset()
		m.status = "history and alerts cleared"
	case key.Matches(msg, keys.Export):
		path, err := m.export()
		if err != nil {
			m.status = "export failed: " + err.Error()
		} else {
			m.status = "exported to " + path
		}
	case key.Matches(msg, keys.Clear):
		m.mon.ClearAlerts()
		m.status = "alerts cleared"
	case key.Matches(msg, keys.Dismiss):
		items := m.mon.Alerts()
		if len(items) > 0 && m.mon.DismissAlert(items[0].ID) {
			m.status = "dismissed " + items[0].ID
		}
	}
	return m, nil
}

func (m Model) export() (string, error) {
	path := filepath.Join(m.exportDir, monitor.ExportFileName(m.now()))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := m.mon.WriteExport(f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, f.Close()
}
