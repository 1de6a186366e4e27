package tui

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsemon/internal/bus"
	"pulsemon/internal/models"
	"pulsemon/internal/monitor"
	"pulsemon/internal/sampler"
)

func isQuitCmd(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func runeKey(r rune) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}} }

func newTestModel(t *testing.T) (Model, *monitor.Monitor) {
	t.Helper()
	cfg := monitor.DefaultConfig()
	cfg.WarmupPoints = 0
	cfg.Interval = time.Hour
	cfg.Thresholds = models.Thresholds{models.ActiveConnections: 0}
	mon, err := monitor.New(cfg, sampler.NewSynthetic(5), nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(mon.Stop)
	m := NewModel(context.Background(), mon, t.TempDir())
	m.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	return m, mon
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := update(m, runeKey('q'))
	assert.True(t, isQuitCmd(cmd))
}

func TestSpaceTogglesMonitoring(t *testing.T) {
	m, mon := newTestModel(t)
	m, _ = update(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.True(t, mon.Running())
	m, _ = update(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.False(t, mon.Running())
	assert.Equal(t, "monitoring paused", m.status)
}

func TestAlertKeys(t *testing.T) {
	m, mon := newTestModel(t)
	for range 3 {
		require.NoError(t, mon.RunCycle(context.Background()))
	}
	require.Len(t, mon.Alerts(), 3)
	newest := mon.Alerts()[0].ID

	m, _ = update(m, runeKey('d'))
	assert.Len(t, mon.Alerts(), 2)
	assert.NotEqual(t, newest, mon.Alerts()[0].ID)

	m, _ = update(m, runeKey('c'))
	assert.Empty(t, mon.Alerts())

	_, _ = update(m, runeKey('r'))
	assert.Empty(t, mon.History())
}

func TestExportWritesFile(t *testing.T) {
	m, mon := newTestModel(t)
	require.NoError(t, mon.RunCycle(context.Background()))
	m, _ = update(m, runeKey('e'))

	path := filepath.Join(m.exportDir, "performance_data_2026-05-01.json")
	assert.Equal(t, "exported to "+path, m.status)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"exportTime"`)
}

func TestViewRendersState(t *testing.T) {
	m, mon := newTestModel(t)
	assert.Contains(t, m.View(), "no alerts")

	require.NoError(t, mon.RunCycle(context.Background()))
	m, _ = update(m, EventMsg(bus.Event{Type: bus.TypeSampleRecorded, Time: time.Now()}))
	v := m.View()
	for _, title := range metricTitles {
		assert.Contains(t, v, title)
	}
	assert.Contains(t, v, "Alerts (1)")
	assert.Contains(t, v, "STOPPED")
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "", Sparkline(nil))
	assert.Equal(t, "▁▁▁", Sparkline([]float64{5, 5, 5}))
	s := Sparkline([]float64{0, 50, 100})
	assert.Equal(t, 3, len([]rune(s)))
	assert.True(t, strings.HasPrefix(s, "▁"))
	assert.True(t, strings.HasSuffix(s, "█"))
}
