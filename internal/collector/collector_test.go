package collector

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProc(t *testing.T, root, stat, meminfo string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, "stat"), []byte(stat), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "meminfo"), []byte(meminfo), 0o600))
}

const meminfo = "MemTotal:       1000 kB\nMemFree:         100 kB\nMemAvailable:    250 kB\n"

func TestHostCollectorCPUDelta(t *testing.T) {
	root := t.TempDir()
	h := &HostCollector{procRoot: root}

	writeProc(t, root, "cpu  100 0 100 800 0 0 0 0 0 0\ncpu0 1 1 1 1\n", meminfo)
	r, err := h.Collect()
	require.NoError(t, err)
	assert.False(t, r.CPUValid)
	assert.InDelta(t, 75, r.MemPct, 0.001)

	// 200 more jiffies, 50 of them idle
	writeProc(t, root, "cpu  175 0 175 850 0 0 0 0 0 0\n", meminfo)
	r, err = h.Collect()
	require.NoError(t, err)
	assert.True(t, r.CPUValid)
	assert.InDelta(t, 75, r.CPUPct, 0.001)
}

func TestHostCollectorMissingProc(t *testing.T) {
	h := &HostCollector{procRoot: filepath.Join(t.TempDir(), "nope")}
	_, err := h.Collect()
	assert.Error(t, err)
}

func TestPayloadRanges(t *testing.T) {
	s := NewService(nil, 7, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return time.Unix(1700000000, 500_000_000) }
	for range 200 {
		p := s.Payload()
		assert.Equal(t, 1700000000.5, p[FieldTimestamp])
		assert.GreaterOrEqual(t, p[FieldCPU].(float64), 20.0)
		assert.LessOrEqual(t, p[FieldCPU].(float64), 80.0)
		assert.GreaterOrEqual(t, p[FieldMemory].(float64), 30.0)
		assert.LessOrEqual(t, p[FieldMemory].(float64), 70.0)
		assert.GreaterOrEqual(t, p[FieldResponse].(float64), 100.0)
		assert.LessOrEqual(t, p[FieldResponse].(float64), 500.0)
		assert.LessOrEqual(t, p[FieldErrorRate].(float64), 2.0)
		conns := p[FieldConnections].(float64)
		assert.Equal(t, float64(int(conns)), conns)
		assert.GreaterOrEqual(t, conns, 10.0)
		assert.LessOrEqual(t, conns, 100.0)
	}
}

func TestPayloadUsesHostReadings(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, "cpu  100 0 100 800 0 0 0 0 0 0\n", meminfo)
	s := NewService(&HostCollector{procRoot: root}, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p := s.Payload()
	assert.Equal(t, 75.0, p[FieldMemory])
}

func TestPayloadIsReproducibleForSeed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := func() time.Time { return time.Unix(1700000000, 0) }
	a := NewService(nil, 42, logger)
	b := NewService(nil, 42, logger)
	a.now, b.now = now, now
	for range 50 {
		require.Equal(t, a.Payload(), b.Payload())
	}
}
