package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsemon/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_CONFIG_FILE", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.RefreshEvery)
	assert.Equal(t, 20, cfg.MaxDataPoints)
	assert.Equal(t, 10, cfg.MaxAlerts)
	assert.Equal(t, models.DefaultThresholds(), cfg.Thresholds)
	assert.Equal(t, "error", cfg.NotifyMinSeverity)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulsemon.yaml")
	body := `
addr: ":9090"
refresh_interval_ms: 500
max_data_points: 50
thresholds:
  cpuUsage: 70
  throughput: 900
nats:
  url: nats://localhost:4222
telegram:
  min_severity: warning
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("APP_CONFIG_FILE", path)
	t.Setenv("APP_MAX_DATA_POINTS", "30")
	t.Setenv("APP_THRESHOLD_ERROR_RATE", "3.5")
	t.Setenv("APP_THRESHOLD_CPU_USAGE", "off")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 500*time.Millisecond, cfg.RefreshEvery)
	assert.Equal(t, 30, cfg.MaxDataPoints)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, "warning", cfg.NotifyMinSeverity)
	assert.Equal(t, models.Thresholds{models.Throughput: 900, models.ErrorRate: 3.5}, cfg.Thresholds)
}

func TestLoadRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("refresh_interval: soon\n"), 0o600))
	t.Setenv("APP_CONFIG_FILE", path)
	_, err := Load()
	assert.ErrorContains(t, err, "refresh_interval")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.MaxAlerts = 0
	assert.ErrorIs(t, cfg.Validate(), models.ErrInvalidCapacity)

	cfg = Default()
	cfg.RefreshEvery = 0
	assert.ErrorIs(t, cfg.Validate(), models.ErrInvalidInterval)

	cfg = Default()
	cfg.Thresholds = models.Thresholds{"diskUsage": 1}
	assert.ErrorContains(t, cfg.Validate(), "diskUsage")
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "CPU_USAGE", envName(models.CPUUsage))
	assert.Equal(t, "ACTIVE_CONNECTIONS", envName(models.ActiveConnections))
}

func TestGetenvBool(t *testing.T) {
	t.Setenv("X_FLAG", "off")
	assert.False(t, getenvBool("X_FLAG", true))
	t.Setenv("X_FLAG", "maybe")
	assert.True(t, getenvBool("X_FLAG", true))
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Config{LogLevel: "debug"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, Config{LogLevel: "WARN"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: "chatty"}.SlogLevel())
}
