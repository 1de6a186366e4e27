package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pulsemon/internal/models"
)

type Config struct {
	Addr           string
	LogLevel       string
	AllowedOrigins []string
	SourceMode     string
	TelemetryURL   string
	TelemetryTO    time.Duration
	RefreshEvery   time.Duration
	MaxDataPoints  int
	MaxAlerts      int
	Thresholds     models.Thresholds
	DedupPolicy    string
	WarmupPoints   int
	Autostart      bool

	ArchivePath   string
	RetentionDays int

	NATSURL     string
	NATSSubject string

	TelegramBotToken  string
	TelegramChatID    string
	NotifyMinSeverity string

	// telemetryd
	TelemetryAddr string
}

func Default() Config {
	return Config{
		Addr:              ":8080",
		LogLevel:          "info",
		SourceMode:        "remote",
		TelemetryURL:      "http://localhost:8000/api/metrics",
		TelemetryTO:       2 * time.Second,
		RefreshEvery:      2 * time.Second,
		MaxDataPoints:     20,
		MaxAlerts:         10,
		Thresholds:        models.DefaultThresholds(),
		DedupPolicy:       "none",
		WarmupPoints:      10,
		Autostart:         true,
		RetentionDays:     14,
		NATSSubject:       "pulsemon",
		NotifyMinSeverity: "error",
		TelemetryAddr:     ":8000",
	}
}

// Load starts from Default, applies the YAML file named by APP_CONFIG_FILE
// (if any) and then environment overrides.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("APP_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc.apply(c)
}

func (c *Config) applyEnv() {
	c.Addr = getenv("APP_ADDR", c.Addr)
	c.LogLevel = getenv("APP_LOG_LEVEL", c.LogLevel)
	if v := getenv("APP_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	c.SourceMode = getenv("APP_SOURCE_MODE", c.SourceMode)
	c.TelemetryURL = getenv("APP_TELEMETRY_URL", c.TelemetryURL)
	c.TelemetryTO = getenvDuration("APP_TELEMETRY_TIMEOUT", c.TelemetryTO)
	c.RefreshEvery = getenvDuration("APP_REFRESH_INTERVAL", c.RefreshEvery)
	c.MaxDataPoints = getenvInt("APP_MAX_DATA_POINTS", c.MaxDataPoints)
	c.MaxAlerts = getenvInt("APP_MAX_ALERTS", c.MaxAlerts)
	c.DedupPolicy = getenv("APP_DEDUP_POLICY", c.DedupPolicy)
	c.WarmupPoints = getenvInt("APP_WARMUP_POINTS", c.WarmupPoints)
	c.Autostart = getenvBool("APP_AUTOSTART", c.Autostart)
	c.ArchivePath = getenv("APP_ARCHIVE_PATH", c.ArchivePath)
	c.RetentionDays = getenvInt("APP_RETENTION_DAYS", c.RetentionDays)
	c.NATSURL = getenv("APP_NATS_URL", c.NATSURL)
	c.NATSSubject = getenv("APP_NATS_SUBJECT", c.NATSSubject)
	c.TelegramBotToken = getenv("TELEGRAM_BOT_TOKEN", c.TelegramBotToken)
	c.TelegramChatID = getenv("TELEGRAM_CHAT_ID", c.TelegramChatID)
	c.NotifyMinSeverity = getenv("APP_NOTIFY_MIN_SEVERITY", c.NotifyMinSeverity)
	c.TelemetryAddr = getenv("TELEMETRY_ADDR", c.TelemetryAddr)
	for _, name := range models.MetricNames {
		key := "APP_THRESHOLD_" + envName(name)
		v := strings.TrimSpace(os.Getenv(key))
		switch {
		case v == "":
		case strings.EqualFold(v, "off"):
			delete(c.Thresholds, name)
		default:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				if c.Thresholds == nil {
					c.Thresholds = models.Thresholds{}
				}
				c.Thresholds[name] = f
			}
		}
	}
}

func (c Config) Validate() error {
	if c.RefreshEvery <= 0 {
		return fmt.Errorf("refresh_interval: %w", models.ErrInvalidInterval)
	}
	if c.MaxDataPoints <= 0 {
		return fmt.Errorf("max_data_points: %w", models.ErrInvalidCapacity)
	}
	if c.MaxAlerts <= 0 {
		return fmt.Errorf("max_alerts: %w", models.ErrInvalidCapacity)
	}
	for k := range c.Thresholds {
		if !knownMetric(k) {
			return fmt.Errorf("thresholds: unknown metric %q", k)
		}
	}
	if _, err := models.ParseSeverity(c.NotifyMinSeverity); err != nil {
		return fmt.Errorf("notify_min_severity: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel onto slog, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// envName turns cpuUsage into CPU_USAGE.
func envName(metric string) string {
	var b strings.Builder
	for i, r := range metric {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

func knownMetric(name string) bool {
	for _, n := range models.MetricNames {
		if n == name {
			return true
		}
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func getenvDuration(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		return d
	}
	return dur
}

func getenvBool(k string, d bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(k)))
	if v == "" {
		return d
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	return d
}
