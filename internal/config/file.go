package config

import (
	"fmt"
	"time"

	"pulsemon/internal/models"
)

// fileConfig mirrors Config with optional fields so that a YAML file only
// overrides what it sets. Durations accept Go syntax ("2s") and the
// millisecond form used by the settings API via refresh_interval_ms.
type fileConfig struct {
	Addr              *string            `yaml:"addr"`
	LogLevel          *string            `yaml:"log_level"`
	AllowedOrigins    []string           `yaml:"allowed_origins"`
	SourceMode        *string            `yaml:"source_mode"`
	TelemetryURL      *string            `yaml:"telemetry_url"`
	TelemetryTimeout  *string            `yaml:"telemetry_timeout"`
	RefreshInterval   *string            `yaml:"refresh_interval"`
	RefreshIntervalMs *int64             `yaml:"refresh_interval_ms"`
	MaxDataPoints     *int               `yaml:"max_data_points"`
	MaxAlerts         *int               `yaml:"max_alerts"`
	Thresholds        map[string]float64 `yaml:"thresholds"`
	DedupPolicy       *string            `yaml:"dedup_policy"`
	WarmupPoints      *int               `yaml:"warmup_points"`
	Autostart         *bool              `yaml:"autostart"`
	ArchivePath       *string            `yaml:"archive_path"`
	RetentionDays     *int               `yaml:"retention_days"`
	NATS              struct {
		URL     *string `yaml:"url"`
		Subject *string `yaml:"subject"`
	} `yaml:"nats"`
	Telegram struct {
		BotToken    *string `yaml:"bot_token"`
		ChatID      *string `yaml:"chat_id"`
		MinSeverity *string `yaml:"min_severity"`
	} `yaml:"telegram"`
	TelemetryAddr *string `yaml:"telemetry_addr"`
}

func (f fileConfig) apply(c *Config) error {
	setString(&c.Addr, f.Addr)
	setString(&c.LogLevel, f.LogLevel)
	if f.AllowedOrigins != nil {
		c.AllowedOrigins = f.AllowedOrigins
	}
	setString(&c.SourceMode, f.SourceMode)
	setString(&c.TelemetryURL, f.TelemetryURL)
	if err := setDuration(&c.TelemetryTO, f.TelemetryTimeout, "telemetry_timeout"); err != nil {
		return err
	}
	if err := setDuration(&c.RefreshEvery, f.RefreshInterval, "refresh_interval"); err != nil {
		return err
	}
	if f.RefreshIntervalMs != nil {
		c.RefreshEvery = time.Duration(*f.RefreshIntervalMs) * time.Millisecond
	}
	setInt(&c.MaxDataPoints, f.MaxDataPoints)
	setInt(&c.MaxAlerts, f.MaxAlerts)
	if f.Thresholds != nil {
		c.Thresholds = models.Thresholds(f.Thresholds)
	}
	setString(&c.DedupPolicy, f.DedupPolicy)
	setInt(&c.WarmupPoints, f.WarmupPoints)
	if f.Autostart != nil {
		c.Autostart = *f.Autostart
	}
	setString(&c.ArchivePath, f.ArchivePath)
	setInt(&c.RetentionDays, f.RetentionDays)
	setString(&c.NATSURL, f.NATS.URL)
	setString(&c.NATSSubject, f.NATS.Subject)
	setString(&c.TelegramBotToken, f.Telegram.BotToken)
	setString(&c.TelegramChatID, f.Telegram.ChatID)
	setString(&c.NotifyMinSeverity, f.Telegram.MinSeverity)
	setString(&c.TelemetryAddr, f.TelemetryAddr)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, key string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
