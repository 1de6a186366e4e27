package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pulsemon/internal/models"
)

const sampleColumns = `ts,source,cpu_usage,memory_usage,response_time,throughput,error_rate,active_connections`

// Repository is the on-disk archive of samples and alerts. The in-memory
// history and alert log stay authoritative for the live dashboard.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *sql.DB { return r.db }

func (r *Repository) InsertSample(ctx context.Context, s models.Sample) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO samples (`+sampleColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		s.Timestamp.UTC(), string(s.Source),
		s.Get(models.CPUUsage), s.Get(models.MemoryUsage), s.Get(models.ResponseTime),
		s.Get(models.Throughput), s.Get(models.ErrorRate), s.Get(models.ActiveConnections))
	return err
}

// RecentSamples returns samples at or after from, oldest first.
func (r *Repository) RecentSamples(ctx context.Context, from time.Time, limit int) ([]models.Sample, error) {
	if limit <= 0 || limit > 5000 {
		limit = 500
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+sampleColumns+` FROM samples WHERE ts >= ? ORDER BY ts ASC LIMIT ?`, from.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Sample, 0, limit)
	for rows.Next() {
		var ts time.Time
		var src string
		var cpu, mem, resp, thr, errRate, conns float64
		if err := rows.Scan(&ts, &src, &cpu, &mem, &resp, &thr, &errRate, &conns); err != nil {
			return nil, err
		}
		s := models.NewSample(ts, models.Source(src))
		s.Values[models.CPUUsage] = cpu
		s.Values[models.MemoryUsage] = mem
		s.Values[models.ResponseTime] = resp
		s.Values[models.Throughput] = thr
		s.Values[models.ErrorRate] = errRate
		s.Values[models.ActiveConnections] = conns
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) SampleCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples`).Scan(&n)
	return n, err
}

func (r *Repository) InsertAlerts(ctx context.Context, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO alerts (id,ts,severity,metric,value,threshold,message) VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, a := range alerts {
		if _, err := stmt.ExecContext(ctx, a.ID, a.Timestamp.UTC(), string(a.Severity), a.Metric, a.Value, a.Threshold, a.Message); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentAlerts returns alerts raised at or after since, newest first.
func (r *Repository) RecentAlerts(ctx context.Context, since time.Time, limit int) ([]models.Alert, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id,ts,severity,metric,value,threshold,message
		FROM alerts WHERE ts >= ? ORDER BY ts DESC, id DESC LIMIT ?`, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Alert, 0, 16)
	for rows.Next() {
		var a models.Alert
		var sev string
		if err := rows.Scan(&a.ID, &a.Timestamp, &sev, &a.Metric, &a.Value, &a.Threshold, &a.Message); err != nil {
			return nil, err
		}
		a.Severity = models.Severity(sev)
		a.Timestamp = a.Timestamp.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) InsertNotificationEvent(ctx context.Context, alertID, channel, status string, attempts int, lastErr string, sent *time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO notification_events (alert_id,channel,status,attempts,last_error,sent_ts_nullable,created_ts) VALUES (?,?,?,?,?,?,?)`, alertID, channel, status, attempts, lastErr, sent, time.Now().UTC())
	return err
}

func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	queries := []string{
		`DELETE FROM samples WHERE ts < ?`,
		`DELETE FROM alerts WHERE ts < ?`,
		`DELETE FROM notification_events WHERE created_ts < ?`,
	}
	for _, q := range queries {
		if _, err := r.db.ExecContext(ctx, q, cutoff.UTC()); err != nil {
			return err
		}
	}
	_, _ = r.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`)
	_, _ = r.db.ExecContext(ctx, `PRAGMA optimize`)
	return nil
}

func (r *Repository) SaveSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO settings(key,value) VALUES (?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// LoadSetting reports ok=false when the key was never saved.
func (r *Repository) LoadSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key=?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *Repository) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }
