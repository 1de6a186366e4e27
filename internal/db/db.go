package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA synchronous=NORMAL; PRAGMA temp_store=MEMORY;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts DATETIME NOT NULL,
			source TEXT NOT NULL,
			cpu_usage REAL NOT NULL,
			memory_usage REAL NOT NULL,
			response_time REAL NOT NULL,
			throughput REAL NOT NULL,
			error_rate REAL NOT NULL,
			active_connections REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			ts DATETIME NOT NULL,
			severity TEXT NOT NULL,
			metric TEXT NOT NULL,
			value REAL NOT NULL,
			threshold REAL NOT NULL,
			message TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS notification_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			alert_id TEXT NOT NULL,
			channel TEXT NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			last_error TEXT,
			sent_ts_nullable DATETIME,
			created_ts DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_samples_ts ON samples(ts DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(ts DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_metric_ts ON alerts(metric, ts DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
	}
	// Databases created before created_ts existed get the column backfilled
	// with the epoch so their rows fall out at the next prune.
	has, err := hasColumn(db, "notification_events", "created_ts")
	if err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	if !has {
		if _, err := db.Exec(`ALTER TABLE notification_events ADD COLUMN created_ts DATETIME NOT NULL DEFAULT '1970-01-01 00:00:00'`); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_notification_events_created ON notification_events(created_ts);`); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	return nil
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
