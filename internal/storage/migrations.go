package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Alert rules table
			CREATE TABLE IF NOT EXISTS alerts (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT,
				condition_query TEXT NOT NULL,
				threshold INTEGER NOT NULL,
				time_window_minutes INTEGER NOT NULL,
				status TEXT NOT NULL DEFAULT 'active',
				notify_email INTEGER NOT NULL DEFAULT 0,
				notify_internal INTEGER NOT NULL DEFAULT 1,
				email_recipients_json TEXT NOT NULL DEFAULT '[]',
				custom_message TEXT,
				last_triggered_at DATETIME,
				trigger_count INTEGER NOT NULL DEFAULT 0,
				created_by TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Alert trigger history table
			CREATE TABLE IF NOT EXISTS alert_history (
				id TEXT PRIMARY KEY,
				alert_id TEXT NOT NULL,
				alert_name TEXT NOT NULL,
				triggered_at DATETIME NOT NULL,
				matched_count INTEGER NOT NULL,
				notification_sent INTEGER NOT NULL DEFAULT 0,
				notification_error TEXT,
				sample_logs_json TEXT NOT NULL DEFAULT '[]',
				created_at DATETIME NOT NULL,
				FOREIGN KEY (alert_id) REFERENCES alerts(id) ON DELETE CASCADE
			);

			-- Internal notifications table
			CREATE TABLE IF NOT EXISTS notifications (
				id TEXT PRIMARY KEY,
				user_id TEXT,
				alert_id TEXT,
				title TEXT NOT NULL,
				body TEXT NOT NULL,
				read INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
			CREATE INDEX IF NOT EXISTS idx_alert_history_alert ON alert_history(alert_id);
			CREATE INDEX IF NOT EXISTS idx_alert_history_triggered ON alert_history(triggered_at);
			CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);
			CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
