package models

import "time"

// MaxSampleLogs bounds the number of matched records snapshotted into an
// AlertHistory row.
const MaxSampleLogs = 5

// AlertHistory records one alert firing. Rows are append-only and never
// mutated after insert.
type AlertHistory struct {
	ID                string    `json:"id"`
	AlertID           string    `json:"alert_id"`
	AlertName         string    `json:"alert_name"`
	TriggeredAt       time.Time `json:"triggered_at"`
	MatchedCount      int64     `json:"matched_count"`
	NotificationSent  bool      `json:"notification_sent"`
	NotificationError string    `json:"notification_error,omitempty"`

	// SampleLogs is a bounded snapshot of matched records, stored
	// serialized alongside the row.
	SampleLogs []*LogRecord `json:"sample_logs,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
