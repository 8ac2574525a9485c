package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scriptflow/scriptflow/internal/models"
)

type sqliteAlertHistoryRepo struct {
	db *sql.DB
}

const historyColumns = `id, alert_id, alert_name, triggered_at, matched_count,
	notification_sent, notification_error, sample_logs_json, created_at`

func (r *sqliteAlertHistoryRepo) Create(ctx context.Context, history *models.AlertHistory) error {
	samples := history.SampleLogs
	if len(samples) > models.MaxSampleLogs {
		samples = samples[:models.MaxSampleLogs]
	}
	samplesJSON, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("marshal sample logs: %w", err)
	}

	query := `
		INSERT INTO alert_history (` + historyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		history.ID, history.AlertID, history.AlertName, history.TriggeredAt,
		history.MatchedCount, boolToInt(history.NotificationSent),
		nullString(history.NotificationError), string(samplesJSON),
		history.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert history: %w", err)
	}
	return nil
}

func (r *sqliteAlertHistoryRepo) List(ctx context.Context, limit, offset int) ([]*models.AlertHistory, int64, error) {
	query := `
		SELECT ` + historyColumns + ` FROM alert_history
		ORDER BY triggered_at DESC LIMIT ? OFFSET ?
	`
	return r.queryHistory(ctx, query, "SELECT COUNT(*) FROM alert_history", nil, limit, offset)
}

func (r *sqliteAlertHistoryRepo) ListByAlert(ctx context.Context, alertID string, limit, offset int) ([]*models.AlertHistory, int64, error) {
	query := `
		SELECT ` + historyColumns + ` FROM alert_history WHERE alert_id = ?
		ORDER BY triggered_at DESC LIMIT ? OFFSET ?
	`
	return r.queryHistory(ctx, query,
		"SELECT COUNT(*) FROM alert_history WHERE alert_id = ?",
		[]interface{}{alertID}, limit, offset)
}

func (r *sqliteAlertHistoryRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM alert_history WHERE triggered_at < ?", before)
	if err != nil {
		return 0, fmt.Errorf("delete alert history: %w", err)
	}
	return result.RowsAffected()
}

func (r *sqliteAlertHistoryRepo) queryHistory(ctx context.Context, query, countQuery string, filterArgs []interface{}, limit, offset int) ([]*models.AlertHistory, int64, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, filterArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count alert history: %w", err)
	}

	args := append(append([]interface{}{}, filterArgs...), limit, offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query alert history: %w", err)
	}
	defer rows.Close()

	var entries []*models.AlertHistory
	for rows.Next() {
		h := &models.AlertHistory{}
		var notifError sql.NullString
		var notifSent int
		var samplesJSON string

		err := rows.Scan(
			&h.ID, &h.AlertID, &h.AlertName, &h.TriggeredAt, &h.MatchedCount,
			&notifSent, &notifError, &samplesJSON, &h.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan alert history: %w", err)
		}

		h.NotificationSent = notifSent != 0
		h.NotificationError = notifError.String
		if err := json.Unmarshal([]byte(samplesJSON), &h.SampleLogs); err != nil {
			return nil, 0, fmt.Errorf("unmarshal sample logs: %w", err)
		}
		entries = append(entries, h)
	}
	return entries, total, rows.Err()
}
