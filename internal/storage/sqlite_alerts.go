package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scriptflow/scriptflow/internal/models"
)

type sqliteAlertRepo struct {
	db *sql.DB
}

const alertColumns = `id, name, description, condition_query, threshold,
	time_window_minutes, status, notify_email, notify_internal,
	email_recipients_json, custom_message, last_triggered_at, trigger_count,
	created_by, created_at, updated_at`

func (r *sqliteAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	recipientsJSON, err := json.Marshal(alert.EmailRecipients)
	if err != nil {
		return fmt.Errorf("marshal recipients: %w", err)
	}

	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		alert.ID, alert.Name, alert.Description, alert.ConditionQuery,
		alert.Threshold, alert.TimeWindowMinutes, string(alert.Status),
		boolToInt(alert.NotifyEmail), boolToInt(alert.NotifyInternal),
		string(recipientsJSON), nullString(alert.CustomMessage),
		alert.LastTriggeredAt, alert.TriggerCount,
		nullString(alert.CreatedBy), alert.CreatedAt, alert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *sqliteAlertRepo) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = ?`
	return r.scanAlert(r.db.QueryRowContext(ctx, query, id))
}

func (r *sqliteAlertRepo) Update(ctx context.Context, alert *models.Alert) error {
	recipientsJSON, err := json.Marshal(alert.EmailRecipients)
	if err != nil {
		return fmt.Errorf("marshal recipients: %w", err)
	}

	query := `
		UPDATE alerts SET name = ?, description = ?, condition_query = ?,
			threshold = ?, time_window_minutes = ?, status = ?,
			notify_email = ?, notify_internal = ?, email_recipients_json = ?,
			custom_message = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		alert.Name, alert.Description, alert.ConditionQuery,
		alert.Threshold, alert.TimeWindowMinutes, string(alert.Status),
		boolToInt(alert.NotifyEmail), boolToInt(alert.NotifyInternal),
		string(recipientsJSON), nullString(alert.CustomMessage),
		alert.UpdatedAt, alert.ID,
	)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert not found: %s", alert.ID)
	}
	return nil
}

func (r *sqliteAlertRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM alerts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert not found: %s", id)
	}
	return nil
}

func (r *sqliteAlertRepo) List(ctx context.Context) ([]*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts ORDER BY name`
	return r.queryAlerts(ctx, query)
}

func (r *sqliteAlertRepo) ListByStatus(ctx context.Context, status models.AlertStatus) ([]*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE status = ? ORDER BY name`
	return r.queryAlerts(ctx, query, string(status))
}

func (r *sqliteAlertRepo) SetStatus(ctx context.Context, id string, status models.AlertStatus) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alerts SET status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set alert status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert not found: %s", id)
	}
	return nil
}

func (r *sqliteAlertRepo) RecordTrigger(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE alerts SET status = ?, last_triggered_at = ?,
			trigger_count = trigger_count + 1, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(models.AlertStatusTriggered), at, at, id, string(models.AlertStatusActive))
	if err != nil {
		return fmt.Errorf("record trigger: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrAlertNotActive
	}
	return nil
}

func (r *sqliteAlertRepo) queryAlerts(ctx context.Context, query string, args ...interface{}) ([]*models.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlertFields(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (r *sqliteAlertRepo) scanAlert(row *sql.Row) (*models.Alert, error) {
	alert, err := scanAlertFields(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return alert, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAlertFields(s scanner) (*models.Alert, error) {
	alert := &models.Alert{}
	var description, customMessage, createdBy sql.NullString
	var recipientsJSON string
	var notifyEmail, notifyInternal int
	var lastTriggered sql.NullTime

	err := s.Scan(
		&alert.ID, &alert.Name, &description, &alert.ConditionQuery,
		&alert.Threshold, &alert.TimeWindowMinutes, (*string)(&alert.Status),
		&notifyEmail, &notifyInternal, &recipientsJSON, &customMessage,
		&lastTriggered, &alert.TriggerCount, &createdBy,
		&alert.CreatedAt, &alert.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	alert.Description = description.String
	alert.CustomMessage = customMessage.String
	alert.CreatedBy = createdBy.String
	alert.NotifyEmail = notifyEmail != 0
	alert.NotifyInternal = notifyInternal != 0
	if lastTriggered.Valid {
		t := lastTriggered.Time
		alert.LastTriggeredAt = &t
	}

	if err := json.Unmarshal([]byte(recipientsJSON), &alert.EmailRecipients); err != nil {
		return nil, fmt.Errorf("unmarshal recipients: %w", err)
	}

	return alert, nil
}
