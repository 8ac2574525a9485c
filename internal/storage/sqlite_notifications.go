package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/scriptflow/scriptflow/internal/models"
)

type sqliteNotificationRepo struct {
	db *sql.DB
}

func (r *sqliteNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, alert_id, title, body, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		n.ID, nullString(n.UserID), nullString(n.AlertID),
		n.Title, n.Body, boolToInt(n.Read), n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListForUser returns notifications addressed to the user plus
// broadcasts (empty user_id), newest first.
func (r *sqliteNotificationRepo) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*models.Notification, int64, error) {
	if limit <= 0 {
		limit = 50
	}

	where := "(user_id = ? OR user_id IS NULL)"
	args := []interface{}{userID}
	if unreadOnly {
		where += " AND read = 0"
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM notifications WHERE " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	query := `
		SELECT id, user_id, alert_id, title, body, read, created_at
		FROM notifications WHERE ` + where + `
		ORDER BY created_at DESC LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var userID, alertID sql.NullString
		var read int
		if err := rows.Scan(&n.ID, &userID, &alertID, &n.Title, &n.Body, &read, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		n.UserID = userID.String
		n.AlertID = alertID.String
		n.Read = read != 0
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (r *sqliteNotificationRepo) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE notifications SET read = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("notification not found: %s", id)
	}
	return nil
}

func (r *sqliteNotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE read = 0 AND (user_id = ? OR user_id IS NULL)",
		userID,
	)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}
