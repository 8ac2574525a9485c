// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/scriptflow/scriptflow/internal/models"
)

// Storage is the main interface for relational metadata operations
// (alerts, alert history, internal notifications). Log records live in
// LogStorage, which has different access patterns.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	// Repository accessors
	Alerts() AlertRepository
	AlertHistory() AlertHistoryRepository
	Notifications() NotificationRepository
}

// AlertRepository defines operations for alert rule management.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	Update(ctx context.Context, alert *models.Alert) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Alert, error)
	ListByStatus(ctx context.Context, status models.AlertStatus) ([]*models.Alert, error)
	SetStatus(ctx context.Context, id string, status models.AlertStatus) error

	// RecordTrigger atomically marks the alert triggered, stamps
	// last_triggered_at and increments trigger_count. Returns
	// ErrAlertNotActive when the alert is missing or no longer active,
	// so a concurrent evaluator fires each alert at most once.
	RecordTrigger(ctx context.Context, id string, at time.Time) error
}

// ErrAlertNotActive is returned by RecordTrigger when the alert was not
// in active status at update time.
var ErrAlertNotActive = errors.New("alert not active")

// AlertHistoryRepository defines operations for alert trigger history.
type AlertHistoryRepository interface {
	Create(ctx context.Context, history *models.AlertHistory) error
	List(ctx context.Context, limit, offset int) ([]*models.AlertHistory, int64, error)
	ListByAlert(ctx context.Context, alertID string, limit, offset int) ([]*models.AlertHistory, int64, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// NotificationRepository defines operations for internal notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*models.Notification, int64, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) error
}
