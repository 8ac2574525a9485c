package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scriptflow/scriptflow/internal/models"
	"github.com/scriptflow/scriptflow/internal/storage"
)

// InternalNotifier persists trigger events as in-app notification rows.
// Events go to the alert's owner; alerts without an owner broadcast to
// everyone.
type InternalNotifier struct {
	repo storage.NotificationRepository
}

// NewInternalNotifier creates a notifier writing to the given repository.
func NewInternalNotifier(repo storage.NotificationRepository) *InternalNotifier {
	return &InternalNotifier{repo: repo}
}

// Name returns "internal".
func (n *InternalNotifier) Name() string {
	return ChannelInternal
}

// Send stores one notification row for the event.
func (n *InternalNotifier) Send(ctx context.Context, ev *Event) error {
	a := ev.Alert

	body := fmt.Sprintf("%d ocorrências de %q em %d minutos (limite: %d)",
		ev.MatchedCount, a.ConditionQuery, a.TimeWindowMinutes, a.Threshold)
	if a.CustomMessage != "" {
		body += "\n" + a.CustomMessage
	}

	notification := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    a.CreatedBy,
		AlertID:   a.ID,
		Title:     fmt.Sprintf("Alerta disparado: %s", a.Name),
		Body:      body,
		CreatedAt: time.Now(),
	}

	if err := n.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	return nil
}

// Close is a no-op for the internal notifier.
func (n *InternalNotifier) Close() error {
	return nil
}
