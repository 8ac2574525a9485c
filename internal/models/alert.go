package models

import (
	"fmt"
	"strings"
	"time"
)

// AlertStatus represents the lifecycle state of an alert.
type AlertStatus string

const (
	// AlertStatusActive marks an alert as eligible for evaluation.
	AlertStatusActive AlertStatus = "active"
	// AlertStatusPaused marks an alert as skipped by evaluation
	// (user-controlled).
	AlertStatusPaused AlertStatus = "paused"
	// AlertStatusTriggered marks an alert whose last evaluation met its
	// threshold. Triggered alerts stay triggered until manually re-armed
	// via pause/resume.
	AlertStatusTriggered AlertStatus = "triggered"
)

// ParseAlertStatus converts a string to AlertStatus, defaulting to active.
func ParseAlertStatus(s string) AlertStatus {
	switch s {
	case "paused":
		return AlertStatusPaused
	case "triggered":
		return AlertStatusTriggered
	default:
		return AlertStatusActive
	}
}

// Alert is a persisted, user-owned monitoring rule. The evaluator counts
// log records matching ConditionQuery inside a trailing window of
// TimeWindowMinutes and fires when the count reaches Threshold.
type Alert struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// ConditionQuery is the raw DSL string, parsed at evaluation time.
	ConditionQuery string `json:"condition_query"`

	// Threshold is the minimum matching-log count to fire (>= 1).
	Threshold int `json:"threshold"`

	// TimeWindowMinutes is the trailing evaluation window (>= 1).
	TimeWindowMinutes int `json:"time_window_minutes"`

	Status AlertStatus `json:"status"`

	// Notification routing.
	NotifyEmail     bool     `json:"notify_email"`
	NotifyInternal  bool     `json:"notify_internal"`
	EmailRecipients []string `json:"email_recipients"`
	CustomMessage   string   `json:"custom_message,omitempty"`

	// LastTriggeredAt and TriggerCount are written only by the evaluator.
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	TriggerCount    int64      `json:"trigger_count"`

	// CreatedBy is the owning user (explicit, never ambient state).
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAlert creates an active Alert with initialized timestamps.
func NewAlert(name, conditionQuery string, threshold, windowMinutes int) *Alert {
	now := time.Now()
	return &Alert{
		Name:              name,
		ConditionQuery:    conditionQuery,
		Threshold:         threshold,
		TimeWindowMinutes: windowMinutes,
		Status:            AlertStatusActive,
		EmailRecipients:   []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Validate checks the alert configuration before persistence.
func (a *Alert) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("alert name is required")
	}
	if a.Threshold < 1 {
		return fmt.Errorf("threshold must be at least 1, got %d", a.Threshold)
	}
	if a.TimeWindowMinutes < 1 {
		return fmt.Errorf("time window must be at least 1 minute, got %d", a.TimeWindowMinutes)
	}
	switch a.Status {
	case AlertStatusActive, AlertStatusPaused, AlertStatusTriggered:
	default:
		return fmt.Errorf("invalid alert status %q", a.Status)
	}
	if a.NotifyEmail && len(a.EmailRecipients) == 0 {
		return fmt.Errorf("email notification requires at least one recipient")
	}
	return nil
}

// Window returns the evaluation window as a duration.
func (a *Alert) Window() time.Duration {
	return time.Duration(a.TimeWindowMinutes) * time.Minute
}
