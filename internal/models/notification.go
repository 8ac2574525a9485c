package models

import "time"

// Notification is an internal notification row consumed by the ScriptFlow
// notification bell. Rows are written when an alert with notify_internal
// fires.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"` // empty means broadcast
	AlertID   string    `json:"alert_id,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
