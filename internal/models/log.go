// Package models contains the core data structures for ScriptFlow's
// observability core.
package models

import (
	"encoding/json"
	"time"
)

// Severity is the ordered severity level of a log record:
// info < warning < error < critical.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// severityRank orders severities for range comparisons.
var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityError:    2,
	SeverityCritical: 3,
}

// Rank returns the ordinal position of the severity, or -1 for unknown values.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// ParseSeverity converts a string to Severity, defaulting to info.
func ParseSeverity(s string) Severity {
	switch s {
	case "warning", "WARNING", "warn":
		return SeverityWarning
	case "error", "ERROR", "err":
		return SeverityError
	case "critical", "CRITICAL", "crit":
		return SeverityCritical
	default:
		return SeverityInfo
	}
}

// EventType identifies what kind of domain event produced a log record.
type EventType string

const (
	EventChamadoCreated       EventType = "chamado_created"
	EventChamadoUpdated       EventType = "chamado_updated"
	EventChamadoDeleted       EventType = "chamado_deleted"
	EventChamadoStatusChanged EventType = "chamado_status_changed"
	EventScriptCreated        EventType = "script_created"
	EventScriptUpdated        EventType = "script_updated"
	EventScriptDeleted        EventType = "script_deleted"
	EventLogin                EventType = "login"
	EventLogout               EventType = "logout"
	EventUserSignup           EventType = "user_signup"
	EventError                EventType = "error"
	EventSystem               EventType = "system"
	EventCustom               EventType = "custom"
)

// KnownEventTypes lists every canonical event type.
var KnownEventTypes = []EventType{
	EventChamadoCreated, EventChamadoUpdated, EventChamadoDeleted,
	EventChamadoStatusChanged, EventScriptCreated, EventScriptUpdated,
	EventScriptDeleted, EventLogin, EventLogout, EventUserSignup,
	EventError, EventSystem, EventCustom,
}

// LogRecord is an immutable fact describing a system event. Records are
// written once by domain operations and never updated or deleted by this
// subsystem. Timestamps are not guaranteed monotonic (inserts may race),
// so range queries use inclusive boundary comparisons.
type LogRecord struct {
	// ID is the opaque unique identifier for the record.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// UserID and UserEmail identify the optional actor.
	UserID    string `json:"user_id,omitempty"`
	UserEmail string `json:"user_email,omitempty"`

	// EventType classifies the domain event.
	EventType EventType `json:"event_type"`

	// Severity is the ordered severity level.
	Severity Severity `json:"severity"`

	// Message is the free-text description of the event.
	Message string `json:"message"`

	// Origin tags the subsystem that produced the record.
	Origin string `json:"origin,omitempty"`

	// EntityType and EntityID reference the affected domain object
	// (chamado, script), when any.
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`

	// Payload carries event-specific key-value data.
	Payload map[string]interface{} `json:"payload,omitempty"`

	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// NewLogRecord creates a LogRecord with an initialized payload map.
func NewLogRecord() *LogRecord {
	return &LogRecord{
		Payload:   make(map[string]interface{}),
		Severity:  SeverityInfo,
		EventType: EventCustom,
	}
}

// Field returns the value of a canonical queryable field as a string.
// Unknown field names fall back to the payload map.
func (r *LogRecord) Field(name string) string {
	switch name {
	case "event_type":
		return string(r.EventType)
	case "severity":
		return string(r.Severity)
	case "user_id":
		return r.UserID
	case "user_email":
		return r.UserEmail
	case "message":
		return r.Message
	case "origin":
		return r.Origin
	case "entity_type":
		return r.EntityType
	case "entity_id":
		return r.EntityID
	case "ip_address":
		return r.IPAddress
	case "user_agent":
		return r.UserAgent
	default:
		if r.Payload != nil {
			if v, ok := r.Payload[name]; ok {
				if s, ok := v.(string); ok {
					return s
				}
				b, _ := json.Marshal(v)
				return string(b)
			}
		}
		return ""
	}
}

// JSON returns the record as JSON bytes.
func (r *LogRecord) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// String returns a short human-readable representation.
func (r *LogRecord) String() string {
	return r.Timestamp.Format(time.RFC3339) + " [" + string(r.Severity) + "] " + r.Message
}
