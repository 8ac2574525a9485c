package query

import "strings"

// Canonical log-record field names users can filter on.
const (
	FieldEventType  = "event_type"
	FieldUserEmail  = "user_email"
	FieldSeverity   = "severity"
	FieldOrigin     = "origin"
	FieldMessage    = "message"
	FieldEntityType = "entity_type"
)

// fieldAliases maps user-facing field names (bilingual, Portuguese and
// English) to canonical log-record fields. Unrecognized names pass
// through unchanged and are used literally.
var fieldAliases = map[string]string{
	"type":       FieldEventType,
	"tipo":       FieldEventType,
	"user":       FieldUserEmail,
	"usuario":    FieldUserEmail,
	"severity":   FieldSeverity,
	"severidade": FieldSeverity,
	"status":     FieldSeverity,
	"origin":     FieldOrigin,
	"origem":     FieldOrigin,
	"message":    FieldMessage,
	"mensagem":   FieldMessage,
	"entity":     FieldEntityType,
	"entidade":   FieldEntityType,
	"script":     FieldEntityType,
	"chamado":    FieldEntityType,
}

// severityAliases maps localized severity synonyms to canonical values.
var severityAliases = map[string]string{
	"erro":       "error",
	"error":      "error",
	"crítico":    "critical",
	"critico":    "critical",
	"critical":   "critical",
	"aviso":      "warning",
	"warning":    "warning",
	"info":       "info",
	"informação": "info",
	"informacao": "info",
}

// eventTypeAliases maps UI-language words to canonical event-type tokens.
var eventTypeAliases = map[string]string{
	"login":                  "login",
	"logout":                 "logout",
	"cadastro":               "user_signup",
	"signup":                 "user_signup",
	"user_signup":            "user_signup",
	"chamado_criado":         "chamado_created",
	"chamado_created":        "chamado_created",
	"chamado_atualizado":     "chamado_updated",
	"chamado_updated":        "chamado_updated",
	"chamado_excluido":       "chamado_deleted",
	"chamado_deleted":        "chamado_deleted",
	"chamado_status":         "chamado_status_changed",
	"chamado_status_changed": "chamado_status_changed",
	"script_criado":          "script_created",
	"script_created":         "script_created",
	"script_atualizado":      "script_updated",
	"script_updated":         "script_updated",
	"script_excluido":        "script_deleted",
	"script_deleted":         "script_deleted",
	"erro":                   "error",
	"error":                  "error",
	"sistema":                "system",
	"system":                 "system",
}

// NormalizeField resolves a raw field name (case-insensitive) to its
// canonical log-record field. Unknown names keep their original casing
// and are used literally, so mixed-case payload keys stay reachable.
func NormalizeField(raw string) string {
	name := strings.TrimSpace(raw)
	if canonical, ok := fieldAliases[strings.ToLower(name)]; ok {
		return canonical
	}
	return name
}

// NormalizeValue resolves localized value synonyms for severity and
// event_type fields. Values for all other fields are returned verbatim
// after quote stripping.
func NormalizeValue(canonicalField, raw string) string {
	value := stripQuotes(raw)

	switch canonicalField {
	case FieldSeverity:
		if v, ok := severityAliases[strings.ToLower(value)]; ok {
			return v
		}
	case FieldEventType:
		if v, ok := eventTypeAliases[strings.ToLower(value)]; ok {
			return v
		}
	}
	return value
}
