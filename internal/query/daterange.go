package query

import (
	"strings"
	"time"
)

// DateRange bounds a query on the record timestamp. A zero Start or End
// leaves that side open.
type DateRange struct {
	Start time.Time `json:"start,omitzero"`
	End   time.Time `json:"end,omitzero"`
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// absoluteLayouts are tried in order when parsing absolute date tokens.
// The dd/mm forms match what ScriptFlow users type.
var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// ResolveDateRange interprets the expression after a date:/data: prefix
// into concrete bounds, relative to now. Supported forms:
//
//   - relative durations: 24h, 7d, 30m, 2w (open-ended toward now)
//   - named days: hoje/today, ontem/yesterday
//   - absolute: a single instant (start only) or start..end
//
// Malformed expressions degrade to unset bounds, never to an error: a bad
// date filter under-restricts instead of failing the query.
func ResolveDateRange(token string, now time.Time) DateRange {
	raw := strings.TrimSpace(token)
	expr := strings.ToLower(raw)
	if expr == "" {
		return DateRange{}
	}

	switch expr {
	case "hoje", "today":
		return DateRange{Start: midnight(now)}
	case "ontem", "yesterday":
		return DateRange{
			Start: midnight(now.AddDate(0, 0, -1)),
			End:   midnight(now),
		}
	}

	if strings.Contains(raw, "..") {
		return resolveAbsoluteRange(raw, now)
	}

	if r, ok := resolveRelative(expr, now); ok {
		return r
	}

	// Single absolute instant: open-ended range from that point.
	if t, ok := parseAbsolute(raw, now.Location()); ok {
		return DateRange{Start: t}
	}

	return DateRange{}
}

// resolveRelative handles a leading integer followed by a unit indicator.
// Units are detected by substring containment, hours before days before
// minutes before weeks, so h wins over the h-less dia and m wins wherever
// it appears.
func resolveRelative(expr string, now time.Time) (DateRange, bool) {
	i := 0
	for i < len(expr) && expr[i] >= '0' && expr[i] <= '9' {
		i++
	}
	if i == 0 {
		return DateRange{}, false
	}

	n := 0
	for _, c := range expr[:i] {
		n = n*10 + int(c-'0')
	}
	unit := expr[i:]

	var d time.Duration
	switch {
	case strings.Contains(unit, "h"):
		d = time.Duration(n) * time.Hour
	case strings.Contains(unit, "d"):
		d = time.Duration(n) * 24 * time.Hour
	// "semana" never reaches the week branch: its "m" wins first.
	case strings.Contains(unit, "m"):
		d = time.Duration(n) * time.Minute
	case strings.Contains(unit, "w"):
		d = time.Duration(n) * 7 * 24 * time.Hour
	default:
		return DateRange{}, false
	}

	return DateRange{Start: now.Add(-d)}, true
}

// resolveAbsoluteRange splits start..end and parses each side
// independently; an unparseable side leaves that bound unset.
func resolveAbsoluteRange(expr string, now time.Time) DateRange {
	parts := strings.SplitN(expr, "..", 2)

	var r DateRange
	if t, ok := parseAbsolute(strings.TrimSpace(parts[0]), now.Location()); ok {
		r.Start = t
	}
	if t, ok := parseAbsolute(strings.TrimSpace(parts[1]), now.Location()); ok {
		r.End = t
	}
	return r
}

func parseAbsolute(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// midnight returns the local start of day for t.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
