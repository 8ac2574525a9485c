package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/scriptflow/scriptflow/internal/models"
)

// Matcher evaluates a parsed query against log records. The AND/OR
// filter fold is compiled once into an expr program whose leaves are
// identifiers f0..fN, one per filter; each leaf is evaluated per record
// and bound into the run environment.
type Matcher struct {
	pq      *ParsedQuery
	program *vm.Program
}

// NewMatcher compiles the query's filter fold. A nil or filter-less
// query yields a matcher that only applies text and date checks.
func NewMatcher(pq *ParsedQuery) (*Matcher, error) {
	m := &Matcher{pq: pq}
	if pq == nil || len(pq.Filters) == 0 {
		return m, nil
	}

	program, err := expr.Compile(foldSource(pq.Filters), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter fold: %w", err)
	}
	m.program = program
	return m, nil
}

// Match reports whether rec satisfies the query: the compiled filter
// fold first, then a case-insensitive substring match on message, then
// inclusive date bounds.
func (m *Matcher) Match(rec *models.LogRecord) bool {
	if m.pq == nil {
		return true
	}

	if m.program != nil {
		env := make(map[string]any, len(m.pq.Filters))
		for i, f := range m.pq.Filters {
			env[leafName(i)] = matchFilter(f, rec)
		}
		out, err := expr.Run(m.program, env)
		if err != nil {
			return false
		}
		if ok, _ := out.(bool); !ok {
			return false
		}
	}

	if m.pq.TextSearch != "" {
		if !strings.Contains(strings.ToLower(rec.Message), strings.ToLower(m.pq.TextSearch)) {
			return false
		}
	}

	if m.pq.DateRange != nil {
		if !m.pq.DateRange.Start.IsZero() && rec.Timestamp.Before(m.pq.DateRange.Start) {
			return false
		}
		if !m.pq.DateRange.End.IsZero() && rec.Timestamp.After(m.pq.DateRange.End) {
			return false
		}
	}

	return true
}

// Matches evaluates a parsed query against a single record. Callers
// matching many records should compile a Matcher once instead.
func Matches(pq *ParsedQuery, rec *models.LogRecord) bool {
	m, err := NewMatcher(pq)
	if err != nil {
		return false
	}
	return m.Match(rec)
}

// foldSource renders the filter fold as an expr expression: filters
// combine left to right (each OR binds the next condition to the
// running predicate, everything else is AND), parenthesized explicitly
// so evaluation never depends on operator precedence. Requires at
// least one filter.
func foldSource(filters []Filter) string {
	src := leafName(0)
	for i, f := range filters[1:] {
		op := "&&"
		if f.Logic == LogicOr {
			op = "||"
		}
		src = fmt.Sprintf("(%s %s %s)", src, op, leafName(i+1))
	}
	return src
}

func leafName(i int) string {
	return fmt.Sprintf("f%d", i)
}

func leafIndex(name string) (int, bool) {
	if !strings.HasPrefix(name, "f") {
		return 0, false
	}
	i, err := strconv.Atoi(name[1:])
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

func matchFilter(f Filter, rec *models.LogRecord) bool {
	value := rec.Field(f.Field)

	switch f.Operator {
	case OpEquals:
		return value == f.Value
	case OpNotEquals:
		return value != f.Value
	case OpContains:
		return strings.Contains(strings.ToLower(value), strings.ToLower(f.Value))
	case OpGT:
		return compareValues(f.Field, value, f.Value) > 0
	case OpLT:
		return compareValues(f.Field, value, f.Value) < 0
	case OpGTE:
		return compareValues(f.Field, value, f.Value) >= 0
	case OpLTE:
		return compareValues(f.Field, value, f.Value) <= 0
	default:
		return false
	}
}

// compareValues orders two field values: severities by rank, numbers
// numerically, everything else lexicographically.
func compareValues(field, a, b string) int {
	if field == FieldSeverity {
		ra := models.Severity(a).Rank()
		rb := models.Severity(b).Rank()
		if ra >= 0 && rb >= 0 {
			return ra - rb
		}
	}

	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(a, b)
}
