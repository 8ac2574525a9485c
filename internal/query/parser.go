package query

import (
	"regexp"
	"strings"
	"time"
)

// FilterOp is a canonical filter operator.
type FilterOp string

const (
	OpEquals    FilterOp = "equals"
	OpNotEquals FilterOp = "not_equals"
	OpGT        FilterOp = "gt"
	OpLT        FilterOp = "lt"
	OpGTE       FilterOp = "gte"
	OpLTE       FilterOp = "lte"
	OpContains  FilterOp = "contains"
)

// Logic joins a filter with the running predicate built from the filters
// before it.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Filter is one field condition of a parsed query. Logic is empty on the
// first filter (nothing precedes it) and AND or OR on every later one.
type Filter struct {
	Field    string   `json:"field"`
	Operator FilterOp `json:"operator"`
	Value    string   `json:"value"`
	Logic    Logic    `json:"logic,omitempty"`
}

// ParsedQuery is the structured result of parsing a raw query string.
// Filters preserve input token order; re-parsing the same string is
// deterministic.
type ParsedQuery struct {
	Filters []Filter `json:"filters"`

	// TextSearch is the space-joined concatenation of tokens that did not
	// match a filter pattern, interpreted as a case-insensitive substring
	// match on message.
	TextSearch string `json:"text_search"`

	// DateRange is set by a date:/data: directive; the last directive in
	// the query wins.
	DateRange *DateRange `json:"date_range,omitempty"`
}

// IsEmpty reports whether the query restricts nothing.
func (pq *ParsedQuery) IsEmpty() bool {
	return len(pq.Filters) == 0 && pq.TextSearch == "" &&
		(pq.DateRange == nil || pq.DateRange.IsZero())
}

// filterPattern matches field<op>value tokens. Multi-character operators
// come first so != is not read as = with a leading !.
var filterPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)(!=|<>|>=|<=|~|\*|:|=|>|<)(.+)$`)

// Parse turns a raw query string into a ParsedQuery, relative to now
// (date directives resolve against it). Parsing never fails: malformed
// fragments degrade to free-text search terms, unknown fields pass
// through literally, and bad dates leave bounds unset.
func Parse(raw string, now time.Time) *ParsedQuery {
	pq := &ParsedQuery{}

	tokens := Tokenize(raw)
	if len(tokens) == 0 {
		return pq
	}

	var textTerms []string
	currentLogic := LogicAnd

	for _, token := range tokens {
		upper := strings.ToUpper(token)
		if upper == "AND" || upper == "OR" {
			currentLogic = Logic(upper)
			continue
		}

		lower := strings.ToLower(token)
		if strings.HasPrefix(lower, "date:") || strings.HasPrefix(lower, "data:") {
			r := ResolveDateRange(token[len("date:"):], now)
			pq.DateRange = &r
			continue
		}

		if m := filterPattern.FindStringSubmatch(token); m != nil {
			field := NormalizeField(m[1])
			f := Filter{
				Field:    field,
				Operator: mapOperator(m[2]),
				Value:    NormalizeValue(field, m[3]),
			}
			if len(pq.Filters) > 0 {
				f.Logic = currentLogic
			}
			pq.Filters = append(pq.Filters, f)

			// OR applies to one alternation only; it must be restated
			// before every further one.
			currentLogic = LogicAnd
			continue
		}

		textTerms = append(textTerms, stripQuotes(token))
	}

	pq.TextSearch = strings.Join(textTerms, " ")
	return pq
}

// mapOperator converts raw operator characters to the canonical set.
func mapOperator(op string) FilterOp {
	switch op {
	case "!=", "<>":
		return OpNotEquals
	case ">":
		return OpGT
	case "<":
		return OpLT
	case ">=":
		return OpGTE
	case "<=":
		return OpLTE
	case "~", "*":
		return OpContains
	default: // ":" and "="
		return OpEquals
	}
}
