package query

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/scriptflow/scriptflow/internal/models"
)

// logColumns whitelists canonical fields against their ClickHouse columns.
// Anything else is read from the payload JSON column.
var logColumns = map[string]string{
	"id":          "id",
	"timestamp":   "timestamp",
	"user_id":     "user_id",
	"user_email":  "user_email",
	"event_type":  "event_type",
	"severity":    "severity",
	"message":     "message",
	"origin":      "origin",
	"entity_type": "entity_type",
	"entity_id":   "entity_id",
	"ip_address":  "ip_address",
	"user_agent":  "user_agent",
}

// severityRankSQL orders the severity column for range operators.
const severityRankSQL = "transform(severity, ['info','warning','error','critical'], [0,1,2,3], -1)"

// BuildResult is a parameterized WHERE fragment.
type BuildResult struct {
	SQL  string
	Args []any
}

// BuildWhere compiles a parsed query into a ClickHouse WHERE fragment.
// The filter fold is parsed into the same expr AST the matcher compiles
// and walked into SQL, so both sides share one shape; text search and
// date bounds are ANDed on top. An empty query produces an empty
// fragment (no restriction).
func BuildWhere(pq *ParsedQuery) *BuildResult {
	res := &BuildResult{}
	if pq == nil {
		return res
	}

	var conds []string

	if len(pq.Filters) > 0 {
		if tree, err := parser.Parse(foldSource(pq.Filters)); err == nil {
			conds = append(conds, res.visitFold(tree.Node, pq.Filters))
		}
	}

	if pq.TextSearch != "" {
		conds = append(conds, "position(lower(message), ?) > 0")
		res.Args = append(res.Args, strings.ToLower(pq.TextSearch))
	}

	if pq.DateRange != nil {
		if !pq.DateRange.Start.IsZero() {
			conds = append(conds, "timestamp >= ?")
			res.Args = append(res.Args, pq.DateRange.Start)
		}
		if !pq.DateRange.End.IsZero() {
			conds = append(conds, "timestamp <= ?")
			res.Args = append(res.Args, pq.DateRange.End)
		}
	}

	res.SQL = strings.Join(conds, " AND ")
	return res
}

// visitFold walks the fold AST: binary nodes become parenthesized
// AND/OR groups, identifier leaves (f0..fN) resolve back to their
// filter's parameterized condition. Left is visited before right so
// argument order follows filter order.
func (r *BuildResult) visitFold(node ast.Node, filters []Filter) string {
	switch n := node.(type) {
	case *ast.BinaryNode:
		op := "AND"
		if n.Operator == "||" {
			op = "OR"
		}
		left := r.visitFold(n.Left, filters)
		right := r.visitFold(n.Right, filters)
		return fmt.Sprintf("(%s %s %s)", left, op, right)
	case *ast.IdentifierNode:
		if i, ok := leafIndex(n.Value); ok && i < len(filters) {
			return r.filterSQL(filters[i])
		}
	}
	return "1 = 1"
}

// filterSQL renders one filter as a parameterized condition.
func (r *BuildResult) filterSQL(f Filter) string {
	column, ok := logColumns[f.Field]
	if !ok {
		// Payload lookup for literal field names; reject anything that
		// is not a plain identifier rather than interpolating it.
		if !isIdentifier(f.Field) {
			return "1 = 1"
		}
		column = fmt.Sprintf("JSONExtractString(payload, '%s')", f.Field)
	}

	switch f.Operator {
	case OpNotEquals:
		r.Args = append(r.Args, f.Value)
		return fmt.Sprintf("%s != ?", column)
	case OpContains:
		r.Args = append(r.Args, strings.ToLower(f.Value))
		return fmt.Sprintf("position(lower(%s), ?) > 0", column)
	case OpGT, OpLT, OpGTE, OpLTE:
		return r.orderedSQL(f, column)
	default:
		r.Args = append(r.Args, f.Value)
		return fmt.Sprintf("%s = ?", column)
	}
}

var orderedOps = map[FilterOp]string{
	OpGT:  ">",
	OpLT:  "<",
	OpGTE: ">=",
	OpLTE: "<=",
}

func (r *BuildResult) orderedSQL(f Filter, column string) string {
	op := orderedOps[f.Operator]

	// Severity compares by rank, not lexicographically.
	if f.Field == FieldSeverity {
		if rank := models.Severity(f.Value).Rank(); rank >= 0 {
			r.Args = append(r.Args, rank)
			return fmt.Sprintf("%s %s ?", severityRankSQL, op)
		}
	}

	r.Args = append(r.Args, f.Value)
	return fmt.Sprintf("%s %s ?", column, op)
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') &&
			(c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}
