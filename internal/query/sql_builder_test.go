package query

import (
	"strings"
	"testing"
)

func TestBuildWhere(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantSQL  string
		wantArgs []any
	}{
		{
			"empty query",
			"",
			"",
			nil,
		},
		{
			"single equals",
			"severity=error",
			"severity = ?",
			[]any{"error"},
		},
		{
			"implicit AND folds left to right",
			"severity=error origin=api",
			"(severity = ? AND origin = ?)",
			[]any{"error", "api"},
		},
		{
			"OR then AND keeps fold order",
			"type=login OR type=logout severity=error",
			"((event_type = ? OR event_type = ?) AND severity = ?)",
			[]any{"login", "logout", "error"},
		},
		{
			"not equals",
			"origin!=web",
			"origin != ?",
			[]any{"web"},
		},
		{
			"contains lowercases both sides",
			"message~Timeout",
			"position(lower(message), ?) > 0",
			[]any{"timeout"},
		},
		{
			"severity range uses rank transform",
			"severity>=warning",
			severityRankSQL + " >= ?",
			[]any{1},
		},
		{
			"unknown field goes through payload",
			"tentativas>2",
			"JSONExtractString(payload, 'tentativas') > ?",
			[]any{"2"},
		},
		{
			"free text",
			"erro no servidor",
			"position(lower(message), ?) > 0",
			[]any{"erro no servidor"},
		},
		{
			"filters and text combine with AND",
			"severity=error timeout",
			"severity = ? AND position(lower(message), ?) > 0",
			[]any{"error", "timeout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := BuildWhere(Parse(tt.raw, testNow))
			if res.SQL != tt.wantSQL {
				t.Errorf("SQL = %q, want %q", res.SQL, tt.wantSQL)
			}
			if len(res.Args) != len(tt.wantArgs) {
				t.Fatalf("Args = %v, want %v", res.Args, tt.wantArgs)
			}
			for i := range tt.wantArgs {
				if res.Args[i] != tt.wantArgs[i] {
					t.Errorf("Args[%d] = %v, want %v", i, res.Args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestBuildWhereDeepFold(t *testing.T) {
	// Four filters walk back out of the AST in filter order, with one
	// group per fold step.
	res := BuildWhere(Parse("severity=error origin=api OR origin=worker type=login", testNow))

	wantSQL := "(((severity = ? AND origin = ?) OR origin = ?) AND event_type = ?)"
	if res.SQL != wantSQL {
		t.Errorf("SQL = %q, want %q", res.SQL, wantSQL)
	}

	wantArgs := []any{"error", "api", "worker", "login"}
	if len(res.Args) != len(wantArgs) {
		t.Fatalf("Args = %v, want %v", res.Args, wantArgs)
	}
	for i := range wantArgs {
		if res.Args[i] != wantArgs[i] {
			t.Errorf("Args[%d] = %v, want %v", i, res.Args[i], wantArgs[i])
		}
	}
}

func TestBuildWhereDateBounds(t *testing.T) {
	pq := Parse("date:ontem", testNow)
	res := BuildWhere(pq)
	if res.SQL != "timestamp >= ? AND timestamp <= ?" {
		t.Errorf("SQL = %q", res.SQL)
	}
	if len(res.Args) != 2 {
		t.Fatalf("Args = %v", res.Args)
	}

	pq = Parse("date:24h", testNow)
	res = BuildWhere(pq)
	if res.SQL != "timestamp >= ?" {
		t.Errorf("SQL = %q", res.SQL)
	}
}

func TestBuildWhereRejectsBadIdentifiers(t *testing.T) {
	// Field names that are not plain identifiers must never reach the
	// generated SQL text.
	pq := &ParsedQuery{Filters: []Filter{{
		Field:    "a.b'); drop table logs; --",
		Operator: OpEquals,
		Value:    "x",
	}}}
	res := BuildWhere(pq)
	if res.SQL != "1 = 1" {
		t.Errorf("SQL = %q, want neutral condition", res.SQL)
	}
	if strings.Contains(res.SQL, "drop") {
		t.Errorf("field name leaked into SQL: %q", res.SQL)
	}
}
