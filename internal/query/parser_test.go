package query

import (
	"reflect"
	"testing"
	"time"
)

func TestParseEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		pq := Parse(raw, testNow)
		if len(pq.Filters) != 0 || pq.TextSearch != "" || pq.DateRange != nil {
			t.Errorf("Parse(%q) = %+v, want empty query", raw, pq)
		}
		if !pq.IsEmpty() {
			t.Errorf("Parse(%q).IsEmpty() = false", raw)
		}
	}
}

func TestParseDeterminism(t *testing.T) {
	raw := `severity=critical AND type=login OR type=logout date:24h "texto livre"`
	a := Parse(raw, testNow)
	b := Parse(raw, testNow)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("re-parsing produced different results:\n%+v\n%+v", a, b)
	}
}

func TestParseFilters(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Filter
	}{
		{
			"implicit AND between filters",
			"type=erro severity=critical",
			[]Filter{
				{Field: "event_type", Operator: OpEquals, Value: "error"},
				{Field: "severity", Operator: OpEquals, Value: "critical", Logic: LogicAnd},
			},
		},
		{
			"explicit OR",
			"type=login OR type=logout",
			[]Filter{
				{Field: "event_type", Operator: OpEquals, Value: "login"},
				{Field: "event_type", Operator: OpEquals, Value: "logout", Logic: LogicOr},
			},
		},
		{
			"OR applies once then resets to AND",
			"type=login OR type=logout severity=info",
			[]Filter{
				{Field: "event_type", Operator: OpEquals, Value: "login"},
				{Field: "event_type", Operator: OpEquals, Value: "logout", Logic: LogicOr},
				{Field: "severity", Operator: OpEquals, Value: "info", Logic: LogicAnd},
			},
		},
		{
			"field alias normalization",
			"severidade=erro",
			[]Filter{{Field: "severity", Operator: OpEquals, Value: "error"}},
		},
		{
			"alias lookup ignores case",
			"Severidade=erro",
			[]Filter{{Field: "severity", Operator: OpEquals, Value: "error"}},
		},
		{
			"unknown field keeps its casing",
			"requestId=abc-123",
			[]Filter{{Field: "requestId", Operator: OpEquals, Value: "abc-123"}},
		},
		{
			"portuguese event type value",
			"tipo=chamado_criado",
			[]Filter{{Field: "event_type", Operator: OpEquals, Value: "chamado_created"}},
		},
		{
			"user alias",
			"usuario=ana@empresa.com",
			[]Filter{{Field: "user_email", Operator: OpEquals, Value: "ana@empresa.com"}},
		},
		{
			"operator variants",
			"severity!=info severity>=warning origem<>api",
			[]Filter{
				{Field: "severity", Operator: OpNotEquals, Value: "info"},
				{Field: "severity", Operator: OpGTE, Value: "warning", Logic: LogicAnd},
				{Field: "origin", Operator: OpNotEquals, Value: "api", Logic: LogicAnd},
			},
		},
		{
			"contains with quoted phrase keeps internal spaces",
			`message~"falha de conexão"`,
			[]Filter{{Field: "message", Operator: OpContains, Value: "falha de conexão"}},
		},
		{
			"colon operator means equals",
			"origin:api",
			[]Filter{{Field: "origin", Operator: OpEquals, Value: "api"}},
		},
		{
			"unknown field passes through literally",
			"ticket_id=42",
			[]Filter{{Field: "ticket_id", Operator: OpEquals, Value: "42"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pq := Parse(tt.raw, testNow)
			if !reflect.DeepEqual(pq.Filters, tt.want) {
				t.Errorf("Parse(%q).Filters = %+v, want %+v", tt.raw, pq.Filters, tt.want)
			}
		})
	}
}

func TestParseFreeText(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantText    string
		wantFilters int
	}{
		{"all free text", "erro no servidor", "erro no servidor", 0},
		{"quoted text stripped", `"timeout ao salvar"`, "timeout ao salvar", 0},
		{"mixed filter and text", "severity=error timeout", "timeout", 1},
		{"dangling operator falls back to text", "severity=", "severity=", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pq := Parse(tt.raw, testNow)
			if pq.TextSearch != tt.wantText {
				t.Errorf("TextSearch = %q, want %q", pq.TextSearch, tt.wantText)
			}
			if len(pq.Filters) != tt.wantFilters {
				t.Errorf("len(Filters) = %d, want %d", len(pq.Filters), tt.wantFilters)
			}
		})
	}
}

func TestParseDateDirective(t *testing.T) {
	pq := Parse("severity=error date:24h", testNow)
	if pq.DateRange == nil {
		t.Fatal("DateRange not set")
	}
	want := testNow.Add(-24 * time.Hour)
	if !pq.DateRange.Start.Equal(want) {
		t.Errorf("DateRange.Start = %v, want %v", pq.DateRange.Start, want)
	}
	if !pq.DateRange.End.IsZero() {
		t.Errorf("DateRange.End = %v, want unset", pq.DateRange.End)
	}

	// data: works as a prefix too, and the last directive wins.
	pq = Parse("date:7d data:hoje", testNow)
	if pq.DateRange == nil {
		t.Fatal("DateRange not set")
	}
	wantStart := time.Date(2026, 3, 15, 0, 0, 0, 0, time.Local)
	if !pq.DateRange.Start.Equal(wantStart) {
		t.Errorf("last date directive did not win: start = %v, want %v", pq.DateRange.Start, wantStart)
	}
}

func TestParseLogicKeywordsCaseInsensitive(t *testing.T) {
	pq := Parse("type=login or type=logout", testNow)
	if len(pq.Filters) != 2 {
		t.Fatalf("len(Filters) = %d, want 2", len(pq.Filters))
	}
	if pq.Filters[1].Logic != LogicOr {
		t.Errorf("Logic = %q, want OR", pq.Filters[1].Logic)
	}
	if pq.TextSearch != "" {
		t.Errorf("logic keyword leaked into text search: %q", pq.TextSearch)
	}
}

func TestHelpExamplesParse(t *testing.T) {
	// Every example line in the help text must produce a usable query.
	examples := []string{
		"severity=critical AND type=login date:24h",
		"usuario=ana@empresa.com chamado=chamado date:ontem",
		`severidade>=erro origem=api "timeout"`,
	}
	for _, raw := range examples {
		pq := Parse(raw, testNow)
		if pq.IsEmpty() {
			t.Errorf("help example %q parsed to an empty query", raw)
		}
	}
	if Help() == "" {
		t.Error("Help() returned empty text")
	}
}
