package logs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/scriptflow/scriptflow/internal/models"
	"github.com/scriptflow/scriptflow/internal/storage"
)

type fakeWaker struct {
	calls int
}

func (f *fakeWaker) Wake() { f.calls++ }

func newTestHandler(t *testing.T) (*Handler, storage.LogRepository, *fakeWaker) {
	t.Helper()
	store := storage.NewMemoryLogStorage()
	waker := &fakeWaker{}
	return NewHandler(store.Logs(), waker, 0, 0), store.Logs(), waker
}

func seedLogs(t *testing.T, repo storage.LogRepository, recs []*models.LogRecord) {
	t.Helper()
	if err := repo.InsertBatch(context.Background(), recs); err != nil {
		t.Fatalf("seed logs: %v", err)
	}
}

func TestSearch_Empty(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest("GET", "/api/v1/logs", nil)
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Data *SearchResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Total != 0 {
		t.Errorf("total = %d, want 0", resp.Data.Total)
	}
	if resp.Data.Page != 1 || resp.Data.PerPage != 50 {
		t.Errorf("page/per_page = %d/%d, want 1/50", resp.Data.Page, resp.Data.PerPage)
	}
}

func TestSearch_WithQuery(t *testing.T) {
	handler, repo, _ := newTestHandler(t)
	now := time.Now()
	seedLogs(t, repo, []*models.LogRecord{
		{Timestamp: now.Add(-time.Minute), Severity: models.SeverityError, EventType: models.EventError, Message: "falha de conexao"},
		{Timestamp: now.Add(-2 * time.Minute), Severity: models.SeverityInfo, EventType: models.EventLogin, Message: "login ok"},
	})

	req := httptest.NewRequest("GET", "/api/v1/logs?q=severidade%3Derro", nil)
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Data *SearchResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Total != 1 {
		t.Fatalf("total = %d, want 1", resp.Data.Total)
	}
	if resp.Data.Items[0].Message != "falha de conexao" {
		t.Errorf("message = %q", resp.Data.Items[0].Message)
	}
	if resp.Data.Parsed == nil || len(resp.Data.Parsed.Filters) != 1 {
		t.Error("parsed query not echoed back")
	}
}

func TestSearch_BadParams(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"bad start", "/api/v1/logs?start=yesterday"},
		{"bad end", "/api/v1/logs?end=nope"},
		{"start after end", "/api/v1/logs?start=2026-03-15T12:00:00Z&end=2026-03-15T10:00:00Z"},
		{"zero page", "/api/v1/logs?page=0"},
		{"per_page too large", "/api/v1/logs?per_page=5000"},
		{"query too long", "/api/v1/logs?q=" + strings.Repeat("a", 1001)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, _ := newTestHandler(t)
			req := httptest.NewRequest("GET", tt.url, nil)
			rec := httptest.NewRecorder()

			handler.Search(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestSearch_Pagination(t *testing.T) {
	handler, repo, _ := newTestHandler(t)
	now := time.Now()
	recs := make([]*models.LogRecord, 5)
	for i := range recs {
		recs[i] = &models.LogRecord{
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
			Severity:  models.SeverityInfo,
			EventType: models.EventCustom,
			Message:   "registro",
		}
	}
	seedLogs(t, repo, recs)

	req := httptest.NewRequest("GET", "/api/v1/logs?page=2&per_page=2", nil)
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	var resp struct {
		Data *SearchResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Total != 5 {
		t.Errorf("total = %d, want 5", resp.Data.Total)
	}
	if len(resp.Data.Items) != 2 {
		t.Errorf("items = %d, want 2", len(resp.Data.Items))
	}
	if resp.Data.TotalPages != 3 {
		t.Errorf("total_pages = %d, want 3", resp.Data.TotalPages)
	}
}

func TestIngest_BatchAndDefaults(t *testing.T) {
	handler, repo, waker := newTestHandler(t)

	body := `{"records": [
		{"message": "primeiro", "severity": "error", "event_type": "error"},
		{"message": "segundo"}
	]}`
	req := httptest.NewRequest("POST", "/api/v1/logs", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Ingest(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp struct {
		Data *IngestResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Inserted != 2 {
		t.Errorf("inserted = %d, want 2", resp.Data.Inserted)
	}
	if waker.calls != 1 {
		t.Errorf("waker calls = %d, want 1", waker.calls)
	}

	res, err := repo.Search(context.Background(), nil, storage.SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("stored = %d, want 2", res.Total)
	}
	for _, rec := range res.Records {
		if rec.Severity == "" || rec.EventType == "" || rec.Timestamp.IsZero() {
			t.Errorf("record missing defaults: %+v", rec)
		}
	}
}

func TestIngest_SingleRecord(t *testing.T) {
	handler, repo, waker := newTestHandler(t)

	body := `{"message": "evento isolado", "severity": "warning"}`
	req := httptest.NewRequest("POST", "/api/v1/logs", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Ingest(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if waker.calls != 1 {
		t.Errorf("waker calls = %d, want 1", waker.calls)
	}

	res, err := repo.Search(context.Background(), nil, storage.SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("stored = %d, want 1", res.Total)
	}
	if res.Records[0].Severity != models.SeverityWarning {
		t.Errorf("severity = %q, want warning", res.Records[0].Severity)
	}
}

func TestIngest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"no records", `{"records": []}`},
		{"missing message", `{"records": [{"severity": "info"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, waker := newTestHandler(t)
			req := httptest.NewRequest("POST", "/api/v1/logs", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			handler.Ingest(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if waker.calls != 0 {
				t.Errorf("waker calls = %d, want 0", waker.calls)
			}
		})
	}
}

func TestHelp(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest("GET", "/api/v1/logs/help", nil)
	rec := httptest.NewRecorder()

	handler.Help(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Data map[string]string `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(resp.Data["help"], "severidade") {
		t.Error("help text missing field aliases")
	}
}
