// Package logs provides HTTP handlers for log search and ingestion.
package logs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/scriptflow/scriptflow/internal/metrics"
	"github.com/scriptflow/scriptflow/internal/models"
	"github.com/scriptflow/scriptflow/internal/query"
	"github.com/scriptflow/scriptflow/internal/storage"
)

// Response helpers (local to avoid import cycle with api package)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

const (
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeInternalError = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Error: &apiError{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(apiResponse{Data: data})
}

func jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(apiResponse{Data: data})
}

// Wake requests an immediate alert evaluation after ingest.
type Waker interface {
	Wake()
}

// Handler handles log search and ingestion endpoints.
type Handler struct {
	logs           storage.LogRepository
	waker          Waker
	queryTimeout   time.Duration
	maxQueryLength int
}

// NewHandler creates a new logs handler. waker may be nil.
func NewHandler(logs storage.LogRepository, waker Waker, queryTimeout time.Duration, maxQueryLength int) *Handler {
	if queryTimeout == 0 {
		queryTimeout = 10 * time.Second
	}
	if maxQueryLength == 0 {
		maxQueryLength = 1000
	}
	return &Handler{
		logs:           logs,
		waker:          waker,
		queryTimeout:   queryTimeout,
		maxQueryLength: maxQueryLength,
	}
}

// SearchResponse wraps a paginated list of log records.
type SearchResponse struct {
	Items      []*models.LogRecord `json:"items"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	PerPage    int                 `json:"per_page"`
	TotalPages int                 `json:"total_pages"`

	// Parsed echoes back the interpreted query so clients can show
	// what the free-form string resolved to.
	Parsed *query.ParsedQuery `json:"parsed"`
}

// Search handles GET /api/v1/logs - search logs with the query DSL.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, h.queryTimeout)
	defer cancel()

	params := r.URL.Query()

	raw := params.Get("q")
	if len(raw) > h.maxQueryLength {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest,
			fmt.Sprintf("query too long (max %d chars)", h.maxQueryLength))
		return
	}

	opts := storage.SearchOptions{}

	if startStr := params.Get("start"); startStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid start time format (use RFC3339)")
			return
		}
		opts.Start = start
	}
	if endStr := params.Get("end"); endStr != "" {
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid end time format (use RFC3339)")
			return
		}
		opts.End = end
	}
	if !opts.Start.IsZero() && !opts.End.IsZero() && opts.Start.After(opts.End) {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "start time must be before end time")
		return
	}

	page := 1
	if pageStr := params.Get("page"); pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p < 1 {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid page number")
			return
		}
		page = p
	}

	perPage := 50
	if perPageStr := params.Get("per_page"); perPageStr != "" {
		pp, err := strconv.Atoi(perPageStr)
		if err != nil || pp < 1 || pp > 1000 {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "per_page must be between 1 and 1000")
			return
		}
		perPage = pp
	}

	opts.Limit = perPage
	opts.Offset = (page - 1) * perPage

	pq := query.Parse(raw, time.Now())

	start := time.Now()
	res, err := h.logs.Search(ctx, pq, opts)
	if err != nil {
		log.Printf("log search failed: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "search failed")
		return
	}
	metrics.QueriesTotal.Inc()
	metrics.QueryDuration.Observe(time.Since(start).Seconds())

	jsonOK(w, &SearchResponse{
		Items:      res.Records,
		Total:      res.Total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages(res.Total, perPage),
		Parsed:     pq,
	})
}

// IngestRequest accepts one record or a batch.
type IngestRequest struct {
	Records []*models.LogRecord `json:"records"`
}

// IngestResponse reports how many records were stored.
type IngestResponse struct {
	Inserted int `json:"inserted"`
}

const (
	maxIngestBatch = 1000
	maxIngestBody  = 10 << 20 // 10 MiB
)

// Ingest handles POST /api/v1/logs - store log records.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, h.queryTimeout)
	defer cancel()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBody))
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "cannot read request body")
		return
	}

	// Accept either {"records": [...]} or a single record object.
	var req IngestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return
	}
	if len(req.Records) == 0 {
		var single models.LogRecord
		if err := json.Unmarshal(body, &single); err == nil && single.Message != "" {
			req.Records = []*models.LogRecord{&single}
		}
	}
	if len(req.Records) == 0 {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "records is required")
		return
	}
	if len(req.Records) > maxIngestBatch {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest,
			fmt.Sprintf("batch too large (max %d records)", maxIngestBatch))
		return
	}

	now := time.Now()
	for _, rec := range req.Records {
		if rec.Message == "" {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "record message is required")
			return
		}
		if rec.Timestamp.IsZero() {
			rec.Timestamp = now
		}
		if rec.Severity == "" {
			rec.Severity = models.SeverityInfo
		}
		if rec.EventType == "" {
			rec.EventType = models.EventCustom
		}
	}

	if err := h.logs.InsertBatch(ctx, req.Records); err != nil {
		metrics.LogIngestErrors.Inc()
		log.Printf("log ingest failed: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "ingest failed")
		return
	}
	metrics.LogsIngestedTotal.Add(float64(len(req.Records)))

	if h.waker != nil {
		h.waker.Wake()
	}

	jsonCreated(w, &IngestResponse{Inserted: len(req.Records)})
}

// Help handles GET /api/v1/logs/help - the query language cheat sheet.
func (h *Handler) Help(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]string{"help": query.Help()})
}

func totalPages(total int64, perPage int) int {
	if total == 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(perPage)))
}

func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}
