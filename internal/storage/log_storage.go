package storage

import (
	"context"
	"time"

	"github.com/scriptflow/scriptflow/internal/models"
	"github.com/scriptflow/scriptflow/internal/query"
)

// LogStorage defines operations for log persistence. It is separate from
// the main Storage interface because logs are high-volume, append-only
// and queried by time range.
type LogStorage interface {
	// Open initializes the log storage connection.
	Open() error
	// Close closes the log storage connection.
	Close() error
	// Migrate creates or updates the log storage schema.
	Migrate() error
	// Ping checks the connection health.
	Ping(ctx context.Context) error

	// Logs returns the log repository.
	Logs() LogRepository
}

// LogRepository defines log read/write operations. Records are written
// once and never updated; DeleteBefore exists for retention only.
type LogRepository interface {
	// Insert writes a single log record.
	Insert(ctx context.Context, rec *models.LogRecord) error

	// InsertBatch writes multiple log records in a single batch.
	InsertBatch(ctx context.Context, recs []*models.LogRecord) error

	// Search retrieves records matching a parsed query, newest first.
	Search(ctx context.Context, pq *query.ParsedQuery, opts SearchOptions) (*SearchResult, error)

	// Count returns the number of records matching a parsed query.
	Count(ctx context.Context, pq *query.ParsedQuery, opts SearchOptions) (int64, error)

	// DeleteBefore removes records older than the given time and
	// returns how many were affected.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// SearchOptions narrows and pages a log search on top of the parsed
// query. Start and End are inclusive; a query's own date range (when
// set) takes precedence over them.
type SearchOptions struct {
	Start time.Time
	End   time.Time

	Limit  int
	Offset int
}

// DefaultSearchLimit caps unpaginated searches.
const DefaultSearchLimit = 100

// effectiveLimit returns the limit to apply for these options.
func (o SearchOptions) effectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultSearchLimit
	}
	return o.Limit
}

// SearchResult contains search hits with pagination info.
type SearchResult struct {
	Records []*models.LogRecord `json:"records"`
	Total   int64               `json:"total"`
	HasMore bool                `json:"has_more"`
}
