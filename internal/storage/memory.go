package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scriptflow/scriptflow/internal/models"
	"github.com/scriptflow/scriptflow/internal/query"
)

// MemoryLogStorage is an in-memory LogStorage for development and tests.
// Matching uses the same evaluation semantics the SQL builder compiles,
// so it is behaviorally interchangeable with ClickHouse for queries.
type MemoryLogStorage struct {
	repo *memoryLogRepo
}

// NewMemoryLogStorage creates an empty in-memory log storage.
func NewMemoryLogStorage() *MemoryLogStorage {
	return &MemoryLogStorage{repo: &memoryLogRepo{}}
}

func (s *MemoryLogStorage) Open() error                { return nil }
func (s *MemoryLogStorage) Close() error               { return nil }
func (s *MemoryLogStorage) Migrate() error             { return nil }
func (s *MemoryLogStorage) Ping(context.Context) error { return nil }
func (s *MemoryLogStorage) Logs() LogRepository        { return s.repo }

type memoryLogRepo struct {
	mu   sync.RWMutex
	recs []*models.LogRecord
}

func (r *memoryLogRepo) Insert(ctx context.Context, rec *models.LogRecord) error {
	return r.InsertBatch(ctx, []*models.LogRecord{rec})
}

func (r *memoryLogRepo) InsertBatch(_ context.Context, recs []*models.LogRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recs {
		cp := *rec
		if cp.ID == "" {
			cp.ID = uuid.New().String()
		}
		if cp.Timestamp.IsZero() {
			cp.Timestamp = time.Now()
		}
		r.recs = append(r.recs, &cp)
	}
	return nil
}

func (r *memoryLogRepo) Search(_ context.Context, pq *query.ParsedQuery, opts SearchOptions) (*SearchResult, error) {
	matched := r.match(pq, opts)

	// Newest first.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := int64(len(matched))
	start := opts.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + opts.effectiveLimit()
	if end > len(matched) {
		end = len(matched)
	}

	return &SearchResult{
		Records: matched[start:end],
		Total:   total,
		HasMore: int64(end) < total,
	}, nil
}

func (r *memoryLogRepo) Count(_ context.Context, pq *query.ParsedQuery, opts SearchOptions) (int64, error) {
	return int64(len(r.match(pq, opts))), nil
}

func (r *memoryLogRepo) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.recs[:0]
	var deleted int64
	for _, rec := range r.recs {
		if rec.Timestamp.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.recs = kept
	return deleted, nil
}

func (r *memoryLogRepo) match(pq *query.ParsedQuery, opts SearchOptions) []*models.LogRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hasQueryRange := pq != nil && pq.DateRange != nil && !pq.DateRange.IsZero()

	matcher, err := query.NewMatcher(pq)
	if err != nil {
		return nil
	}

	var out []*models.LogRecord
	for _, rec := range r.recs {
		if !matcher.Match(rec) {
			continue
		}
		if !hasQueryRange {
			if !opts.Start.IsZero() && rec.Timestamp.Before(opts.Start) {
				continue
			}
			if !opts.End.IsZero() && rec.Timestamp.After(opts.End) {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}
