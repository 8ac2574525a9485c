package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	"github.com/scriptflow/scriptflow/internal/models"
	"github.com/scriptflow/scriptflow/internal/query"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	// Addresses are the ClickHouse server addresses (host:port).
	Addresses []string

	// Database is the ClickHouse database name.
	Database string

	// Username for authentication.
	Username string

	// Password for authentication.
	Password string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// DialTimeout is the connection timeout.
	DialTimeout time.Duration

	// Compression enables LZ4 compression.
	Compression bool

	// RetentionDays is the TTL in days for log retention.
	RetentionDays int
}

// ClickHouseStorage implements LogStorage for ClickHouse.
type ClickHouseStorage struct {
	config *ClickHouseConfig
	db     *sql.DB
	logs   *clickhouseLogRepo
}

// NewClickHouseStorage creates a new ClickHouse storage.
func NewClickHouseStorage(config *ClickHouseConfig) *ClickHouseStorage {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 5
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}
	if config.RetentionDays == 0 {
		config.RetentionDays = 90
	}

	return &ClickHouseStorage{config: config}
}

// Open initializes the ClickHouse connection.
func (s *ClickHouseStorage) Open() error {
	opts := &clickhouse.Options{
		Addr: s.config.Addresses,
		Auth: clickhouse.Auth{
			Database: s.config.Database,
			Username: s.config.Username,
			Password: s.config.Password,
		},
		DialTimeout:  s.config.DialTimeout,
		MaxOpenConns: s.config.MaxOpenConns,
		MaxIdleConns: s.config.MaxIdleConns,
	}

	if s.config.Compression {
		opts.Compression = &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		}
	}

	db := clickhouse.OpenDB(opts)

	ctx, cancel := context.WithTimeout(context.Background(), s.config.DialTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping clickhouse: %w", err)
	}

	s.db = db
	s.logs = &clickhouseLogRepo{db: db}
	return nil
}

// Close closes the database connection.
func (s *ClickHouseStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the logs table if it doesn't exist.
func (s *ClickHouseStorage) Migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS logs (
			id UUID DEFAULT generateUUIDv4(),
			timestamp DateTime64(3, 'UTC'),
			user_id String DEFAULT '',
			user_email String DEFAULT '',
			event_type LowCardinality(String),
			severity LowCardinality(String),
			message String,
			origin LowCardinality(String) DEFAULT '',
			entity_type LowCardinality(String) DEFAULT '',
			entity_id String DEFAULT '',
			payload String DEFAULT '{}',
			ip_address String DEFAULT '',
			user_agent String DEFAULT '',
			_date Date DEFAULT toDate(timestamp)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(_date)
		ORDER BY (event_type, severity, timestamp, id)
		TTL _date + INTERVAL %d DAY DELETE
		SETTINGS index_granularity = 8192
	`, s.config.RetentionDays)

	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create logs table: %w", err)
	}

	// Idempotent secondary indexes; not all ClickHouse versions support
	// them, so failures only warn.
	indexes := []string{
		"ALTER TABLE logs ADD INDEX IF NOT EXISTS idx_message message TYPE tokenbf_v1(32768, 3, 0) GRANULARITY 4",
		"ALTER TABLE logs ADD INDEX IF NOT EXISTS idx_user_email user_email TYPE bloom_filter(0.01) GRANULARITY 4",
		"ALTER TABLE logs ADD INDEX IF NOT EXISTS idx_entity_id entity_id TYPE bloom_filter(0.01) GRANULARITY 4",
	}
	for _, idx := range indexes {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			log.Printf("warning: failed to create index: %v", err)
		}
	}

	return nil
}

// Ping checks the connection health.
func (s *ClickHouseStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Logs returns the log repository.
func (s *ClickHouseStorage) Logs() LogRepository {
	return s.logs
}

// clickhouseLogRepo implements LogRepository for ClickHouse.
type clickhouseLogRepo struct {
	db *sql.DB
}

const logSelectColumns = `id, timestamp, user_id, user_email, event_type,
	severity, message, origin, entity_type, entity_id, payload,
	ip_address, user_agent`

// Insert writes a single log record.
func (r *clickhouseLogRepo) Insert(ctx context.Context, rec *models.LogRecord) error {
	return r.InsertBatch(ctx, []*models.LogRecord{rec})
}

// InsertBatch inserts multiple log records using batch insert.
func (r *clickhouseLogRepo) InsertBatch(ctx context.Context, recs []*models.LogRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO logs (`+logSelectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		id := rec.ID
		if id == "" {
			id = uuid.New().String()
		}
		ts := rec.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}

		payloadJSON, _ := json.Marshal(rec.Payload)

		_, err := stmt.ExecContext(ctx,
			id,
			ts,
			rec.UserID,
			rec.UserEmail,
			string(rec.EventType),
			string(rec.Severity),
			rec.Message,
			rec.Origin,
			rec.EntityType,
			rec.EntityID,
			string(payloadJSON),
			rec.IPAddress,
			rec.UserAgent,
		)
		if err != nil {
			return fmt.Errorf("exec: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Search retrieves records matching the parsed query, newest first.
func (r *clickhouseLogRepo) Search(ctx context.Context, pq *query.ParsedQuery, opts SearchOptions) (*SearchResult, error) {
	sqlText, args := r.buildSearch(pq, opts, false)

	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var records []*models.LogRecord
	for rows.Next() {
		rec := &models.LogRecord{}
		var payloadJSON string

		err := rows.Scan(
			&rec.ID,
			&rec.Timestamp,
			&rec.UserID,
			&rec.UserEmail,
			(*string)(&rec.EventType),
			(*string)(&rec.Severity),
			&rec.Message,
			&rec.Origin,
			&rec.EntityType,
			&rec.EntityID,
			&payloadJSON,
			&rec.IPAddress,
			&rec.UserAgent,
		)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		if payloadJSON != "" && payloadJSON != "{}" {
			json.Unmarshal([]byte(payloadJSON), &rec.Payload)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	total, err := r.Count(ctx, pq, opts)
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	return &SearchResult{
		Records: records,
		Total:   total,
		HasMore: int64(opts.Offset+len(records)) < total,
	}, nil
}

// Count returns the number of records matching the parsed query.
func (r *clickhouseLogRepo) Count(ctx context.Context, pq *query.ParsedQuery, opts SearchOptions) (int64, error) {
	sqlText, args := r.buildSearch(pq, opts, true)

	var count int64
	if err := r.db.QueryRowContext(ctx, sqlText, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return count, nil
}

// DeleteBefore removes logs older than the specified time.
func (r *clickhouseLogRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT count() FROM logs WHERE timestamp < ?", before).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	// ALTER TABLE DELETE is async in ClickHouse.
	if _, err := r.db.ExecContext(ctx, "ALTER TABLE logs DELETE WHERE timestamp < ?", before); err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}

	return count, nil
}

// buildSearch composes the compiled query condition with the option
// bounds and pagination.
func (r *clickhouseLogRepo) buildSearch(pq *query.ParsedQuery, opts SearchOptions, countOnly bool) (string, []interface{}) {
	var sb strings.Builder

	if countOnly {
		sb.WriteString("SELECT count() FROM logs")
	} else {
		sb.WriteString("SELECT " + logSelectColumns + " FROM logs")
	}

	where := query.BuildWhere(pq)
	conds := []string{}
	args := []interface{}{}

	if where.SQL != "" {
		conds = append(conds, where.SQL)
		args = append(args, where.Args...)
	}

	// Option bounds apply only when the query itself carries no date
	// range; a date: directive wins.
	hasQueryRange := pq != nil && pq.DateRange != nil && !pq.DateRange.IsZero()
	if !hasQueryRange {
		if !opts.Start.IsZero() {
			conds = append(conds, "timestamp >= ?")
			args = append(args, opts.Start)
		}
		if !opts.End.IsZero() {
			conds = append(conds, "timestamp <= ?")
			args = append(args, opts.End)
		}
	}

	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	if !countOnly {
		sb.WriteString(" ORDER BY timestamp DESC")
		sb.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", opts.effectiveLimit(), opts.Offset))
	}

	return sb.String(), args
}
