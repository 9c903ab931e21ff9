package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ppiankov/verity/internal/cache"
	"github.com/ppiankov/verity/internal/model"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresStore keeps verifications in PostgreSQL and ranks them with
// pg_trgm's similarity()
type PostgresStore struct {
	db    *sqlx.DB
	table string
}

// pgRecord is the row shape; sources live in a text[] column
type pgRecord struct {
	Record
	Sources pq.StringArray `db:"sources"`
}

// OpenPostgres connects with dsn
func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewPostgresStore(db, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStore wraps an open connection
func NewPostgresStore(db *sqlx.DB, table string) (*PostgresStore, error) {
	if table == "" {
		table = "verifications"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{db: db, table: table}, nil
}

// EnsureSchema creates the trigram extension, the table and its index
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			status TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			sources TEXT[] NOT NULL DEFAULT '{}',
			session_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_text_trgm ON %s USING gin (text gin_trgm_ops)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_session ON %s (session_id)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// AddVerification inserts a new row and returns its id
func (s *PostgresStore) AddVerification(ctx context.Context, text string, status model.Status, confidence float64, sources []string, sessionID string) (string, error) {
	rec := NewRecord(text, status, confidence, sources, sessionID)
	query := fmt.Sprintf(`INSERT INTO %s (id, text, fingerprint, status, confidence, sources, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.table)
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Text, rec.Fingerprint, string(rec.Status), rec.Confidence,
		pq.StringArray(rec.Sources), rec.SessionID, rec.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert verification: %w", err)
	}
	return rec.ID, nil
}

// FindVerification returns the most similar row at or above threshold
func (s *PostgresStore) FindVerification(ctx context.Context, text, sessionID string, threshold float64) (*Record, error) {
	query := fmt.Sprintf(`SELECT id, text, fingerprint, status, confidence, sources, session_id, created_at,
			CASE WHEN fingerprint = $4 THEN 1.0 ELSE similarity(text, $1) END AS similarity
		FROM %s
		WHERE ($2 = '' OR session_id = $2)
			AND (fingerprint = $4 OR similarity(text, $1) >= $3)
		ORDER BY similarity DESC, created_at DESC
		LIMIT 1`, s.table)

	var row pgRecord
	err := s.db.GetContext(ctx, &row, query, text, sessionID, threshold, cache.Fingerprint(text))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return row.toRecord(), nil
}

// Get returns the row with id
func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	query := fmt.Sprintf(`SELECT id, text, fingerprint, status, confidence, sources, session_id, created_at,
			1.0 AS similarity
		FROM %s WHERE id = $1`, s.table)

	var row pgRecord
	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return row.toRecord(), nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (r *pgRecord) toRecord() *Record {
	rec := r.Record
	rec.Sources = []string(r.Sources)
	rec.CreatedAt = rec.CreatedAt.In(time.UTC)
	return &rec
}
