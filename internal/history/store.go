// Package history keeps a sqlite journal of completed searches.
//
// The journal is diagnostic only. Nothing reads it to answer a query.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/scout/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Entry is one journaled search.
type Entry struct {
	ID         string        `json:"id"`
	Query      string        `json:"query"`
	Pattern    string        `json:"pattern,omitempty"`
	RootScope  string        `json:"root_scope,omitempty"`
	Backend    string        `json:"backend"`
	Hits       int           `json:"hits"`
	Exhaustive bool          `json:"exhaustive"`
	Truncated  bool          `json:"truncated"`
	Cancelled  bool          `json:"cancelled"`
	SoftSkips  int           `json:"soft_skips"`
	Duration   time.Duration `json:"duration"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Stats summarises the journal.
type Stats struct {
	Searches       int            `json:"searches"`
	ByBackend      map[string]int `json:"by_backend"`
	ExhaustiveRate float64        `json:"exhaustive_rate"`
	AvgDuration    time.Duration  `json:"avg_duration"`
}

// Store manages the SQLite journal
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewStore opens (creating if needed) the journal at dbPath.
// ":memory:" gives a private in-memory journal.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath, now: time.Now}, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record journals a completed search. A result without an ID gets one.
func (s *Store) Record(ctx context.Context, q *models.Query, res *models.SearchResult) error {
	if q == nil || res == nil {
		return fmt.Errorf("record search: nil query or result")
	}
	if res.ID == "" {
		res.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO searches
		(id, query, pattern, root_scope, backend, hits, exhaustive, truncated, cancelled, soft_skips, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID,
		q.String(),
		q.NamePattern(),
		q.RootScope(),
		res.Backend,
		res.Count(),
		res.Exhaustive,
		res.Truncated,
		res.Cancelled,
		len(res.SoftSkips),
		res.Duration.Milliseconds(),
		s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert search: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first (limit <= 0 means all).
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, query, pattern, root_scope, backend, hits, exhaustive, truncated, cancelled, soft_skips, duration_ms, created_at
		FROM searches
		ORDER BY created_at DESC, seq DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query searches: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var durationMS, createdAt int64
		if err := rows.Scan(&e.ID, &e.Query, &e.Pattern, &e.RootScope, &e.Backend, &e.Hits,
			&e.Exhaustive, &e.Truncated, &e.Cancelled, &e.SoftSkips, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan search: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate searches: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than keepDays and returns how many were removed.
// keepDays <= 0 keeps everything.
func (s *Store) Prune(ctx context.Context, keepDays int) (int64, error) {
	if keepDays <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-time.Duration(keepDays) * 24 * time.Hour).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM searches WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune searches: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Stats aggregates the journal.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{ByBackend: make(map[string]int)}

	var exhaustive sql.NullFloat64
	var avgMS sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(exhaustive), AVG(duration_ms) FROM searches`,
	).Scan(&st.Searches, &exhaustive, &avgMS)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	st.ExhaustiveRate = exhaustive.Float64
	st.AvgDuration = time.Duration(avgMS.Float64 * float64(time.Millisecond))

	rows, err := s.db.QueryContext(ctx, `SELECT backend, COUNT(*) FROM searches GROUP BY backend`)
	if err != nil {
		return nil, fmt.Errorf("query backends: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var backend string
		var n int
		if err := rows.Scan(&backend, &n); err != nil {
			return nil, fmt.Errorf("scan backend: %w", err)
		}
		st.ByBackend[backend] = n
	}
	return st, rows.Err()
}
