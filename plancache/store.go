// Package plancache is a write-only, best-effort audit/replay log of
// executed queries, backed by modernc.org/sqlite. It exists purely for
// operator replay and debugging; nothing on the request path reads from it,
// so a write failure here must never fail a request.
package plancache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one executed-query audit record.
type Entry struct {
	Question  string
	Domain    string
	SQL       string
	RowCount  int
	Succeeded bool
	ErrorText string
	Retried   bool
	Timestamp time.Time
}

// Store is the SQLite-backed sink. The zero value is not usable; construct
// via Open.
type Store struct {
	db *sql.DB
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS executed_queries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question TEXT NOT NULL,
	domain TEXT,
	sql TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	succeeded BOOLEAN NOT NULL,
	error_text TEXT,
	retried BOOLEAN NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_executed_queries_recorded_at ON executed_queries(recorded_at);
`

// Open creates (if needed) and opens the SQLite database at path,
// ensuring the executed_queries table exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("plancache: create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("plancache: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("plancache: ping database: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("plancache: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record inserts e. It is fire-and-forget from the caller's perspective:
// callers should log, not propagate, any error this returns rather than
// fail the in-flight request over an audit-log write.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executed_queries (question, domain, sql, row_count, succeeded, error_text, retried, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Question, e.Domain, e.SQL, e.RowCount, e.Succeeded, e.ErrorText, e.Retried, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("plancache: insert record: %w", err)
	}
	return nil
}

// Recent returns the most recent n records, newest first. Used for
// operator replay tooling, not by the request path.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question, domain, sql, row_count, succeeded, error_text, retried, recorded_at
		 FROM executed_queries ORDER BY recorded_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("plancache: query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var domain, errText sql.NullString
		if err := rows.Scan(&e.Question, &domain, &e.SQL, &e.RowCount, &e.Succeeded, &errText, &e.Retried, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("plancache: scan record: %w", err)
		}
		e.Domain = domain.String
		e.ErrorText = errText.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
