// Package history persists interactive query history in a local SQLite file.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// SQLite DSN parameters.
const (
	defaultBusyTimeout = "5000" // 5 seconds
	defaultSynchronous = "NORMAL"
	defaultJournalMode = "WAL"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	database    TEXT NOT NULL DEFAULT '',
	statement   TEXT NOT NULL,
	succeeded   INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	executed_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_executed_at ON history (executed_at);
`

// Entry is one executed statement.
type Entry struct {
	ID         int64
	Database   string
	Statement  string
	Succeeded  bool
	Duration   time.Duration
	ExecutedAt time.Time
}

// Store is a single-writer SQLite history file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating when missing) the history file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite3", buildDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// buildDSN constructs a SQLite DSN with hardened parameters.
func buildDSN(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", defaultJournalMode)
	params.Set("_busy_timeout", defaultBusyTimeout)
	params.Set("_synchronous", defaultSynchronous)
	params.Set("_txlock", "immediate")
	return path + "?" + params.Encode()
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Add records one statement.
func (s *Store) Add(ctx context.Context, database, statement string, succeeded bool, d time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (database, statement, succeeded, duration_ms, executed_at) VALUES (?, ?, ?, ?, ?)`,
		database, statement, succeeded, d.Milliseconds(), s.now().UTC())
	if err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, database, statement, succeeded, duration_ms, executed_at
		 FROM history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			ms int64
		)
		if err := rows.Scan(&e.ID, &e.Database, &e.Statement, &e.Succeeded, &ms, &e.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune keeps only the newest keep entries.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM history WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}
