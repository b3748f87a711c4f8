// Package history keeps a SQLite ledger of brief generation runs.
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at DATETIME NOT NULL,
	window_start TEXT NOT NULL,
	window_end TEXT NOT NULL,
	model TEXT DEFAULT '',
	output_path TEXT DEFAULT '',
	bytes INTEGER DEFAULT 0,
	prompt_tokens INTEGER DEFAULT 0,
	completion_tokens INTEGER DEFAULT 0,
	duration_ms INTEGER DEFAULT 0,
	success INTEGER DEFAULT 0,
	error_reason TEXT DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Run is one row of the ledger.
type Run struct {
	ID               int64     `db:"id"`
	StartedAt        time.Time `db:"started_at"`
	WindowStart      string    `db:"window_start"`
	WindowEnd        string    `db:"window_end"`
	Model            string    `db:"model"`
	OutputPath       string    `db:"output_path"`
	Bytes            int64     `db:"bytes"`
	PromptTokens     int64     `db:"prompt_tokens"`
	CompletionTokens int64     `db:"completion_tokens"`
	DurationMs       int64     `db:"duration_ms"`
	Success          bool      `db:"success"`
	ErrorReason      string    `db:"error_reason"`
}

// Store records runs in a SQLite database.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: failed to create %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: failed to open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: failed to open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: failed to migrate: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends run to the ledger.
func (s *Store) Record(ctx context.Context, run Run) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO runs(
			started_at, window_start, window_end, model, output_path, bytes,
			prompt_tokens, completion_tokens, duration_ms, success, error_reason
		) VALUES(
			:started_at, :window_start, :window_end, :model, :output_path, :bytes,
			:prompt_tokens, :completion_tokens, :duration_ms, :success, :error_reason
		)
	`, run)
	if err != nil {
		return fmt.Errorf("history: failed to record run: %w", err)
	}
	return nil
}

// Recent returns the last n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	if n <= 0 {
		n = 10
	}
	var runs []Run
	if err := s.db.SelectContext(ctx, &runs, `
		SELECT id, started_at, window_start, window_end, model, output_path, bytes,
			prompt_tokens, completion_tokens, duration_ms, success, error_reason
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, n); err != nil {
		return nil, fmt.Errorf("history: failed to list runs: %w", err)
	}
	return runs, nil
}
