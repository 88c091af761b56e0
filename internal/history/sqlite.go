// Package history records link check runs in a SQLite database so scheduled
// checks can be reviewed later. It stores run summaries and the broken links
// of each run; results are never read back to skip validation.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/checklinks/internal/report"
)

// Run is one recorded check.
type Run struct {
	ID               string
	StartedAt        time.Time
	Elapsed          time.Duration
	TotalOccurrences int
	UniqueTargets    int
	Broken           int
	Skipped          int
	Warnings         int
	FileErrors       int
}

// BrokenLink is a broken occurrence of a recorded run.
type BrokenLink struct {
	File   string
	Line   int
	Column int
	Raw    string
	Result string
	Detail string
}

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (creating if needed) the database at path. Use ":memory:" for a
// throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		total INTEGER NOT NULL,
		unique_targets INTEGER NOT NULL,
		broken INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		file_errors INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS broken_links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		file TEXT NOT NULL,
		line INTEGER NOT NULL,
		col INTEGER NOT NULL,
		raw TEXT NOT NULL,
		result TEXT NOT NULL,
		detail TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_broken_run_id ON broken_links(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores the summary and broken links of rep in one transaction.
func (s *Store) Record(ctx context.Context, rep *report.Report, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sum := rep.Summary
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, elapsed_ms, total, unique_targets, broken, skipped, warnings, file_errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, startedAt.UnixMilli(), sum.Elapsed.Milliseconds(), sum.TotalOccurrences,
		sum.UniqueTargets, sum.Broken, sum.Skipped, sum.Warnings, sum.FileErrors,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, e := range rep.Broken() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO broken_links (run_id, file, line, col, raw, result, detail) VALUES (?, ?, ?, ?, ?, ?, ?)",
			sum.RunID, e.File, e.Line, e.Column, e.Raw, e.Outcome.Label(), e.Outcome.Detail,
		); err != nil {
			return fmt.Errorf("insert broken link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, elapsed_ms, total, unique_targets, broken, skipped, warnings, file_errors
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedMS, elapsedMS int64
		if err := rows.Scan(&r.ID, &startedMS, &elapsedMS, &r.TotalOccurrences, &r.UniqueTargets,
			&r.Broken, &r.Skipped, &r.Warnings, &r.FileErrors); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedMS)
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return runs, nil
}

// BrokenLinks returns the broken links of run id in report order.
func (s *Store) BrokenLinks(ctx context.Context, runID string) ([]BrokenLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT file, line, col, raw, result, COALESCE(detail, '') FROM broken_links WHERE run_id = ? ORDER BY id",
		runID)
	if err != nil {
		return nil, fmt.Errorf("query broken links: %w", err)
	}
	defer rows.Close()

	var out []BrokenLink
	for rows.Next() {
		var b BrokenLink
		if err := rows.Scan(&b.File, &b.Line, &b.Column, &b.Raw, &b.Result, &b.Detail); err != nil {
			return nil, fmt.Errorf("scan broken link: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
