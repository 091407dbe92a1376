// Package journal keeps a SQLite history of carry-over runs.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/clive/sprint-carryover/internal/carryover"
)

// ErrNotFound is returned when a run id is not in the journal
var ErrNotFound = errors.New("run not found")

// Journal wraps the SQLite connection
type Journal struct {
	db *sql.DB
}

// Entry is one recorded run
type Entry struct {
	ID              string                 `json:"id"`
	StartedAt       time.Time              `json:"started_at"`
	FinishedAt      time.Time              `json:"finished_at"`
	SourceName      string                 `json:"source_name"`
	SourcePath      string                 `json:"source_path"`
	DestinationName string                 `json:"destination_name"`
	DestinationPath string                 `json:"destination_path"`
	Attempted       int                    `json:"attempted"`
	Succeeded       int                    `json:"succeeded"`
	Items           []carryover.ItemResult `json:"items,omitempty"`
}

// Failed returns the number of items that were not moved
func (e Entry) Failed() int {
	return e.Attempted - e.Succeeded
}

// Open creates or opens the journal at path
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  started_at INTEGER NOT NULL,
  finished_at INTEGER NOT NULL,
  source_name TEXT NOT NULL,
  source_path TEXT NOT NULL,
  destination_name TEXT NOT NULL,
  destination_path TEXT NOT NULL,
  attempted INTEGER NOT NULL,
  succeeded INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

CREATE TABLE IF NOT EXISTS run_items (
  run_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  work_item_id INTEGER NOT NULL,
  title TEXT NOT NULL,
  outcome TEXT NOT NULL,
  detail TEXT,
  PRIMARY KEY (run_id, position),
  FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`
	_, err := db.Exec(schema)
	return err
}

// Record stores a finished run and its per-item results
func (j *Journal) Record(ctx context.Context, run carryover.Run) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, source_name, source_path,
			destination_name, destination_path, attempted, succeeded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		run.Source.Name, run.Source.Path,
		run.Destination.Name, run.Destination.Path,
		run.Report.Attempted, run.Report.Succeeded)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, item := range run.Report.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_items (run_id, position, work_item_id, title, outcome, detail)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, i, item.ID, item.Title, string(item.Outcome), nullString(item.Detail))
		if err != nil {
			return fmt.Errorf("insert run item %d: %w", item.ID, err)
		}
	}

	return tx.Commit()
}

// Recent returns the latest runs, newest first, without their items
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, source_name, source_path,
			destination_name, destination_path, attempted, succeeded
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns one run with its items
func (j *Journal) Get(ctx context.Context, id string) (Entry, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, source_name, source_path,
			destination_name, destination_path, attempted, succeeded
		FROM runs WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, err
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT work_item_id, title, outcome, detail
		FROM run_items WHERE run_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return Entry{}, fmt.Errorf("list run items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item carryover.ItemResult
		var outcome string
		var detail sql.NullString
		if err := rows.Scan(&item.ID, &item.Title, &outcome, &detail); err != nil {
			return Entry{}, fmt.Errorf("scan run item: %w", err)
		}
		item.Outcome = carryover.Outcome(outcome)
		item.Detail = detail.String
		e.Items = append(e.Items, item)
	}
	return e, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (Entry, error) {
	var e Entry
	var started, finished int64
	err := s.Scan(&e.ID, &started, &finished, &e.SourceName, &e.SourcePath,
		&e.DestinationName, &e.DestinationPath, &e.Attempted, &e.Succeeded)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, err
	}
	if err != nil {
		return Entry{}, fmt.Errorf("scan run: %w", err)
	}
	e.StartedAt = time.UnixMilli(started)
	e.FinishedAt = time.UnixMilli(finished)
	return e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ carryover.Recorder = (*Journal)(nil)
