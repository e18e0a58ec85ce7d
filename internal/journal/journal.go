// Package journal records import runs in a SQLite database.
//
// Each run appends one row holding its paths, merge mode and counts. Rows are
// never updated or deleted, so the journal doubles as an audit trail of how
// the master table grew.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agentstation/maestro/pkg/constants"
	"github.com/agentstation/maestro/pkg/errors"
)

// Entry is one recorded run.
type Entry struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	Source     string    `json:"source" yaml:"source"`
	Master     string    `json:"master" yaml:"master"`
	Mode       string    `json:"mode,omitempty" yaml:"mode,omitempty"`
	BatchDate  string    `json:"batch_date,omitempty" yaml:"batch_date,omitempty"`
	DryRun     bool      `json:"dry_run" yaml:"dry_run"`
	RowsBefore int       `json:"rows_before" yaml:"rows_before"`
	RowsRead   int       `json:"rows_read" yaml:"rows_read"`
	Duplicates int       `json:"duplicates" yaml:"duplicates"`
	Admitted   int       `json:"admitted" yaml:"admitted"`
	RowsAfter  int       `json:"rows_after" yaml:"rows_after"`
	// Error is the failure message of a run that did not complete.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the run ended in an error.
func (e Entry) Failed() bool {
	return e.Error != ""
}

// Journal is an append-only run log.
type Journal struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the journal at path. Use ":memory:" for a journal
// that lives only as long as the process.
func Open(path string) (*Journal, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
			return nil, errors.WrapIO("create", filepath.Dir(path), err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	// an in-memory database exists per connection
	db.SetMaxOpenConns(1)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return j, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		started_at TEXT NOT NULL,
		source TEXT NOT NULL,
		master TEXT NOT NULL,
		mode TEXT NOT NULL DEFAULT '',
		batch_date TEXT NOT NULL DEFAULT '',
		dry_run BOOLEAN NOT NULL DEFAULT FALSE,
		rows_before INTEGER NOT NULL DEFAULT 0,
		rows_read INTEGER NOT NULL DEFAULT 0,
		duplicates INTEGER NOT NULL DEFAULT 0,
		admitted INTEGER NOT NULL DEFAULT 0,
		rows_after INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_master
		ON runs(master, seq);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record appends a run.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.RunID == "" {
		return &errors.ValidationError{Field: "run_id", Message: "run id is required"}
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	query := `
		INSERT INTO runs
		(run_id, started_at, source, master, mode, batch_date, dry_run,
		 rows_before, rows_read, duplicates, admitted, rows_after, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := j.db.ExecContext(ctx, query,
		e.RunID,
		e.StartedAt.UTC().Format(time.RFC3339Nano),
		e.Source,
		e.Master,
		e.Mode,
		e.BatchDate,
		e.DryRun,
		e.RowsBefore,
		e.RowsRead,
		e.Duplicates,
		e.Admitted,
		e.RowsAfter,
		e.Error,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &errors.ValidationError{Field: "run_id", Value: e.RunID, Message: "run already recorded"}
		}
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. A non-empty master limits
// the result to runs against that master.
func (j *Journal) Recent(ctx context.Context, master string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id, started_at, source, master, mode, batch_date, dry_run,
		       rows_before, rows_read, duplicates, admitted, rows_after, error
		FROM runs
	`
	args := []any{}
	if master != "" {
		query += " WHERE master = ?"
		args = append(args, master)
	}
	query += " ORDER BY seq DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			started string
		)
		if err := rows.Scan(
			&e.RunID, &started, &e.Source, &e.Master, &e.Mode, &e.BatchDate, &e.DryRun,
			&e.RowsBefore, &e.RowsRead, &e.Duplicates, &e.Admitted, &e.RowsAfter, &e.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		e.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Last returns the newest completed, non-dry run against master.
func (j *Journal) Last(ctx context.Context, master string) (*Entry, error) {
	entries, err := j.Recent(ctx, master, 50)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.Failed() && !e.DryRun {
			return &e, nil
		}
	}
	return nil, &errors.NotFoundError{Resource: "run", ID: master}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
