// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists merge runs and their per-source outcomes in a
// SQLite database so past merges can be listed and exported.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/docmerge/pkg/types"
)

// DefaultPath is the database location used when none is configured.
const DefaultPath = "logs/history.db"

// timeLayout has fixed-width fractions so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Store manages the merge history database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the history database at cfg.Path and creates
// the schema if it does not exist.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			format TEXT NOT NULL,
			strategy TEXT,
			fidelity TEXT,
			output_path TEXT,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS sources (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			path TEXT NOT NULL,
			status TEXT NOT NULL,
			units INTEGER NOT NULL,
			error TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores result and its sources. Recording the same run id again
// replaces the earlier record.
func (s *Store) Record(ctx context.Context, result *types.MergeResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, format, strategy, fidelity, output_path, status, started_at, finished_at, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			format=excluded.format, strategy=excluded.strategy, fidelity=excluded.fidelity,
			output_path=excluded.output_path, status=excluded.status,
			started_at=excluded.started_at, finished_at=excluded.finished_at, error=excluded.error`,
		result.ID, string(result.Format), result.Strategy, string(result.Fidelity),
		result.OutputPath, string(result.Status),
		formatTime(result.StartedAt), formatTime(result.FinishedAt), result.Error,
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE run_id = ?`, result.ID); err != nil {
		return fmt.Errorf("deleting old sources: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sources (run_id, position, path, status, units, error) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, src := range result.Sources {
		_, err := stmt.ExecContext(ctx, result.ID, src.Position, src.Path, string(src.Status), src.Units, src.Error)
		if err != nil {
			return fmt.Errorf("inserting source %s: %w", src.Path, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.MergeResult, error) {
	query := `SELECT id, format, strategy, fidelity, output_path, status, started_at, finished_at, error
		FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []types.MergeResult
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	for i := range runs {
		if runs[i].Sources, err = s.sources(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Get returns the run with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*types.MergeResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, format, strategy, fidelity, output_path, status, started_at, finished_at, error
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if run.Sources, err = s.sources(ctx, id); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) sources(ctx context.Context, runID string) ([]types.SourceResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, path, status, units, COALESCE(error, '')
		 FROM sources WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying sources of %s: %w", runID, err)
	}
	defer rows.Close()

	out := []types.SourceResult{}
	for rows.Next() {
		var src types.SourceResult
		var status string
		if err := rows.Scan(&src.Position, &src.Path, &status, &src.Units, &src.Error); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		src.Status = types.SourceStatus(status)
		out = append(out, src)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (types.MergeResult, error) {
	var (
		run                                 types.MergeResult
		format, status                      string
		strategy, fidelity, output, errText sql.NullString
		started                             string
		finished                            sql.NullString
	)
	err := sc.Scan(&run.ID, &format, &strategy, &fidelity, &output, &status, &started, &finished, &errText)
	if errors.Is(err, sql.ErrNoRows) {
		return run, err
	}
	if err != nil {
		return run, fmt.Errorf("scanning run: %w", err)
	}

	run.Format = types.Format(format)
	run.Strategy = strategy.String
	run.Fidelity = types.Fidelity(fidelity.String)
	run.OutputPath = output.String
	run.Status = types.RunStatus(status)
	run.Error = errText.String
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished.String)
	return run, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
