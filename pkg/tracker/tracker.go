// Package tracker keeps a ledger of batch runs in SQLite.
package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/marker-finder/markersum/pkg/models"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Tracker records and queries batch runs.
type Tracker interface {
	// Begin stores a new running run and returns its id.
	Begin(ctx context.Context, rec models.RunRecord) (string, error)
	// Finish stores the final counters and status of a run.
	Finish(ctx context.Context, rec models.RunRecord) error
	// Get returns one run.
	Get(ctx context.Context, id string) (models.RunRecord, error)
	// List returns the most recent runs first, at most limit (0 = all).
	List(ctx context.Context, limit int) ([]models.RunRecord, error)
	// Summary aggregates runs per model.
	Summary(ctx context.Context) ([]models.RunSummary, error)
	// Close releases resources.
	Close() error
}

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	input_path TEXT NOT NULL,
	output_path TEXT NOT NULL,
	model TEXT NOT NULL,
	forced INTEGER NOT NULL DEFAULT 0,
	row_limit INTEGER NOT NULL DEFAULT 0,
	row_count INTEGER NOT NULL DEFAULT 0,
	cache_hits INTEGER NOT NULL DEFAULT 0,
	generated INTEGER NOT NULL DEFAULT 0,
	placeholders INTEGER NOT NULL DEFAULT 0,
	failures INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	started_at DATETIME NOT NULL,
	finished_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

const runColumns = `id, input_path, output_path, model, forced, row_limit,
	row_count, cache_hits, generated, placeholders, failures,
	status, error, started_at, finished_at`

// New creates a SQLiteTracker and runs auto-migration.
func New(dbPath string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

// Begin inserts rec with status running. An empty rec.ID gets a fresh UUID.
func (t *SQLiteTracker) Begin(ctx context.Context, rec models.RunRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_path, output_path, model, forced, row_limit, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.InputPath, rec.OutputPath, rec.Model, rec.Force, rec.Limit, models.RunRunning, rec.StartedAt,
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return rec.ID, nil
}

// Finish updates the counters, status and end time of run rec.ID.
func (t *SQLiteTracker) Finish(ctx context.Context, rec models.RunRecord) error {
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now().UTC()
	}
	res, err := t.db.ExecContext(ctx,
		`UPDATE runs SET row_count = ?, cache_hits = ?, generated = ?, placeholders = ?, failures = ?,
		 status = ?, error = ?, finished_at = ? WHERE id = ?`,
		rec.Stats.Rows, rec.Stats.CacheHits, rec.Stats.Generated, rec.Stats.Placeholders, rec.Stats.Failures,
		rec.Status, rec.Error, rec.FinishedAt, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", rec.ID, ErrNotFound)
	}
	return nil
}

// Get returns the run with the given id.
func (t *SQLiteTracker) Get(ctx context.Context, id string) (models.RunRecord, error) {
	row := t.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RunRecord{}, ErrNotFound
	}
	if err != nil {
		return models.RunRecord{}, fmt.Errorf("get run: %w", err)
	}
	return rec, nil
}

// List returns runs newest first.
func (t *SQLiteTracker) List(ctx context.Context, limit int) ([]models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// Summary returns row counters summed per model over finished runs.
func (t *SQLiteTracker) Summary(ctx context.Context) ([]models.RunSummary, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT model, COUNT(*), SUM(row_count), SUM(cache_hits), SUM(generated), SUM(placeholders), SUM(failures)
		 FROM runs WHERE status != ? GROUP BY model ORDER BY model`,
		models.RunRunning,
	)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.RunSummary
	for rows.Next() {
		var s models.RunSummary
		if err := rows.Scan(&s.Model, &s.Runs, &s.Stats.Rows, &s.Stats.CacheHits,
			&s.Stats.Generated, &s.Stats.Placeholders, &s.Stats.Failures); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Close releases the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (models.RunRecord, error) {
	var rec models.RunRecord
	var finished sql.NullTime
	err := s.Scan(
		&rec.ID, &rec.InputPath, &rec.OutputPath, &rec.Model, &rec.Force, &rec.Limit,
		&rec.Stats.Rows, &rec.Stats.CacheHits, &rec.Stats.Generated, &rec.Stats.Placeholders, &rec.Stats.Failures,
		&rec.Status, &rec.Error, &rec.StartedAt, &finished,
	)
	if err != nil {
		return rec, err
	}
	rec.FinishedAt = finished.Time
	return rec, nil
}
