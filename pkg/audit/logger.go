// Package audit records every generation call in a dedicated SQLite
// database and prunes entries past their retention period.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/marker-finder/markersum/pkg/config"
	"github.com/marker-finder/markersum/pkg/logger"
	"github.com/marker-finder/markersum/pkg/models"
)

// Logger writes and queries audit entries.
type Logger struct {
	db   *sql.DB
	cfg  config.AuditConfig
	done chan struct{}
	wg   sync.WaitGroup

	keepPrompts   bool
	keepResponses bool
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS audit_log (
		request_id  TEXT PRIMARY KEY,
		run_id      TEXT,
		marker_id   TEXT,
		model       TEXT NOT NULL,
		backend     TEXT,
		prompt      TEXT,
		response    TEXT,
		error       TEXT,
		status_code INTEGER,
		attempts    INTEGER,
		latency_ms  INTEGER,
		created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_model ON audit_log(model)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_run ON audit_log(run_id)`,
}

// New opens the audit database at cfg.DBPath, creates the schema and starts
// the hourly retention sweep. Close stops it.
func New(cfg config.AuditConfig) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate audit db: %w", err)
		}
	}

	l := &Logger{
		db:            db,
		cfg:           cfg,
		done:          make(chan struct{}),
		keepPrompts:   slices.Contains(cfg.Include, "prompts"),
		keepResponses: slices.Contains(cfg.Include, "responses"),
	}
	l.wg.Add(1)
	go l.retentionLoop()
	return l, nil
}

// clip drops a body that is not kept and cuts the rest to MaxBodySize bytes.
func (l *Logger) clip(body string, keep bool) string {
	if !keep {
		return ""
	}
	if n := l.cfg.MaxBodySize; n > 0 && len(body) > n {
		return body[:n]
	}
	return body
}

// Log inserts one entry. A nil Logger discards it.
func (l *Logger) Log(ctx context.Context, entry models.AuditEntry) error {
	if l == nil || l.db == nil {
		return nil
	}
	if entry.RequestID == "" {
		entry.RequestID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO audit_log
		(request_id, run_id, marker_id, model, backend, prompt, response, error,
		 status_code, attempts, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID, entry.RunID, entry.Identifier, entry.Model, entry.Backend,
		l.clip(entry.Prompt, l.keepPrompts), l.clip(entry.Response, l.keepResponses), entry.Error,
		entry.StatusCode, entry.Attempts, entry.LatencyMs, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// Query returns audit entries matching opts, newest first. At most 100
// entries are returned unless opts.Limit says otherwise.
func (l *Logger) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	eq := func(col string, v any) {
		where = append(where, col+" = ?")
		args = append(args, v)
	}
	if opts.RequestID != "" {
		eq("request_id", opts.RequestID)
	}
	if opts.Model != "" {
		eq("model", opts.Model)
	}
	if opts.Identifier != "" {
		eq("marker_id", opts.Identifier)
	}
	if opts.RunID != "" {
		eq("run_id", opts.RunID)
	}
	if !opts.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, opts.Since)
	}
	if opts.FailedOnly {
		where = append(where, "error != ''")
	}

	q := `SELECT request_id, run_id, marker_id, model, backend, prompt, response, error,
		status_code, attempts, latency_ms, created_at FROM audit_log`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var runID, markerID, backend, prompt, response, errText sql.NullString
		if err := rows.Scan(
			&e.RequestID, &runID, &markerID, &e.Model, &backend,
			&prompt, &response, &errText,
			&e.StatusCode, &e.Attempts, &e.LatencyMs, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.RunID = runID.String
		e.Identifier = markerID.String
		e.Backend = backend.String
		e.Prompt = prompt.String
		e.Response = response.String
		e.Error = errText.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns call and failure counts grouped by model and day.
func (l *Logger) Stats(ctx context.Context) ([]models.AuditStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT model, date(created_at) as day, count(*) as cnt,
		 SUM(CASE WHEN error != '' THEN 1 ELSE 0 END) as failures
		 FROM audit_log GROUP BY model, day ORDER BY day DESC, model`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AuditStat
	for rows.Next() {
		var s models.AuditStat
		var day sql.NullString
		if err := rows.Scan(&s.Model, &day, &s.Count, &s.Failures); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the configured retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM audit_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			n, err := l.Cleanup(context.Background())
			if err != nil {
				logger.Logger.Warnw("Audit retention sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Logger.Debugw("Pruned audit entries", "count", n)
			}
		}
	}
}
