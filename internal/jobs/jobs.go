package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store tracks resumable pipeline jobs in a local SQLite file. Each job
// holds a set of item ids (video ids) with per-item completion state, and a
// processed item is committed atomically, so a killed run resumes exactly
// where it stopped.
type Store struct {
	db   *sql.DB
	path string
}

// Item statuses.
const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Open initializes or connects to the job database and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure job dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    kind TEXT NOT NULL,
    created_at TEXT NOT NULL,
    finished_at TEXT
);
CREATE TABLE IF NOT EXISTS job_items (
    job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
    item_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    error TEXT,
    processed_at TEXT,
    PRIMARY KEY (job_id, item_id)
);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Resume returns the newest unfinished job of the given kind, or 0 if none
// exists.
func (s *Store) Resume(ctx context.Context, kind string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM jobs WHERE kind = ? AND finished_at IS NULL ORDER BY id DESC LIMIT 1`,
		kind,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find resumable job: %w", err)
	}
	return id, nil
}

// Create starts a new job over the given item ids.
func (s *Store) Create(ctx context.Context, kind string, itemIDs []string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO jobs (kind, created_at) VALUES (?, ?)`,
		kind, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	jobID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("job id: %w", err)
	}

	for _, id := range itemIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO job_items (job_id, item_id, status) VALUES (?, ?, ?)`,
			jobID, id, StatusPending,
		); err != nil {
			return 0, fmt.Errorf("insert job item %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return jobID, nil
}

// Pending returns the job's unprocessed item ids in insertion order.
func (s *Store) Pending(ctx context.Context, jobID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id FROM job_items WHERE job_id = ? AND status = ? ORDER BY rowid`,
		jobID, StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending items: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkDone commits a single item as processed.
func (s *Store) MarkDone(ctx context.Context, jobID int64, itemID string) error {
	return s.markItem(ctx, jobID, itemID, StatusDone, "")
}

// MarkFailed records a per-item failure; the item will not be retried within
// this job.
func (s *Store) MarkFailed(ctx context.Context, jobID int64, itemID, reason string) error {
	return s.markItem(ctx, jobID, itemID, StatusFailed, reason)
}

func (s *Store) markItem(ctx context.Context, jobID int64, itemID, status, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE job_items SET status = ?, error = ?, processed_at = ? WHERE job_id = ? AND item_id = ?`,
		status, nullable(errMsg), time.Now().UTC().Format(time.RFC3339Nano), jobID, itemID,
	)
	if err != nil {
		return fmt.Errorf("mark item %s: %w", itemID, err)
	}
	return nil
}

// Finish closes a job once nothing is pending.
func (s *Store) Finish(ctx context.Context, jobID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET finished_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), jobID,
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return nil
}

// Stats summarizes a job's progress.
type Stats struct {
	Pending int
	Done    int
	Failed  int
}

func (s *Store) JobStats(ctx context.Context, jobID int64) (Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM job_items WHERE job_id = ? GROUP BY status`,
		jobID,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("query job stats: %w", err)
	}
	defer rows.Close()

	var st Stats
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		switch status {
		case StatusPending:
			st.Pending = n
		case StatusDone:
			st.Done = n
		case StatusFailed:
			st.Failed = n
		}
	}
	return st, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
