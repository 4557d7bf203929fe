package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the durable signal database. The review JSON file remains the
// human reviewer's source of truth; this store mirrors it so downstream
// consumers can query signals and verdicts with SQL.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Migrate applies the schema. Idempotent; run at startup.
func (s *Store) Migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS signals (
    signal_key    TEXT PRIMARY KEY,
    video_id      TEXT NOT NULL,
    asset         TEXT NOT NULL,
    signal_type   TEXT NOT NULL,
    confidence    TEXT NOT NULL,
    content       TEXT NOT NULL DEFAULT '',
    context       TEXT NOT NULL DEFAULT '',
    source_count  INT NOT NULL DEFAULT 1,
    match_seconds INT,
    match_score   DOUBLE PRECISION,
    match_text    TEXT,
    review_status TEXT NOT NULL DEFAULT 'pending',
    review_reason TEXT,
    reviewed_at   TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS verifications (
    id                UUID PRIMARY KEY,
    signal_key        TEXT NOT NULL REFERENCES signals(signal_key) ON DELETE CASCADE,
    profile           TEXT NOT NULL,
    model             TEXT NOT NULL,
    verdict           TEXT NOT NULL,
    confidence        DOUBLE PRECISION NOT NULL DEFAULT 0,
    reason            TEXT NOT NULL DEFAULT '',
    corrected_asset   TEXT,
    corrected_type    TEXT,
    corrected_content TEXT,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_verifications_signal_key ON verifications(signal_key);
CREATE INDEX IF NOT EXISTS idx_signals_video ON signals(video_id);`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
