package store

import (
	"context"
	"fmt"
	"time"

	"github.com/danbi-lab/sonar/internal/signal"
	"github.com/danbi-lab/sonar/internal/verify"
)

// StoredSignal is a merged signal row with its review state.
type StoredSignal struct {
	Key          string            `json:"key"`
	Signal       signal.Merged     `json:"signal"`
	ReviewStatus string            `json:"review_status"`
	ReviewReason string            `json:"review_reason,omitempty"`
	Verdicts     []verify.Result   `json:"verdicts,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// UpsertSignal writes a merged signal, replacing any previous extraction for
// the same (video, asset) pair. Re-extraction overwrites the signal but
// leaves review status untouched.
func (s *Store) UpsertSignal(ctx context.Context, m signal.Merged) error {
	var matchSecs *int
	var matchScore *float64
	var matchText *string
	if m.Match != nil {
		matchSecs = &m.Match.Seconds
		matchScore = &m.Match.Score
		matchText = &m.Match.MatchedText
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO signals (signal_key, video_id, asset, signal_type, confidence, content, context,
		                     source_count, match_seconds, match_score, match_text, review_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'pending', now())
		ON CONFLICT (signal_key) DO UPDATE SET
			signal_type = EXCLUDED.signal_type,
			confidence = EXCLUDED.confidence,
			content = EXCLUDED.content,
			context = EXCLUDED.context,
			source_count = EXCLUDED.source_count,
			match_seconds = EXCLUDED.match_seconds,
			match_score = EXCLUDED.match_score,
			match_text = EXCLUDED.match_text`,
		m.Key(), m.VideoID, m.Asset, string(m.Type), string(m.Confidence), m.Content, m.Context,
		m.SourceCount, matchSecs, matchScore, matchText,
	)
	if err != nil {
		return fmt.Errorf("upsert signal: %w", err)
	}
	return nil
}

// WriteVerification appends one verifier result. Results from different
// profiles sit side by side; nothing reconciles them.
func (s *Store) WriteVerification(ctx context.Context, res verify.Result) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO verifications (id, signal_key, profile, model, verdict, confidence, reason,
		                           corrected_asset, corrected_type, corrected_content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		res.RunID, res.SignalKey, string(res.Profile), res.Model, res.Verdict, res.Confidence,
		res.Reason, res.CorrectedAsset, string(res.CorrectedType), res.CorrectedContent, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

// UpdateReviewStatus mirrors a human decision onto the signal row.
func (s *Store) UpdateReviewStatus(ctx context.Context, key, status, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE signals SET review_status = $1, review_reason = $2, reviewed_at = now()
		WHERE signal_key = $3`,
		status, reason, key,
	)
	if err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	return nil
}

// ListSignals returns all signals with their verdicts, newest first.
func (s *Store) ListSignals(ctx context.Context) ([]StoredSignal, error) {
	return s.listSignals(ctx, `
		SELECT signal_key, video_id, asset, signal_type, confidence, content, context,
		       source_count, match_seconds, match_score, match_text,
		       review_status, COALESCE(review_reason, ''), created_at
		FROM signals ORDER BY created_at DESC, signal_key`)
}

// ListRejected returns the signals a human has rejected, for re-verification.
func (s *Store) ListRejected(ctx context.Context) ([]StoredSignal, error) {
	return s.listSignals(ctx, `
		SELECT signal_key, video_id, asset, signal_type, confidence, content, context,
		       source_count, match_seconds, match_score, match_text,
		       review_status, COALESCE(review_reason, ''), created_at
		FROM signals WHERE review_status = 'rejected'
		ORDER BY created_at DESC, signal_key`)
}

func (s *Store) listSignals(ctx context.Context, query string) ([]StoredSignal, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []StoredSignal
	for rows.Next() {
		var st StoredSignal
		var m signal.Merged
		var sigType, conf string
		var matchSecs *int
		var matchScore *float64
		var matchText *string

		if err := rows.Scan(&st.Key, &m.VideoID, &m.Asset, &sigType, &conf, &m.Content, &m.Context,
			&m.SourceCount, &matchSecs, &matchScore, &matchText,
			&st.ReviewStatus, &st.ReviewReason, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		m.Type = signal.Type(sigType)
		m.Confidence = signal.Confidence(conf)
		if matchSecs != nil {
			m.Match = &signal.Match{Seconds: *matchSecs}
			if matchScore != nil {
				m.Match.Score = *matchScore
			}
			if matchText != nil {
				m.Match.MatchedText = *matchText
			}
		}
		st.Signal = m
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signals: %w", err)
	}

	if err := s.attachVerdicts(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachVerdicts loads all verifications for the listed signals in one query.
func (s *Store) attachVerdicts(ctx context.Context, signals []StoredSignal) error {
	if len(signals) == 0 {
		return nil
	}
	keys := make([]string, len(signals))
	index := make(map[string]int, len(signals))
	for i, st := range signals {
		keys[i] = st.Key
		index[st.Key] = i
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, signal_key, profile, model, verdict, confidence, reason,
		       COALESCE(corrected_asset, ''), COALESCE(corrected_type, ''), COALESCE(corrected_content, ''), created_at
		FROM verifications WHERE signal_key = ANY($1) ORDER BY created_at`,
		keys,
	)
	if err != nil {
		return fmt.Errorf("query verifications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var res verify.Result
		var profile, correctedType string
		if err := rows.Scan(&res.RunID, &res.SignalKey, &profile, &res.Model, &res.Verdict,
			&res.Confidence, &res.Reason, &res.CorrectedAsset, &correctedType,
			&res.CorrectedContent, &res.CreatedAt); err != nil {
			return fmt.Errorf("scan verification: %w", err)
		}
		res.Profile = verify.Profile(profile)
		res.CorrectedType = signal.Type(correctedType)
		if i, ok := index[res.SignalKey]; ok {
			signals[i].Verdicts = append(signals[i].Verdicts, res)
		}
	}
	return rows.Err()
}
