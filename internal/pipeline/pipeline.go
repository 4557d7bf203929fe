package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danbi-lab/sonar/internal/caption"
	"github.com/danbi-lab/sonar/internal/config"
	"github.com/danbi-lab/sonar/internal/events"
	"github.com/danbi-lab/sonar/internal/extractor"
	"github.com/danbi-lab/sonar/internal/jobs"
	"github.com/danbi-lab/sonar/internal/match"
	"github.com/danbi-lab/sonar/internal/merge"
	"github.com/danbi-lab/sonar/internal/signal"
	"github.com/danbi-lab/sonar/internal/store"
	"github.com/danbi-lab/sonar/internal/verify"
)

// Pipeline drives captions → extract → merge → match → persist → verify.
// LLM work is strictly sequential with a fixed pause between calls; only
// subtitle parsing fans out.
type Pipeline struct {
	cfg       config.Pipeline
	extractor *extractor.Extractor
	merger    *merge.Merger
	matcher   *match.Matcher
	verifier  *verify.Verifier // fast profile; nil skips inline verification
	db        *store.Store     // nil skips DB writes (JSON files still written)
	events    *events.Client   // nil skips publishing
	jobs      *jobs.Store
	logger    *slog.Logger
}

func New(cfg config.Pipeline, ext *extractor.Extractor, merger *merge.Merger, matcher *match.Matcher,
	verifier *verify.Verifier, db *store.Store, ev *events.Client, js *jobs.Store, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		extractor: ext,
		merger:    merger,
		matcher:   matcher,
		verifier:  verifier,
		db:        db,
		events:    ev,
		jobs:      js,
		logger:    logger,
	}
}

// Run processes every pending video under the subtitles directory. An
// unfinished job of the same kind is resumed instead of restarted; each
// finished video is committed individually so Ctrl-C loses at most the
// in-flight one.
func (p *Pipeline) Run(ctx context.Context) error {
	videoIDs, err := caption.ListVideos(p.cfg.Paths.SubtitlesDir)
	if err != nil {
		return fmt.Errorf("list videos: %w", err)
	}
	if len(videoIDs) == 0 {
		p.logger.Info("no subtitle files found", "dir", p.cfg.Paths.SubtitlesDir)
		return nil
	}

	jobID, err := p.jobs.Resume(ctx, "extract")
	if err != nil {
		return err
	}
	if jobID == 0 {
		jobID, err = p.jobs.Create(ctx, "extract", videoIDs)
		if err != nil {
			return err
		}
		p.logger.Info("created extraction job", "job_id", jobID, "videos", len(videoIDs))
	} else {
		p.logger.Info("resuming extraction job", "job_id", jobID)
	}

	pending, err := p.jobs.Pending(ctx, jobID)
	if err != nil {
		return err
	}

	captions := p.loadCaptions(ctx, pending)

	pause := time.Duration(p.cfg.Run.RateLimitSeconds * float64(time.Second))
	for _, videoID := range pending {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline interrupted", "job_id", jobID)
			return ctx.Err()
		default:
		}

		lines, ok := captions[videoID]
		if !ok || len(lines) == 0 {
			p.logger.Warn("no usable captions", "video_id", videoID)
			if err := p.jobs.MarkFailed(ctx, jobID, videoID, "no usable captions"); err != nil {
				p.logger.Error("failed to mark item", "video_id", videoID, "error", err)
			}
			continue
		}

		if err := p.processVideo(ctx, videoID, lines); err != nil {
			p.logger.Error("video failed", "video_id", videoID, "error", err)
			if err := p.jobs.MarkFailed(ctx, jobID, videoID, err.Error()); err != nil {
				p.logger.Error("failed to mark item", "video_id", videoID, "error", err)
			}
		} else {
			if err := p.jobs.MarkDone(ctx, jobID, videoID); err != nil {
				p.logger.Error("failed to mark item", "video_id", videoID, "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}

	stats, err := p.jobs.JobStats(ctx, jobID)
	if err != nil {
		return err
	}
	if stats.Pending == 0 {
		if err := p.jobs.Finish(ctx, jobID); err != nil {
			return err
		}
	}
	p.logger.Info("pipeline run complete",
		"job_id", jobID,
		"done", stats.Done,
		"failed", stats.Failed,
		"pending", stats.Pending,
	)
	return nil
}

// loadCaptions parses subtitle files with a bounded pool. Each goroutine
// writes only its own video's slot; the mutex protects map bookkeeping only.
func (p *Pipeline) loadCaptions(ctx context.Context, videoIDs []string) map[string][]caption.Line {
	out := make(map[string][]caption.Line, len(videoIDs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Run.Workers)
	for _, id := range videoIDs {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			lines, err := caption.LoadFile(p.cfg.Paths.SubtitlesDir, id)
			if err != nil {
				p.logger.Warn("subtitle load failed", "video_id", id, "error", err)
				return nil // missing subtitles never fail the batch
			}
			mu.Lock()
			out[id] = lines
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// processVideo runs one video through extract → merge → match → persist →
// verify.
func (p *Pipeline) processVideo(ctx context.Context, videoID string, lines []caption.Line) error {
	captionText := caption.FullText(lines)

	raws, err := p.extractor.Extract(ctx, extractor.Video{ID: videoID}, captionText)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	merged := p.merger.Merge(raws)

	matched := 0
	for i := range merged {
		if m := p.matcher.Find(merged[i], lines); m != nil {
			merged[i].Match = m
			matched++
		}
	}

	if err := p.writeSignalFile(videoID, merged); err != nil {
		return err
	}

	if p.db != nil {
		for _, m := range merged {
			if err := p.db.UpsertSignal(ctx, m); err != nil {
				return fmt.Errorf("persist signal %s: %w", m.Key(), err)
			}
		}
	}

	if p.verifier != nil && p.db != nil {
		for _, m := range merged {
			res := p.verifier.Verify(ctx, m, captionText)
			if err := p.db.WriteVerification(ctx, res); err != nil {
				p.logger.Error("failed to store verdict", "signal", m.Key(), "error", err)
			}
			if p.events != nil {
				if err := p.events.Publish(events.SubjectSignalVerified, res); err != nil {
					p.logger.Warn("failed to publish verdict", "signal", m.Key(), "error", err)
				}
			}
		}
	}

	if p.events != nil {
		evt := events.VideoProcessed{
			VideoID:   videoID,
			Signals:   len(merged),
			Matched:   matched,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if err := p.events.Publish(events.SubjectVideoProcessed, evt); err != nil {
			p.logger.Warn("failed to publish video processed", "video_id", videoID, "error", err)
		}
	}

	p.logger.Info("video processed",
		"video_id", videoID,
		"raw_signals", len(raws),
		"merged", len(merged),
		"matched", matched,
	)
	return nil
}

// writeSignalFile keeps the per-video JSON interchange file current.
func (p *Pipeline) writeSignalFile(videoID string, merged []signal.Merged) error {
	if err := os.MkdirAll(p.cfg.Paths.SignalsDir, 0o755); err != nil {
		return fmt.Errorf("mkdir signals dir: %w", err)
	}
	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	path := filepath.Join(p.cfg.Paths.SignalsDir, videoID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write signal file: %w", err)
	}
	return nil
}

// VerifyStored runs one verifier profile over every stored signal,
// appending verdicts next to whatever earlier profiles produced.
func (p *Pipeline) VerifyStored(ctx context.Context, v *verify.Verifier) error {
	if p.db == nil {
		return fmt.Errorf("verification requires a database")
	}

	signals, err := p.db.ListSignals(ctx)
	if err != nil {
		return err
	}

	pause := time.Duration(p.cfg.Run.RateLimitSeconds * float64(time.Second))
	verified := 0
	for _, st := range signals {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		captionText := p.captionTextFor(st.Signal.VideoID)
		res := v.Verify(ctx, st.Signal, captionText)
		if err := p.db.WriteVerification(ctx, res); err != nil {
			p.logger.Error("failed to store verdict", "signal", st.Key, "error", err)
			continue
		}
		verified++
		if p.events != nil {
			if err := p.events.Publish(events.SubjectSignalVerified, res); err != nil {
				p.logger.Warn("failed to publish verdict", "signal", st.Key, "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}

	p.logger.Info("verification pass complete", "signals", len(signals), "verified", verified)
	return nil
}

// ReverifyRejected re-checks human-rejected signals with the given verifier.
// Called from the review API as a background task.
func (p *Pipeline) ReverifyRejected(ctx context.Context, v *verify.Verifier) (int, error) {
	if p.db == nil {
		return 0, fmt.Errorf("re-verification requires a database")
	}

	rejected, err := p.db.ListRejected(ctx)
	if err != nil {
		return 0, err
	}

	if p.events != nil {
		_ = p.events.Publish(events.SubjectReverifyStarted, map[string]any{
			"count":     len(rejected),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}

	pause := time.Duration(p.cfg.Run.RateLimitSeconds * float64(time.Second))
	done := 0
	for _, st := range rejected {
		select {
		case <-ctx.Done():
			return done, ctx.Err()
		default:
		}

		res := v.Verify(ctx, st.Signal, p.captionTextFor(st.Signal.VideoID))
		if err := p.db.WriteVerification(ctx, res); err != nil {
			p.logger.Error("failed to store re-check verdict", "signal", st.Key, "error", err)
			continue
		}
		done++

		select {
		case <-ctx.Done():
			return done, ctx.Err()
		case <-time.After(pause):
		}
	}
	return done, nil
}

// captionTextFor loads a video's caption text, or "" when the subtitle file
// is gone; the verifier turns that into an error verdict.
func (p *Pipeline) captionTextFor(videoID string) string {
	lines, err := caption.LoadFile(p.cfg.Paths.SubtitlesDir, videoID)
	if err != nil {
		return ""
	}
	return caption.FullText(lines)
}
