package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/danbi-lab/sonar/internal/anthropic"
	"github.com/danbi-lab/sonar/internal/signal"
)

// Video identifies one source video for extraction.
type Video struct {
	ID      string `json:"video_id"`
	Title   string `json:"title"`
	Channel string `json:"channel"`
}

// Extractor runs the per-video LLM extraction pass. It is a noisy oracle:
// repeated runs on the same captions may pick different quotes, so
// downstream stages never assume idempotence.
type Extractor struct {
	llm    *anthropic.Client
	logger *slog.Logger
}

func New(llm *anthropic.Client, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, logger: logger}
}

type llmSignal struct {
	Asset         string `json:"asset"`
	SignalType    string `json:"signal_type"`
	Confidence    string `json:"confidence"`
	Content       string `json:"content"`
	Context       string `json:"context"`
	TimestampText string `json:"timestamp_text"`
}

type llmResponse struct {
	Signals []llmSignal `json:"signals"`
}

// Extract asks the model for all investment signals in the video's captions.
// Records with an unrecognizable signal type or an empty asset are dropped
// and logged; a non-JSON response fails only this video.
func (e *Extractor) Extract(ctx context.Context, video Video, captionText string) ([]signal.Raw, error) {
	prompt := fmt.Sprintf(extractionUserPrompt, video.ID, video.Title, video.Channel, captionText)

	messages := []anthropic.Message{
		{Role: "user", Content: prompt},
	}

	e.logger.Info("extracting signals",
		"video_id", video.ID,
		"channel", video.Channel,
		"caption_len", len(captionText),
	)

	raw, err := e.llm.Complete(ctx, systemPrompt, messages, 8192)
	if err != nil {
		return nil, fmt.Errorf("llm extraction: %w", err)
	}

	raws, dropped, err := ParseResponse(raw, video.ID)
	if err != nil {
		e.logger.Error("failed to parse extraction response",
			"video_id", video.ID,
			"error", err,
			"raw", raw,
		)
		return nil, fmt.Errorf("parse extraction: %w", err)
	}
	if dropped > 0 {
		e.logger.Warn("dropped unparseable signals", "video_id", video.ID, "dropped", dropped)
	}

	e.logger.Info("extraction complete", "video_id", video.ID, "signals", len(raws))
	return raws, nil
}

// ParseResponse converts the model's JSON (fences tolerated) into raw
// signals. The dropped count covers records with unknown types or missing
// assets.
func ParseResponse(raw, videoID string) ([]signal.Raw, int, error) {
	var resp llmResponse
	if err := json.Unmarshal([]byte(anthropic.StripFences(raw)), &resp); err != nil {
		return nil, 0, err
	}

	var raws []signal.Raw
	dropped := 0
	for _, s := range resp.Signals {
		t, ok := signal.ParseType(s.SignalType)
		if !ok || s.Asset == "" {
			dropped++
			continue
		}
		raws = append(raws, signal.Raw{
			VideoID:       videoID,
			Asset:         s.Asset,
			Type:          t,
			Confidence:    signal.ParseConfidence(s.Confidence),
			Content:       s.Content,
			Context:       s.Context,
			TimestampText: s.TimestampText,
		})
	}
	return raws, dropped, nil
}
