package signal

import (
	"encoding/json"
	"fmt"
)

// Older signal JSON files drifted across script generations: "asset" vs
// "stock", "signal_type" vs "signal", "content" vs "quote". All of that is
// resolved here, once, at ingestion; the rest of the codebase only ever sees
// the canonical Raw.
type legacyRaw struct {
	VideoID      string `json:"video_id"`
	VideoIDAlt   string `json:"videoId"`
	Asset        string `json:"asset"`
	Stock        string `json:"stock"`
	SignalType   string `json:"signal_type"`
	Signal       string `json:"signal"`
	Confidence   string `json:"confidence"`
	Content      string `json:"content"`
	Quote        string `json:"quote"`
	Context      string `json:"context"`
	Timestamp    string `json:"timestamp"`
	TimestampAlt string `json:"timestamp_text"`
}

// DecodeRaws parses a signal JSON array in any of the historical layouts.
// Records with an unknown signal type or no asset are dropped; the count of
// dropped records is returned so callers can log it.
func DecodeRaws(data []byte, videoID string) ([]Raw, int, error) {
	var legacy []legacyRaw
	if err := json.Unmarshal(data, &legacy); err != nil {
		// Some files wrap the array in {"signals": [...]}.
		var wrapped struct {
			Signals []legacyRaw `json:"signals"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			return nil, 0, fmt.Errorf("parse signal json: %w", err)
		}
		legacy = wrapped.Signals
	}

	var raws []Raw
	dropped := 0
	for _, l := range legacy {
		asset := firstNonEmpty(l.Asset, l.Stock)
		t, ok := ParseType(firstNonEmpty(l.SignalType, l.Signal))
		if asset == "" || !ok {
			dropped++
			continue
		}
		raws = append(raws, Raw{
			VideoID:       firstNonEmpty(l.VideoID, l.VideoIDAlt, videoID),
			Asset:         asset,
			Type:          t,
			Confidence:    ParseConfidence(l.Confidence),
			Content:       firstNonEmpty(l.Content, l.Quote),
			Context:       l.Context,
			TimestampText: firstNonEmpty(l.TimestampAlt, l.Timestamp),
		})
	}
	return raws, dropped, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
