package signal

import "strings"

// Type classifies the direction of an extracted opinion. The eight values are
// ordered by directional strength; Priority reflects that order and drives
// the merge scoring.
type Type string

const (
	TypeStrongSell Type = "STRONG_SELL"
	TypeSell       Type = "SELL"
	TypeConcern    Type = "CONCERN"
	TypeNeutral    Type = "NEUTRAL"
	TypeHold       Type = "HOLD"
	TypePositive   Type = "POSITIVE"
	TypeBuy        Type = "BUY"
	TypeStrongBuy  Type = "STRONG_BUY"
)

// typeOrder lists the types from weakest sell to strongest buy.
var typeOrder = []Type{
	TypeStrongSell,
	TypeSell,
	TypeConcern,
	TypeNeutral,
	TypeHold,
	TypePositive,
	TypeBuy,
	TypeStrongBuy,
}

// Priority returns the 1-based ordinal of the type (STRONG_SELL=1,
// STRONG_BUY=8), or 0 for an unknown value.
func (t Type) Priority() int {
	for i, v := range typeOrder {
		if t == v {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether t is one of the eight known types.
func (t Type) Valid() bool {
	return t.Priority() > 0
}

// ParseType normalizes a raw LLM-produced type label. Labels are
// case-insensitive and tolerate surrounding whitespace and hyphens.
func ParseType(s string) (Type, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	norm = strings.ReplaceAll(norm, " ", "_")
	t := Type(norm)
	if t.Valid() {
		return t, true
	}
	return "", false
}

// Confidence is the extractor's self-reported certainty for a signal.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Weight maps HIGH/MEDIUM/LOW to 3/2/1. Unknown values weigh 1 so that a
// malformed confidence never inflates a merge score.
func (c Confidence) Weight() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	default:
		return 1
	}
}

// ConfidenceFromWeight is the inverse of Weight, used when resolving a
// merged confidence from a rounded average.
func ConfidenceFromWeight(w int) Confidence {
	switch {
	case w >= 3:
		return ConfidenceHigh
	case w == 2:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ParseConfidence normalizes a raw confidence label, defaulting to MEDIUM.
func ParseConfidence(s string) Confidence {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HIGH":
		return ConfidenceHigh
	case "LOW":
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}

// Raw is a single extracted opinion as produced by the extractor. Several
// raws may share a (video, asset) pair; the merge package reduces them.
type Raw struct {
	VideoID       string     `json:"video_id"`
	Asset         string     `json:"asset"`
	Type          Type       `json:"signal_type"`
	Confidence    Confidence `json:"confidence"`
	Content       string     `json:"content"`
	Context       string     `json:"context,omitempty"`
	TimestampText string     `json:"timestamp_text,omitempty"`
}

// Match is the best caption location found for a merged signal. Absent when
// no candidate cleared the acceptance threshold.
type Match struct {
	Seconds     int     `json:"seconds"`
	Score       float64 `json:"score"`
	MatchedText string  `json:"matched_text"`
}

// Merged is the single representative signal for a (video, asset) pair.
type Merged struct {
	VideoID     string     `json:"video_id"`
	Asset       string     `json:"asset"`
	Type        Type       `json:"signal_type"`
	Confidence  Confidence `json:"confidence"`
	Content     string     `json:"content"`
	Context     string     `json:"context,omitempty"`
	SourceCount int        `json:"source_count"`
	SourceIdx   []int      `json:"source_idx,omitempty"`
	Match       *Match     `json:"match,omitempty"`
}

// Key returns the review-store key for the signal: "<videoId>_<asset>".
// Asset is already normalized by the time a Merged exists.
func (m Merged) Key() string {
	return m.VideoID + "_" + m.Asset
}
