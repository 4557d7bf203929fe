package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danbi-lab/sonar/internal/anthropic"
	"github.com/danbi-lab/sonar/internal/signal"
)

// Profile names one verifier configuration. Profiles run independently and
// are never reconciled programmatically; a human adjudicates disagreements.
type Profile string

const (
	ProfileFast    Profile = "fast"    // cheaper model, first pass over everything
	ProfileCareful Profile = "careful" // stronger model, second pass
	ProfileRecheck Profile = "recheck" // ad hoc re-check of human-rejected signals
)

// Verdict values.
const (
	VerdictConfirmed = "confirmed"
	VerdictCorrected = "corrected"
	VerdictRejected  = "rejected"
	VerdictError     = "error"
)

// Result is one verifier run over one merged signal.
type Result struct {
	RunID      uuid.UUID `json:"run_id"`
	SignalKey  string    `json:"signal_key"`
	Profile    Profile   `json:"profile"`
	Model      string    `json:"model"`
	Verdict    string    `json:"verdict"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`

	// Populated only on "corrected".
	CorrectedAsset   string      `json:"corrected_asset,omitempty"`
	CorrectedType    signal.Type `json:"corrected_type,omitempty"`
	CorrectedContent string      `json:"corrected_content,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Verifier judges merged signals against their source captions.
type Verifier struct {
	llm     *anthropic.Client
	profile Profile
	logger  *slog.Logger
}

func New(llm *anthropic.Client, profile Profile, logger *slog.Logger) *Verifier {
	return &Verifier{llm: llm, profile: profile, logger: logger}
}

type llmVerdict struct {
	Verdict          string  `json:"verdict"`
	Confidence       float64 `json:"confidence"`
	Reason           string  `json:"reason"`
	CorrectedAsset   string  `json:"corrected_asset"`
	CorrectedType    string  `json:"corrected_signal_type"`
	CorrectedContent string  `json:"corrected_content"`
}

// Verify judges one signal. LLM and parse failures come back as a Result
// with verdict "error" rather than an error: a failed verification must
// never halt the batch.
func (v *Verifier) Verify(ctx context.Context, sig signal.Merged, captionText string) Result {
	res := Result{
		RunID:     uuid.New(),
		SignalKey: sig.Key(),
		Profile:   v.profile,
		Model:     v.llm.Model(),
		CreatedAt: time.Now().UTC(),
	}

	if captionText == "" {
		res.Verdict = VerdictError
		res.Reason = "no captions available for verification"
		return res
	}

	prompt := fmt.Sprintf(verifyUserPrompt,
		sig.Asset, sig.Type, sig.Confidence, sig.Content, sig.Context, captionText)

	raw, err := v.llm.Complete(ctx, verifySystemPrompt, []anthropic.Message{
		{Role: "user", Content: prompt},
	}, 2048)
	if err != nil {
		v.logger.Error("verification call failed", "signal", sig.Key(), "profile", v.profile, "error", err)
		res.Verdict = VerdictError
		res.Reason = err.Error()
		return res
	}

	var out llmVerdict
	if err := json.Unmarshal([]byte(anthropic.StripFences(raw)), &out); err != nil {
		v.logger.Error("failed to parse verdict", "signal", sig.Key(), "profile", v.profile, "error", err, "raw", raw)
		res.Verdict = VerdictError
		res.Reason = "unparseable verdict: " + err.Error()
		return res
	}

	switch out.Verdict {
	case VerdictConfirmed, VerdictRejected:
		res.Verdict = out.Verdict
	case VerdictCorrected:
		res.Verdict = VerdictCorrected
		res.CorrectedAsset = out.CorrectedAsset
		if t, ok := signal.ParseType(out.CorrectedType); ok {
			res.CorrectedType = t
		}
		res.CorrectedContent = out.CorrectedContent
	default:
		res.Verdict = VerdictError
		res.Reason = fmt.Sprintf("unknown verdict %q", out.Verdict)
		return res
	}

	res.Confidence = clamp01(out.Confidence)
	res.Reason = out.Reason

	v.logger.Info("signal verified",
		"signal", sig.Key(),
		"profile", v.profile,
		"verdict", res.Verdict,
		"confidence", res.Confidence,
	)
	return res
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
