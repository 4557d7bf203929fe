package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danbi-lab/sonar/internal/review"
	"github.com/danbi-lab/sonar/internal/signal"
	"github.com/danbi-lab/sonar/internal/store"
	"github.com/danbi-lab/sonar/internal/verify"
)

func TestWrite(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	signals := []store.StoredSignal{
		{
			Key: "vid1_테슬라",
			Signal: signal.Merged{
				VideoID:     "vid1",
				Asset:       "테슬라",
				Type:        signal.TypeBuy,
				Confidence:  signal.ConfidenceHigh,
				Content:     "테슬라 지금 사야 합니다",
				SourceCount: 2,
				Match:       &signal.Match{Seconds: 95, Score: 0.87},
			},
			ReviewStatus: "pending",
			Verdicts: []verify.Result{
				{Profile: verify.ProfileFast, Verdict: verify.VerdictConfirmed, Confidence: 0.9, Reason: "인용 확인"},
			},
		},
		{
			Key: "vid1_애플",
			Signal: signal.Merged{
				VideoID:    "vid1",
				Asset:      "애플",
				Type:       signal.TypeHold,
				Confidence: signal.ConfidenceMedium,
				Content:    "애플은 들고 가세요",
			},
		},
		{
			Key: "vid2_비트코인",
			Signal: signal.Merged{
				VideoID:    "vid2",
				Asset:      "비트코인",
				Type:       signal.TypeStrongSell,
				Confidence: signal.ConfidenceLow,
				Content:    "지금 다 빼세요",
			},
		},
	}
	decisions := map[string]review.Decision{
		"vid1_테슬라": {Status: review.StatusApproved, Reason: "근거 명확", Time: time.Now().UTC()},
	}

	path := filepath.Join(t.TempDir(), "out", "review.html")
	if err := e.Write(path, signals, decisions); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	html := string(data)

	for _, want := range []string{
		"테슬라 지금 사야 합니다",
		"https://www.youtube.com/watch?v=vid1&amp;t=95s",
		"status-approved",
		"근거 명확",
		"[fast] confirmed",
		"<h2>vid2</h2>",
		"STRONG_SELL",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}

	// Undecided signals show as pending.
	if !strings.Contains(html, "status-pending") {
		t.Error("undecided signal not shown as pending")
	}
}

func TestWriteEmpty(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "review.html")
	if err := e.Write(path, nil, nil); err != nil {
		t.Fatalf("Write empty: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "0 signals") {
		t.Error("empty export should still render the summary line")
	}
}

func TestTsLink(t *testing.T) {
	got := tsLink("abc", 125)
	want := "https://www.youtube.com/watch?v=abc&t=125s"
	if got != want {
		t.Errorf("tsLink = %q, want %q", got, want)
	}
}
