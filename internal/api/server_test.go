package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danbi-lab/sonar/internal/review"
	"github.com/danbi-lab/sonar/internal/signal"
)

func testServer(t *testing.T, reverify ReverifyFunc) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	signalsDir := filepath.Join(dir, "signals")
	reviews := review.Open(filepath.Join(dir, "reviews.json"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(0, nil, signalsDir, reviews, reverify, nil, logger), signalsDir
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t, nil)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestListSignalsFromFiles(t *testing.T) {
	s, signalsDir := testServer(t, nil)

	merged := []signal.Merged{
		{VideoID: "vid1", Asset: "테슬라", Type: signal.TypeBuy, Confidence: signal.ConfidenceHigh, Content: "사야 합니다"},
	}
	data, err := json.Marshal(merged)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(signalsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(signalsDir, "vid1.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	// Non-JSON files are ignored.
	if err := os.WriteFile(filepath.Join(signalsDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/signals", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Signals []signal.Merged `json:"signals"`
		Count   int             `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 || len(body.Signals) != 1 || body.Signals[0].Asset != "테슬라" {
		t.Errorf("body = %+v", body)
	}
}

func TestListSignalsMissingDir(t *testing.T) {
	s, _ := testServer(t, nil)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/signals", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for missing signals dir", rec.Code)
	}
}

func TestPostAndListReview(t *testing.T) {
	s, _ := testServer(t, nil)

	payload := `{"id": "vid1_테슬라", "status": "approved", "reason": "인용 확인됨"}`
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/review", bytes.NewBufferString(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reviews", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}

	var body struct {
		Reviews map[string]review.Decision `json:"reviews"`
		Count   int                        `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	d, ok := body.Reviews["vid1_테슬라"]
	if !ok || d.Status != review.StatusApproved || d.Reason != "인용 확인됨" {
		t.Errorf("reviews = %+v", body.Reviews)
	}
}

func TestPostReviewValidation(t *testing.T) {
	s, _ := testServer(t, nil)

	tests := []struct {
		name    string
		payload string
	}{
		{"missing id", `{"status": "approved"}`},
		{"bad status", `{"id": "k", "status": "maybe"}`},
		{"not json", `not json at all`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/review", bytes.NewBufferString(tt.payload)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestReverifyNotConfigured(t *testing.T) {
	s, _ := testServer(t, nil)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reverify-rejected", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestReverifyStartsInBackground(t *testing.T) {
	called := make(chan struct{})
	s, _ := testServer(t, func(ctx context.Context) (int, error) {
		close(called)
		return 2, nil
	})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reverify-rejected", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Error("reverify callback never ran")
	}
}
