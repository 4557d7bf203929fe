package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/danbi-lab/sonar/internal/config"
	"github.com/danbi-lab/sonar/internal/signal"
)

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultPipeline()
	cfg.Paths.SubtitlesDir = filepath.Join(dir, "subtitles")
	cfg.Paths.SignalsDir = filepath.Join(dir, "signals")
	cfg.Run.Workers = 2
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, nil, nil, nil, nil, nil, nil, nil, logger)
}

func TestWriteSignalFile(t *testing.T) {
	p := testPipeline(t)

	merged := []signal.Merged{
		{VideoID: "vid1", Asset: "테슬라", Type: signal.TypeBuy, Confidence: signal.ConfidenceHigh, Content: "사야 합니다", SourceCount: 1},
	}
	if err := p.writeSignalFile("vid1", merged); err != nil {
		t.Fatalf("writeSignalFile: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(p.cfg.Paths.SignalsDir, "vid1.json"))
	if err != nil {
		t.Fatal(err)
	}
	var back []signal.Merged
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("written file not valid JSON: %v", err)
	}
	if len(back) != 1 || back[0].Asset != "테슬라" || back[0].Type != signal.TypeBuy {
		t.Errorf("round trip = %+v", back)
	}
}

func TestLoadCaptions(t *testing.T) {
	p := testPipeline(t)

	if err := os.MkdirAll(p.cfg.Paths.SubtitlesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "[0:10] 테슬라 이야기\n[0:20] 애플 이야기\n"
	if err := os.WriteFile(filepath.Join(p.cfg.Paths.SubtitlesDir, "vidA.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out := p.loadCaptions(context.Background(), []string{"vidA", "vidMissing"})
	if len(out["vidA"]) != 2 {
		t.Errorf("vidA lines = %d, want 2", len(out["vidA"]))
	}
	// A missing subtitle file must not appear and must not fail the batch.
	if _, ok := out["vidMissing"]; ok {
		t.Error("missing video should have no captions entry")
	}
}

func TestCaptionTextFor(t *testing.T) {
	p := testPipeline(t)

	if got := p.captionTextFor("absent"); got != "" {
		t.Errorf("captionTextFor(absent) = %q, want empty", got)
	}

	if err := os.MkdirAll(p.cfg.Paths.SubtitlesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(p.cfg.Paths.SubtitlesDir, "v.txt"), []byte("[0:05] 안녕하세요\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := p.captionTextFor("v"); got != "[0:05] 안녕하세요\n" {
		t.Errorf("captionTextFor = %q", got)
	}
}
