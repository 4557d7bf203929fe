package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SONAR_PORT", "DATABASE_URL", "LOG_LEVEL", "SONAR_MODEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != 8760 {
		t.Errorf("Port = %d, want 8760", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.FastModel == "" || cfg.CarefulModel == "" {
		t.Error("model defaults missing")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SONAR_PORT", "9100")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SONAR_MODEL", "claude-test")

	cfg := Load()
	if cfg.Port != 9100 || cfg.LogLevel != "debug" || cfg.FastModel != "claude-test" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadInvalidPortFallsBack(t *testing.T) {
	t.Setenv("SONAR_PORT", "not-a-number")
	if got := Load().Port; got != 8760 {
		t.Errorf("Port = %d, want default 8760", got)
	}
}

func TestLoadPipelineMissingFile(t *testing.T) {
	p, err := LoadPipeline(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults, got %v", err)
	}
	if p.Paths.SubtitlesDir != "data/subtitles" || p.Run.Workers != 4 || p.Matcher.MinScore != 0.2 {
		t.Errorf("defaults = %+v", p)
	}
}

func TestLoadPipelineOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sonar.toml")
	content := `
[paths]
subtitles_dir = "custom/subs"

[run]
workers = 8

[matcher]
min_score = 0.35

[asset_aliases]
"전기차왕" = "테슬라"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPipeline(path)
	if err != nil {
		t.Fatalf("LoadPipeline: %v", err)
	}
	if p.Paths.SubtitlesDir != "custom/subs" {
		t.Errorf("SubtitlesDir = %q", p.Paths.SubtitlesDir)
	}
	// Fields the file leaves unset keep their defaults.
	if p.Paths.SignalsDir != "data/signals" || p.Paths.ReviewsPath != "data/reviews.json" {
		t.Errorf("unset paths lost defaults: %+v", p.Paths)
	}
	if p.Run.Workers != 8 || p.Run.RateLimitSeconds != 1.0 {
		t.Errorf("run = %+v", p.Run)
	}
	if p.Matcher.MinScore != 0.35 {
		t.Errorf("MinScore = %v", p.Matcher.MinScore)
	}
	if p.Aliases["전기차왕"] != "테슬라" {
		t.Errorf("aliases = %v", p.Aliases)
	}
}

func TestLoadPipelineBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sonar.toml")
	if err := os.WriteFile(path, []byte("this is [not toml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPipeline(path); err == nil {
		t.Error("expected error for malformed TOML")
	}
}
