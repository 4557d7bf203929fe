package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Config carries secrets and endpoints from the environment. Pipeline tuning
// lives in the TOML file (see Pipeline) so a reviewer can edit thresholds
// without touching the environment.
type Config struct {
	Port            int
	DatabaseURL     string
	NatsURL         string
	NatsToken       string
	LogLevel        string
	AnthropicAPIKey string
	FastModel       string
	CarefulModel    string
	PipelinePath    string
}

func Load() Config {
	return Config{
		Port:            envInt("SONAR_PORT", 8760),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		FastModel:       envStr("SONAR_MODEL", "claude-3-5-haiku-20241022"),
		CarefulModel:    envStr("SONAR_CAREFUL_MODEL", "claude-sonnet-4-20250514"),
		PipelinePath:    envStr("SONAR_CONFIG", "sonar.toml"),
	}
}

// Pipeline is the TOML-backed tuning file.
type Pipeline struct {
	Paths   Paths             `toml:"paths"`
	Run     Run               `toml:"run"`
	Matcher Matcher           `toml:"matcher"`
	Aliases map[string]string `toml:"asset_aliases"`
}

// Paths locates the on-disk inputs and outputs.
type Paths struct {
	SubtitlesDir string `toml:"subtitles_dir"`
	SignalsDir   string `toml:"signals_dir"`
	ReviewsPath  string `toml:"reviews_path"`
	JobsDBPath   string `toml:"jobs_db_path"`
	ExportPath   string `toml:"export_path"`
}

// Run controls pipeline pacing.
type Run struct {
	Workers          int     `toml:"workers"`            // parallel subtitle parsing only
	RateLimitSeconds float64 `toml:"rate_limit_seconds"` // fixed sleep between LLM calls
}

// Matcher tunes the timestamp matcher.
type Matcher struct {
	MinScore float64 `toml:"min_score"`
}

// DefaultPipeline returns the tuning used when no TOML file exists.
func DefaultPipeline() Pipeline {
	return Pipeline{
		Paths: Paths{
			SubtitlesDir: "data/subtitles",
			SignalsDir:   "data/signals",
			ReviewsPath:  "data/reviews.json",
			JobsDBPath:   "data/jobs.db",
			ExportPath:   "data/review.html",
		},
		Run: Run{
			Workers:          4,
			RateLimitSeconds: 1.0,
		},
		Matcher: Matcher{
			MinScore: 0.2,
		},
	}
}

// LoadPipeline reads the TOML tuning file, falling back to defaults when the
// file does not exist. Unset fields fall back individually.
func LoadPipeline(path string) (Pipeline, error) {
	p := DefaultPipeline()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return p, fmt.Errorf("read pipeline config: %w", err)
	}

	var loaded Pipeline
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return p, fmt.Errorf("parse pipeline config: %w", err)
	}
	merge(&p, loaded)
	return p, nil
}

// merge overlays non-zero loaded fields onto the defaults.
func merge(p *Pipeline, loaded Pipeline) {
	if loaded.Paths.SubtitlesDir != "" {
		p.Paths.SubtitlesDir = loaded.Paths.SubtitlesDir
	}
	if loaded.Paths.SignalsDir != "" {
		p.Paths.SignalsDir = loaded.Paths.SignalsDir
	}
	if loaded.Paths.ReviewsPath != "" {
		p.Paths.ReviewsPath = loaded.Paths.ReviewsPath
	}
	if loaded.Paths.JobsDBPath != "" {
		p.Paths.JobsDBPath = loaded.Paths.JobsDBPath
	}
	if loaded.Paths.ExportPath != "" {
		p.Paths.ExportPath = loaded.Paths.ExportPath
	}
	if loaded.Run.Workers > 0 {
		p.Run.Workers = loaded.Run.Workers
	}
	if loaded.Run.RateLimitSeconds > 0 {
		p.Run.RateLimitSeconds = loaded.Run.RateLimitSeconds
	}
	if loaded.Matcher.MinScore > 0 {
		p.Matcher.MinScore = loaded.Matcher.MinScore
	}
	if len(loaded.Aliases) > 0 {
		p.Aliases = loaded.Aliases
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
