package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/danbi-lab/sonar/internal/anthropic"
	"github.com/danbi-lab/sonar/internal/config"
	"github.com/danbi-lab/sonar/internal/events"
	sig "github.com/danbi-lab/sonar/internal/signal"
	"github.com/danbi-lab/sonar/internal/store"
)

// appContext bundles the config and the lazily constructed shared pieces a
// command may need.
type appContext struct {
	cfg      config.Config
	pipeline config.Pipeline
	logger   *slog.Logger
}

// loadApp reads env + TOML config and initialises logging.
func loadApp() (*appContext, error) {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	pipe, err := config.LoadPipeline(cfg.PipelinePath)
	if err != nil {
		return nil, err
	}

	return &appContext{
		cfg:      cfg,
		pipeline: pipe,
		logger:   slog.Default(),
	}, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// normalizer builds the asset normalizer with config-supplied aliases.
func (a *appContext) normalizer() *sig.Normalizer {
	return sig.NewNormalizer(a.pipeline.Aliases)
}

// fastLLM returns the cheap-model client, or nil without an API key.
func (a *appContext) fastLLM() *anthropic.Client {
	if a.cfg.AnthropicAPIKey == "" {
		return nil
	}
	return anthropic.NewClient(a.cfg.AnthropicAPIKey, a.cfg.FastModel)
}

// carefulLLM returns the stronger-model client, or nil without an API key.
func (a *appContext) carefulLLM() *anthropic.Client {
	if a.cfg.AnthropicAPIKey == "" {
		return nil
	}
	return anthropic.NewClient(a.cfg.AnthropicAPIKey, a.cfg.CarefulModel)
}

// openStore connects to Postgres when DATABASE_URL is set; the pipeline
// degrades to JSON files without it.
func (a *appContext) openStore(ctx context.Context) (*store.Store, error) {
	if a.cfg.DatabaseURL == "" {
		a.logger.Warn("DATABASE_URL not set, running without the signal database")
		return nil, nil
	}
	db, err := store.New(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	a.logger.Info("database connected")
	return db, nil
}

// openEvents connects to NATS when configured.
func (a *appContext) openEvents() *events.Client {
	if a.cfg.NatsURL == "" {
		a.logger.Warn("NATS_URL not set, running without event publishing")
		return nil
	}
	ev, err := events.NewClient(a.cfg.NatsURL, a.cfg.NatsToken, a.logger)
	if err != nil {
		a.logger.Warn("nats unavailable, running without event publishing", "error", err)
		return nil
	}
	a.logger.Info("NATS connected", "url", a.cfg.NatsURL)
	return ev
}
