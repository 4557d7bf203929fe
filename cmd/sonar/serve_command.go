package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/danbi-lab/sonar/internal/api"
	"github.com/danbi-lab/sonar/internal/jobs"
	"github.com/danbi-lab/sonar/internal/pipeline"
	"github.com/danbi-lab/sonar/internal/review"
	"github.com/danbi-lab/sonar/internal/verify"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the localhost review API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			db, err := app.openStore(ctx)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}

			ev := app.openEvents()
			if ev != nil {
				defer ev.Close()
			}

			reviews := review.Open(app.pipeline.Paths.ReviewsPath)

			// The re-check endpoint needs the careful model and the job-free
			// parts of the pipeline.
			var reverify api.ReverifyFunc
			if llm := app.carefulLLM(); llm != nil && db != nil {
				js, err := jobs.Open(app.pipeline.Paths.JobsDBPath)
				if err != nil {
					return err
				}
				defer js.Close()

				p := pipeline.New(app.pipeline, nil, nil, nil, nil, db, ev, js, app.logger)
				verifier := verify.New(llm, verify.ProfileRecheck, app.logger)
				reverify = func(ctx context.Context) (int, error) {
					return p.ReverifyRejected(ctx, verifier)
				}
			} else {
				app.logger.Warn("re-verification endpoint disabled (needs ANTHROPIC_API_KEY and DATABASE_URL)")
			}

			srv := api.NewServer(app.cfg.Port, db, app.pipeline.Paths.SignalsDir, reviews, reverify, ev, app.logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				app.logger.Info("shutting down")
				return nil
			}
		},
	}
}
