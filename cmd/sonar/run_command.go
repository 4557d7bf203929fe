package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danbi-lab/sonar/internal/extractor"
	"github.com/danbi-lab/sonar/internal/jobs"
	"github.com/danbi-lab/sonar/internal/match"
	"github.com/danbi-lab/sonar/internal/merge"
	"github.com/danbi-lab/sonar/internal/pipeline"
	"github.com/danbi-lab/sonar/internal/verify"
)

func newRunCommand() *cobra.Command {
	var noVerify bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract, merge and timestamp-match signals for all pending videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			llm := app.fastLLM()
			if llm == nil {
				return fmt.Errorf("ANTHROPIC_API_KEY is required for extraction")
			}

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

			js, err := jobs.Open(app.pipeline.Paths.JobsDBPath)
			if err != nil {
				return err
			}
			defer js.Close()

			var verifier *verify.Verifier
			if !noVerify && db != nil {
				verifier = verify.New(llm, verify.ProfileFast, app.logger)
			}

			p := pipeline.New(
				app.pipeline,
				extractor.New(llm, app.logger),
				merge.New(app.normalizer()),
				match.New(app.pipeline.Matcher.MinScore),
				verifier,
				db,
				ev,
				js,
				app.logger,
			)
			return p.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip the inline fast-profile verification pass")
	return cmd
}
