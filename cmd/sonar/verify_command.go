package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danbi-lab/sonar/internal/jobs"
	"github.com/danbi-lab/sonar/internal/pipeline"
	"github.com/danbi-lab/sonar/internal/verify"
)

func newVerifyCommand() *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run a verification pass over all stored signals",
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
			if db == nil {
				return fmt.Errorf("DATABASE_URL is required for verification")
			}
			defer db.Close()

			var verifier *verify.Verifier
			switch verify.Profile(profile) {
			case verify.ProfileFast:
				llm := app.fastLLM()
				if llm == nil {
					return fmt.Errorf("ANTHROPIC_API_KEY is required")
				}
				verifier = verify.New(llm, verify.ProfileFast, app.logger)
			case verify.ProfileCareful:
				llm := app.carefulLLM()
				if llm == nil {
					return fmt.Errorf("ANTHROPIC_API_KEY is required")
				}
				verifier = verify.New(llm, verify.ProfileCareful, app.logger)
			default:
				return fmt.Errorf("unknown profile %q (want fast or careful)", profile)
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

			p := pipeline.New(app.pipeline, nil, nil, nil, nil, db, ev, js, app.logger)
			return p.VerifyStored(ctx, verifier)
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "careful", "verifier profile: fast or careful")
	return cmd
}
