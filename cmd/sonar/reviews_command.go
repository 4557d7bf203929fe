package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danbi-lab/sonar/internal/review"
)

func newReviewsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "Inspect and merge review stores",
	}
	cmd.AddCommand(newReviewsMergeCommand(), newReviewsListCommand())
	return cmd
}

// reviews merge <incoming.json>: fold a backup or parallel store into the
// live one. Incoming entries win on shared keys, so merge the NEWER store in.
func newReviewsMergeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <incoming.json>",
		Short: "Merge another review store into the live one (incoming wins)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read incoming store: %w", err)
			}

			incoming, err := review.Open(args[0]).Load()
			if err != nil {
				// Load already tried legacy recovery; report what it saw.
				return fmt.Errorf("parse incoming store (%d bytes): %w", len(data), err)
			}

			live := review.Open(app.pipeline.Paths.ReviewsPath)
			if err := live.MergeFrom(incoming); err != nil {
				return err
			}

			merged, err := live.Load()
			if err != nil {
				return err
			}
			fmt.Printf("merged %d incoming decisions; store now holds %d\n", len(incoming), len(merged))
			return nil
		},
	}
}

func newReviewsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print review decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}

			decisions, err := review.Open(app.pipeline.Paths.ReviewsPath).Load()
			if err != nil {
				return err
			}

			for _, key := range review.Keys(decisions) {
				d := decisions[key]
				fmt.Printf("%-50s %-9s %s\n", key, d.Status, d.Reason)
			}
			fmt.Printf("%d decisions\n", len(decisions))
			return nil
		},
	}
}
