package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danbi-lab/sonar/internal/export"
	"github.com/danbi-lab/sonar/internal/review"
	sig "github.com/danbi-lab/sonar/internal/signal"
	"github.com/danbi-lab/sonar/internal/store"
)

func newExportCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the static HTML review page",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			var signals []store.StoredSignal
			db, err := app.openStore(ctx)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
				signals, err = db.ListSignals(ctx)
				if err != nil {
					return err
				}
			} else {
				signals, err = signalsFromDir(app.pipeline.Paths.SignalsDir)
				if err != nil {
					return err
				}
			}

			decisions, err := review.Open(app.pipeline.Paths.ReviewsPath).Load()
			if err != nil {
				return err
			}

			exp, err := export.New()
			if err != nil {
				return err
			}

			path := out
			if path == "" {
				path = app.pipeline.Paths.ExportPath
			}
			if err := exp.Write(path, signals, decisions); err != nil {
				return err
			}

			fmt.Printf("exported %d signals to %s\n", len(signals), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default from config)")
	return cmd
}

// signalsFromDir builds review rows straight from the per-video JSON files
// for database-less runs. Legacy field layouts are tolerated.
func signalsFromDir(dir string) ([]store.StoredSignal, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read signals dir: %w", err)
	}

	var out []store.StoredSignal
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}

		var merged []sig.Merged
		if err := json.Unmarshal(data, &merged); err == nil && len(merged) > 0 && merged[0].Type.Valid() {
			for _, m := range merged {
				out = append(out, store.StoredSignal{Key: m.Key(), Signal: m, ReviewStatus: review.StatusPending})
			}
			continue
		}

		// Fall back to the legacy raw layouts.
		videoID := strings.TrimSuffix(e.Name(), ".json")
		raws, _, err := sig.DecodeRaws(data, videoID)
		if err != nil {
			continue
		}
		for _, r := range raws {
			m := sig.Merged{
				VideoID:     r.VideoID,
				Asset:       r.Asset,
				Type:        r.Type,
				Confidence:  r.Confidence,
				Content:     r.Content,
				Context:     r.Context,
				SourceCount: 1,
			}
			out = append(out, store.StoredSignal{Key: m.Key(), Signal: m, ReviewStatus: review.StatusPending})
		}
	}
	return out, nil
}
