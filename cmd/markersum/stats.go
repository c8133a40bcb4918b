package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/marker-finder/markersum/pkg/models"
	"github.com/marker-finder/markersum/pkg/tracker"
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		limit   int
		runID   string
		byModel bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show recorded batch runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := tracker.New(a.cfg.Tracker.DBPath)
			if err != nil {
				return err
			}
			defer tr.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			// Single run detail
			if runID != "" {
				rec, err := tr.Get(ctx, runID)
				if err != nil {
					return err
				}
				printRun(out, rec)
				return nil
			}

			// Per-model totals
			if byModel {
				summaries, err := tr.Summary(ctx)
				if err != nil {
					return err
				}
				if len(summaries) == 0 {
					fmt.Fprintln(out, "No runs recorded.")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "MODEL\tRUNS\tROWS\tGENERATED\tCACHED\tPLACEHOLDERS\tFAILED")
				for _, s := range summaries {
					fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
						s.Model, s.Runs, s.Stats.Rows, s.Stats.Generated, s.Stats.CacheHits, s.Stats.Placeholders, s.Stats.Failures)
				}
				return w.Flush()
			}

			runs, err := tr.List(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			return writeRuns(out, runs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list (0 = all)")
	cmd.Flags().StringVar(&runID, "run-id", "", "show detail for a specific run")
	cmd.Flags().BoolVar(&byModel, "by-model", false, "show totals per model")
	return cmd
}

func writeRuns(out io.Writer, runs []models.RunRecord) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTARTED\tSTATUS\tINPUT\tROWS\tGENERATED\tCACHED\tFAILED\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02T15:04:05"), r.Status, r.InputPath,
			r.Stats.Rows, r.Stats.Generated, r.Stats.CacheHits, r.Stats.Failures, runDuration(r))
	}
	return w.Flush()
}

func printRun(out io.Writer, r models.RunRecord) {
	fmt.Fprintf(out, "Run ID:        %s\n", r.ID)
	fmt.Fprintf(out, "Status:        %s\n", r.Status)
	fmt.Fprintf(out, "Model:         %s\n", r.Model)
	fmt.Fprintf(out, "Input:         %s\n", r.InputPath)
	fmt.Fprintf(out, "Output:        %s\n", r.OutputPath)
	fmt.Fprintf(out, "Force:         %t\n", r.Force)
	if r.Limit > 0 {
		fmt.Fprintf(out, "Limit:         %d\n", r.Limit)
	}
	fmt.Fprintf(out, "Rows:          %d (%d generated, %d cached, %d placeholders, %d failed)\n",
		r.Stats.Rows, r.Stats.Generated, r.Stats.CacheHits, r.Stats.Placeholders, r.Stats.Failures)
	fmt.Fprintf(out, "Started:       %s\n", r.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "Duration:      %s\n", runDuration(r))
	if r.Error != "" {
		fmt.Fprintf(out, "Error:         %s\n", r.Error)
	}
}

func runDuration(r models.RunRecord) string {
	if r.FinishedAt.IsZero() {
		return "-"
	}
	return r.Duration().Round(time.Second).String()
}
