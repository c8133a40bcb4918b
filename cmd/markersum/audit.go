package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marker-finder/markersum/pkg/audit"
	"github.com/marker-finder/markersum/pkg/models"
)

func newAuditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query and manage the generation audit log",
	}

	cmd.AddCommand(
		newAuditSearchCmd(a),
		newAuditShowCmd(a),
		newAuditStatsCmd(a),
		newAuditCleanupCmd(a),
	)
	return cmd
}

func newAuditSearchCmd(a *app) *cobra.Command {
	var (
		model    string
		since    string
		markerID string
		runID    string
		failed   bool
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search audit log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(a)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.AuditQueryOpts{
				Model:      model,
				Identifier: markerID,
				RunID:      runID,
				FailedOnly: failed,
				Limit:      limit,
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			entries, err := l.Query(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatAuditEntries(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "filter by model")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&markerID, "marker-id", "", "filter by marker ID")
	cmd.Flags().StringVar(&runID, "run-id", "", "filter by batch run ID")
	cmd.Flags().BoolVar(&failed, "failed", false, "only failed generations")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")

	return cmd
}

func newAuditShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <request-id>",
		Short: "Show a single audit entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(a)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := l.Query(cmd.Context(), models.AuditQueryOpts{
				RequestID: args[0],
				Limit:     1,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No entry found for that request ID.")
				return nil
			}

			e := entries[0]
			fmt.Fprintf(out, "Request ID:    %s\n", e.RequestID)
			fmt.Fprintf(out, "Run ID:        %s\n", e.RunID)
			fmt.Fprintf(out, "Marker ID:     %s\n", e.Identifier)
			fmt.Fprintf(out, "Model:         %s\n", e.Model)
			fmt.Fprintf(out, "Backend:       %s\n", e.Backend)
			fmt.Fprintf(out, "Status:        %d\n", e.StatusCode)
			fmt.Fprintf(out, "Attempts:      %d\n", e.Attempts)
			fmt.Fprintf(out, "Latency:       %dms\n", e.LatencyMs)
			fmt.Fprintf(out, "Time:          %s\n", e.CreatedAt.Format(time.RFC3339))
			if e.Error != "" {
				fmt.Fprintf(out, "Error:         %s\n", e.Error)
			}
			if e.Prompt != "" {
				fmt.Fprintf(out, "\n--- Prompt ---\n%s\n", e.Prompt)
			}
			if e.Response != "" {
				fmt.Fprintf(out, "\n--- Response ---\n%s\n", e.Response)
			}
			return nil
		},
	}
}

func newAuditStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show audit log statistics by model and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(a)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := l.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatAuditStats(stats))
			return nil
		},
	}
}

func newAuditCleanupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete audit entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(a)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := l.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d audit entries.\n", deleted)
			return nil
		},
	}
}

func openAuditLogger(a *app) (*audit.Logger, func(), error) {
	l, err := audit.New(a.cfg.Audit)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit db: %w", err)
	}
	return l, func() { _ = l.Close() }, nil
}

func formatAuditEntries(entries []models.AuditEntry) string {
	if len(entries) == 0 {
		return "No audit entries found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-38s %-12s %-20s %6s %8s %9s %-20s\n",
		"REQUEST ID", "MARKER", "MODEL", "STATUS", "ATTEMPTS", "LATENCY", "TIME")
	b.WriteString(strings.Repeat("-", 119) + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%-38s %-12s %-20s %6d %8d %7dms %-20s\n",
			e.RequestID, e.Identifier, e.Model, e.StatusCode, e.Attempts,
			e.LatencyMs, e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

func formatAuditStats(stats []models.AuditStat) string {
	if len(stats) == 0 {
		return "No audit stats found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-25s %-12s %8s %8s\n", "MODEL", "DAY", "COUNT", "FAILED")
	b.WriteString(strings.Repeat("-", 56) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-25s %-12s %8d %8d\n", s.Model, s.Day, s.Count, s.Failures)
	}
	return b.String()
}
