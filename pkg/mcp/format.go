package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/marker-finder/markersum/pkg/models"
)

// formatRuns formats a run list as a text table.
func formatRuns(runs []models.RunRecord) string {
	if len(runs) == 0 {
		return "No runs recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s  %-19s  %-9s  %6s  %9s  %6s  %6s\n",
		"Run ID", "Started", "Status", "Rows", "Generated", "Cached", "Failed")
	b.WriteString(strings.Repeat("-", 105) + "\n")
	for _, r := range runs {
		fmt.Fprintf(&b, "%-36s  %-19s  %-9s  %6d  %9d  %6d  %6d\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Status,
			r.Stats.Rows, r.Stats.Generated, r.Stats.CacheHits, r.Stats.Failures)
	}
	return b.String()
}

// formatRun formats one run in detail.
func formatRun(r models.RunRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s)\n", r.ID, r.Status)
	fmt.Fprintf(&b, "  Model:        %s\n", r.Model)
	fmt.Fprintf(&b, "  Input:        %s\n", r.InputPath)
	fmt.Fprintf(&b, "  Output:       %s\n", r.OutputPath)
	fmt.Fprintf(&b, "  Rows:         %d\n", r.Stats.Rows)
	fmt.Fprintf(&b, "  Generated:    %d\n", r.Stats.Generated)
	fmt.Fprintf(&b, "  Cached:       %d\n", r.Stats.CacheHits)
	fmt.Fprintf(&b, "  Placeholders: %d\n", r.Stats.Placeholders)
	fmt.Fprintf(&b, "  Failed:       %d\n", r.Stats.Failures)
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "  Duration:     %s\n", r.Duration().Round(time.Second))
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "  Error:        %s\n", r.Error)
	}
	return b.String()
}

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	return fmt.Sprintf("Cache Statistics\n"+
		"  Entries:  %d\n"+
		"  Bytes:    %d\n",
		stats.Entries, stats.Bytes)
}
