// Package batch fills the summary column of a CSV table, one row at a time.
package batch

import (
	"context"
	"fmt"
	"strings"

	"github.com/marker-finder/markersum/pkg/errors"
	"github.com/marker-finder/markersum/pkg/logger"
	"github.com/marker-finder/markersum/pkg/models"
	"github.com/marker-finder/markersum/pkg/summarizer"
	"github.com/marker-finder/markersum/pkg/table"
)

// DefaultSummaryColumn is used when Options.SummaryColumn is empty.
const DefaultSummaryColumn = "Summary"

// Summarizer produces the summary for one row. *summarizer.Client
// implements it.
type Summarizer interface {
	Summarize(ctx context.Context, text string, identifier *string, force bool) summarizer.Result
}

// Options describes one batch run.
type Options struct {
	InputPath     string
	OutputPath    string
	TextColumn    string
	IDColumn      string
	SummaryColumn string
	// Limit keeps only the first Limit rows when positive.
	Limit int
	Force bool
}

// Processor runs batches through a Summarizer.
type Processor struct {
	sum      Summarizer
	progress Progress
}

// Option configures a Processor.
type Option func(*Processor)

// WithProgress reports per-row progress to p.
func WithProgress(p Progress) Option {
	return func(pr *Processor) { pr.progress = p }
}

// New creates a Processor.
func New(sum Summarizer, opts ...Option) *Processor {
	p := &Processor{sum: sum, progress: nopProgress{}}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process loads opts.InputPath, summarizes every row in order and writes
// the whole table to opts.OutputPath. Per-row failures end up in the
// summary cell; only a missing text column, an unreadable input, an
// unwritable output or ctx cancellation fail the run, and then no output
// is written.
func (p *Processor) Process(ctx context.Context, opts Options) (models.RunStats, error) {
	var stats models.RunStats
	if opts.SummaryColumn == "" {
		opts.SummaryColumn = DefaultSummaryColumn
	}

	tbl, err := table.Load(opts.InputPath)
	if err != nil {
		err = errors.Wrap(err, "load input")
		logger.Logger.Errorw("Error processing batch", "input", opts.InputPath, "error", fmt.Sprintf("%+v", err))
		return stats, err
	}
	logger.Logger.Infow("Loaded input table", "input", opts.InputPath, "rows", tbl.Len())

	if opts.Limit > 0 {
		tbl.Truncate(opts.Limit)
		logger.Logger.Infow("Limited rows", "limit", opts.Limit, "rows", tbl.Len())
	}

	textCol := tbl.ColumnIndex(opts.TextColumn)
	if textCol < 0 {
		err := errors.WithHintf(
			errors.Wrapf(errors.ErrConfiguration, "text column %q not found in %s", opts.TextColumn, opts.InputPath),
			"available columns: %s", strings.Join(tbl.Columns(), ", "),
		)
		logger.Logger.Errorw("Error processing batch", "error", err)
		return stats, err
	}

	idCol := tbl.ColumnIndex(opts.IDColumn)
	if idCol < 0 {
		logger.Logger.Warnw("ID column not found, caching disabled for this run", "id_column", opts.IDColumn)
	}

	sumCol := tbl.EnsureColumn(opts.SummaryColumn)

	p.progress.Start(tbl.Len())
	defer p.progress.Stop()

	for row := range tbl.Len() {
		if err := ctx.Err(); err != nil {
			logger.Logger.Warnw("Batch interrupted", "processed", stats.Rows, "total", tbl.Len())
			return stats, errors.Wrap(err, "batch interrupted")
		}

		text, _ := tbl.Get(row, textCol)
		var identifier *string
		if idCol >= 0 {
			if v, _ := tbl.Get(row, idCol); strings.TrimSpace(v) != "" {
				identifier = &v
			}
		}

		res := p.sum.Summarize(ctx, text, identifier, opts.Force)
		if err := tbl.Set(row, sumCol, res.Summary); err != nil {
			return stats, errors.Wrap(err, "store summary")
		}
		stats.Add(res.Source)

		label := fmt.Sprintf("Row %d", row+1)
		if identifier != nil {
			label = "Marker " + *identifier
		}
		p.progress.Row(label)
		logger.Logger.Debugw("Processed row", "row", row, "marker_id", derefOr(identifier, ""), "source", res.Source)
	}

	// The last row may have been cut short by cancellation.
	if err := ctx.Err(); err != nil {
		return stats, errors.Wrap(err, "batch interrupted")
	}

	if err := tbl.Save(opts.OutputPath); err != nil {
		err = errors.Mark(errors.Wrapf(err, "write %s", opts.OutputPath), errors.ErrPersistence)
		logger.Logger.Errorw("Error saving output", "output", opts.OutputPath, "error", fmt.Sprintf("%+v", err))
		return stats, err
	}

	logger.Logger.Infow("Batch complete",
		"output", opts.OutputPath,
		"rows", stats.Rows,
		"cache_hits", stats.CacheHits,
		"generated", stats.Generated,
		"placeholders", stats.Placeholders,
		"failures", stats.Failures,
	)
	return stats, nil
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
