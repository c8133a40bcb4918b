package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/marker-finder/markersum/pkg/audit"
	"github.com/marker-finder/markersum/pkg/batch"
	"github.com/marker-finder/markersum/pkg/cache"
	"github.com/marker-finder/markersum/pkg/config"
	"github.com/marker-finder/markersum/pkg/errors"
	"github.com/marker-finder/markersum/pkg/generation"
	"github.com/marker-finder/markersum/pkg/logger"
	"github.com/marker-finder/markersum/pkg/models"
	"github.com/marker-finder/markersum/pkg/probe"
	"github.com/marker-finder/markersum/pkg/summarizer"
	"github.com/marker-finder/markersum/pkg/tracker"
)

type batchFlags struct {
	input      string
	output     string
	column     string
	idColumn   string
	limit      int
	force      bool
	test       bool
	noProgress bool
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "test.csv", "input CSV file containing marker data")
	cmd.Flags().StringVarP(&f.output, "output", "o", "output.csv", "output CSV file to save results")
	cmd.Flags().StringVarP(&f.column, "column", "c", "", "column containing the text to summarize (default from config: Inscription)")
	cmd.Flags().StringVar(&f.idColumn, "id-column", "", "column containing unique marker IDs (default from config: MarkerID)")
	cmd.Flags().IntVarP(&f.limit, "limit", "l", 0, "process only the first N rows")
	cmd.Flags().BoolVarP(&f.force, "force", "f", false, "regenerate summaries even if cached")
	cmd.Flags().BoolVarP(&f.test, "test", "t", false, "run in test mode with a sample inscription")
	cmd.Flags().BoolVar(&f.noProgress, "no-progress", false, "disable the progress bar")
}

func (f batchFlags) options(cfg *config.Config) batch.Options {
	opts := batch.Options{
		InputPath:     f.input,
		OutputPath:    f.output,
		TextColumn:    cfg.Batch.TextColumn,
		IDColumn:      cfg.Batch.IDColumn,
		SummaryColumn: cfg.Batch.SummaryColumn,
		Limit:         f.limit,
		Force:         f.force,
	}
	if f.column != "" {
		opts.TextColumn = f.column
	}
	if f.idColumn != "" {
		opts.IDColumn = f.idColumn
	}
	return opts
}

// checkService runs the connectivity probe and turns a failure into an error.
func checkService(ctx context.Context, cfg *config.Config, gen generation.Generator) error {
	if probe.New(gen, cfg.Generation.Model, cfg.Generation.ProbeTimeout).Check(ctx) {
		return nil
	}
	return errors.WithHintf(
		errors.Wrapf(errors.ErrServiceUnavailable, "cannot reach %s", cfg.Generation.URL),
		"make sure the service is running and the model is available, e.g. `ollama serve` and `ollama pull %s`",
		cfg.Generation.Model,
	)
}

func runBatch(ctx context.Context, a *app, f batchFlags, progressOut io.Writer) error {
	cfg := a.cfg
	opts := f.options(cfg)

	gen, err := generation.New(cfg.Generation)
	if err != nil {
		return err
	}
	if err := checkService(ctx, cfg, gen); err != nil {
		return err
	}

	store, closeStore, err := cache.Open(cfg.Cache)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer func() { _ = closeStore() }()

	var clientOpts []summarizer.Option

	var tr tracker.Tracker
	var runID string
	if cfg.Tracker.Enabled {
		t, err := tracker.New(cfg.Tracker.DBPath)
		if err != nil {
			return fmt.Errorf("init tracker: %w", err)
		}
		defer func() { _ = t.Close() }()
		tr = t

		runID, err = tr.Begin(ctx, models.RunRecord{
			InputPath:  opts.InputPath,
			OutputPath: opts.OutputPath,
			Model:      cfg.Generation.Model,
			Force:      opts.Force,
			Limit:      opts.Limit,
		})
		if err != nil {
			logger.Logger.Warnw("Could not record run", "error", err)
			tr = nil
		} else {
			clientOpts = append(clientOpts, summarizer.WithRunID(runID))
		}
	}

	if cfg.Audit.Enabled {
		l, err := audit.New(cfg.Audit)
		if err != nil {
			return fmt.Errorf("init audit: %w", err)
		}
		defer func() { _ = l.Close() }()
		clientOpts = append(clientOpts, summarizer.WithAuditor(l))
	}

	client := summarizer.New(gen, store, summarizer.ConfigFrom(cfg), clientOpts...)

	var procOpts []batch.Option
	if !f.noProgress && !a.debug {
		procOpts = append(procOpts, batch.WithProgress(batch.NewBarProgress(progressOut)))
	}

	logger.Logger.Infow("Starting batch",
		"run_id", runID,
		"input", opts.InputPath,
		"output", opts.OutputPath,
		"model", cfg.Generation.Model,
		"force", opts.Force,
		"limit", opts.Limit,
	)

	start := time.Now()
	stats, runErr := batch.New(client, procOpts...).Process(ctx, opts)

	if tr != nil {
		rec := models.RunRecord{ID: runID, Stats: stats, Status: models.RunSucceeded}
		if runErr != nil {
			rec.Status = models.RunFailed
			rec.Error = runErr.Error()
		}
		if err := tr.Finish(context.WithoutCancel(ctx), rec); err != nil {
			logger.Logger.Warnw("Could not record run result", "run_id", runID, "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	pterm.Success.Printfln("Summarized %d rows into %s in %s", stats.Rows, opts.OutputPath, time.Since(start).Round(time.Millisecond))
	pterm.Info.Printfln("generated: %d  cached: %d  placeholders: %d  failed: %d",
		stats.Generated, stats.CacheHits, stats.Placeholders, stats.Failures)
	return nil
}
