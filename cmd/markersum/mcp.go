package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/marker-finder/markersum/pkg/audit"
	"github.com/marker-finder/markersum/pkg/cache"
	"github.com/marker-finder/markersum/pkg/generation"
	"github.com/marker-finder/markersum/pkg/logger"
	"github.com/marker-finder/markersum/pkg/mcp"
	"github.com/marker-finder/markersum/pkg/summarizer"
	"github.com/marker-finder/markersum/pkg/tracker"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve summarization, the cache and the run ledger over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// runMCP does not probe the service up front; a summarize call against a
// stopped service returns the usual error summary.
func runMCP(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	cfg := a.cfg

	gen, err := generation.New(cfg.Generation)
	if err != nil {
		return err
	}

	store, closeStore, err := cache.Open(cfg.Cache)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer func() { _ = closeStore() }()

	var clientOpts []summarizer.Option
	if cfg.Audit.Enabled {
		l, err := audit.New(cfg.Audit)
		if err != nil {
			return fmt.Errorf("init audit: %w", err)
		}
		defer func() { _ = l.Close() }()
		clientOpts = append(clientOpts, summarizer.WithAuditor(l))
	}

	var tr tracker.Tracker
	if cfg.Tracker.Enabled {
		t, err := tracker.New(cfg.Tracker.DBPath)
		if err != nil {
			return fmt.Errorf("init tracker: %w", err)
		}
		defer func() { _ = t.Close() }()
		tr = t
	}

	client := summarizer.New(gen, store, summarizer.ConfigFrom(cfg), clientOpts...)

	logger.Logger.Infow("MCP server listening on stdio", "model", cfg.Generation.Model)
	return mcp.New(client, store, tr, version).Run(ctx, in, out)
}
