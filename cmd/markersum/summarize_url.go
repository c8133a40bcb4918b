package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/marker-finder/markersum/pkg/generation"
	"github.com/marker-finder/markersum/pkg/scrape"
	"github.com/marker-finder/markersum/pkg/summarizer"
)

func newSummarizeURLCmd(a *app) *cobra.Command {
	var (
		selector string
		showText bool
	)

	cmd := &cobra.Command{
		Use:   "summarize-url <url>",
		Short: "Summarize the paragraph text of a web page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			text, err := scrape.New(&http.Client{Timeout: cfg.Generation.Timeout}, selector).FetchText(ctx, args[0])
			if err != nil {
				return fmt.Errorf("fetch %s: %w", args[0], err)
			}
			if showText {
				fmt.Fprintf(out, "Page text:\n%s\n\n", text)
			}

			gen, err := generation.New(cfg.Generation)
			if err != nil {
				return err
			}
			res := summarizer.New(gen, nil, summarizer.ConfigFrom(cfg)).Summarize(ctx, text, nil, false)
			fmt.Fprintln(out, res.Summary)
			return res.Err
		},
	}

	cmd.Flags().StringVar(&selector, "selector", scrape.DefaultSelector, "CSS selector of the elements to read")
	cmd.Flags().BoolVar(&showText, "show-text", false, "print the extracted page text")
	return cmd
}
