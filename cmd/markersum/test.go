package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/marker-finder/markersum/pkg/generation"
	"github.com/marker-finder/markersum/pkg/summarizer"
)

const sampleInscription = `Graceland, home of Elvis Presley, was built in 1939 by Dr. Thomas Moore and his wife Ruth.
Elvis purchased the estate on March 19, 1957, and moved in with his parents, Vernon and Gladys Presley.
The Colonial Revival style mansion sits on 13.8 acres and was named to the National Register of Historic Places in 1991.`

func newTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check the generation service and summarize a sample inscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTestMode(cmd.Context(), a, cmd.OutOrStdout())
		},
	}
}

// runTestMode probes the service and summarizes sampleInscription without
// touching the cache.
func runTestMode(ctx context.Context, a *app, out io.Writer) error {
	cfg := a.cfg

	gen, err := generation.New(cfg.Generation)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Testing connection to %s (%s)...\n", cfg.Generation.URL, cfg.Generation.Model)
	if err := checkService(ctx, cfg, gen); err != nil {
		return err
	}
	fmt.Fprintln(out, "Connected.")

	fmt.Fprintf(out, "\nSample text:\n%s\n\n", sampleInscription)

	client := summarizer.New(gen, nil, summarizer.ConfigFrom(cfg))
	res := client.Summarize(ctx, sampleInscription, nil, false)
	fmt.Fprintf(out, "Generated summary:\n%s\n", res.Summary)

	if res.Err != nil {
		return res.Err
	}
	return nil
}
