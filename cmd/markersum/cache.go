package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marker-finder/markersum/pkg/cache"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the summary cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, closeStore, err := openCacheAdmin(a)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			stats, err := admin.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backend: %s\nEntries: %d\nBytes:   %d\n",
				a.cfg.Cache.Backend, stats.Entries, stats.Bytes)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, closeStore, err := openCacheAdmin(a)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			if err := admin.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All cache entries cleared.")
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <marker-id>",
		Short: "Print the cached summary for a marker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := cache.Open(a.cfg.Cache)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			summary, ok, err := store.Get(cmd.Context(), cache.Key(args[0]))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no cached summary for marker %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.AddCommand(statsCmd, clearCmd, getCmd)
	return cmd
}

func openCacheAdmin(a *app) (cache.Admin, func() error, error) {
	store, closeStore, err := cache.Open(a.cfg.Cache)
	if err != nil {
		return nil, nil, err
	}
	admin, ok := store.(cache.Admin)
	if !ok {
		_ = closeStore()
		return nil, nil, fmt.Errorf("cache backend %q does not support this command", a.cfg.Cache.Backend)
	}
	return admin, closeStore, nil
}
