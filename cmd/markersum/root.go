package main

import (
	"github.com/spf13/cobra"

	"github.com/marker-finder/markersum/pkg/config"
	"github.com/marker-finder/markersum/pkg/logger"
)

// app carries the global flags and the configuration loaded from them.
type app struct {
	configPath string
	debug      bool
	jsonLogs   bool

	cfg *config.Config
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return logger.Initialize(logger.Options{
		Debug: a.debug,
		JSON:  a.jsonLogs || cfg.Log.JSON,
		File:  cfg.Log.File,
	})
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var bf batchFlags

	root := &cobra.Command{
		Use:   "markersum",
		Short: "Generate short AI summaries for historical marker inscriptions",
		Long: `markersum reads a CSV of historical markers, asks a local text-generation
service (Ollama by default) for a 2-3 sentence summary of each inscription,
and writes the table back out with a Summary column. Summaries are cached
per marker ID, so reruns only generate what is missing.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if bf.test {
				return runTestMode(cmd.Context(), a, cmd.OutOrStdout())
			}
			return runBatch(cmd.Context(), a, bf, cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "path to config file")
	root.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&a.jsonLogs, "json", false, "log to the console as JSON")
	bf.register(root)

	root.AddCommand(
		newTestCmd(a),
		newSummarizeURLCmd(a),
		newCacheCmd(a),
		newStatsCmd(a),
		newAuditCmd(a),
		newMCPCmd(a),
	)
	return root
}
