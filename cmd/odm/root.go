package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/odm/internal/platform"
)

var (
	verbose bool
	cfg     platform.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "odm",
	Short: "Inspect BSON documents the way the odm mapper reads them",
	Long: `odm turns BSON documents into plain values: documents become maps,
arrays become lists and dates become timestamps. Documents can come from a
BSON dump file, a MongoDB collection or a directory of BSON files.

Settings are read from odm.yaml (or .odm.yaml) in the current directory or
any parent.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)

		wd, err := os.Getwd()
		if err != nil {
			fatal("Error getting working directory", err)
		}
		loaded, path, err := platform.DiscoverConfig(wd)
		if err != nil {
			fatal("Error loading config", err)
		}
		if path != "" {
			logger.Debug("loaded config", "path", path)
		}
		cfg = loaded
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}
