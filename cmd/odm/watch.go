package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/odm/pkg/adapters/fs"
)

var watchPattern string

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Print changes to a directory collection",
	Long: `Watch a directory of BSON documents (one <id>.bson file per document)
and print one line per created, modified or deleted document. The pattern
filters document ids with glob syntax, e.g. 'user-*'.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		coll, err := fs.NewCollection(fs.Config{Path: args[0], Logger: slog.Default()})
		if err != nil {
			fatal("Error opening collection", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events, err := coll.Watch(ctx, watchPattern)
		if err != nil {
			fatal("Error watching", err)
		}

		slog.Info("watching", "path", coll.Path, "pattern", watchPattern)
		for ev := range events {
			fmt.Println(ev)
		}
		if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
			fatal("Error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchPattern, "pattern", "*", "Glob pattern matching document ids")
}
