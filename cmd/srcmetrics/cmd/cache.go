package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Process every document in the parsed-document cache",
		Long: `Cache runs the metrics pipeline over all previously parsed documents
without touching the original source files.

This is the fastest way to backfill metrics after adding a plugin or
bumping a plugin version: parsing is skipped entirely. The study phase
always runs first; it is required for cache-based batch processing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := setupPipeline(".")
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.Engine.StudyPlugins(ctx); err != nil {
				return err
			}

			result, err := p.Engine.ProcessCache(ctx)
			finishProgress()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Processed %d of %d cached documents (%d skipped, %d commits)\n",
				result.Processed, result.Queued, result.Skipped, result.Commits)
			return nil
		},
	}
	return cmd
}
