package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/srcmetrics/srcmetrics/internal/scanner"
)

func newProcessCmd() *cobra.Command {
	var noStudy bool

	cmd := &cobra.Command{
		Use:   "process [path]",
		Short: "Process a directory or file and persist its metrics",
		Long: `Process parses source files and records every plugin's metrics.

Given a directory (default: current directory), files are processed as
one batch: smallest first, deduplicated by content hash against prior
runs, committed in bounded transaction chunks. Given a single file, it
is processed immediately in its own transaction.

The study phase runs first by default so unchanged content is skipped;
--no-study forces dedup to rely on the write-time guards alone.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			info, err := os.Stat(abs)
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}

			p, err := setupPipeline(abs)
			if err != nil {
				return err
			}
			defer p.Close()

			if !noStudy {
				if err := p.Engine.StudyPlugins(ctx); err != nil {
					return err
				}
			}

			if !info.IsDir() {
				if err := p.Engine.ProcessFile(ctx, abs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Processed %s\n", path)
				return nil
			}

			result, err := p.Engine.ProcessDirectory(ctx, abs, scanner.Options{
				Include: p.Config.Paths.Include,
				Exclude: p.Config.Paths.Exclude,
			})
			finishProgress()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Processed %d of %d files (%d skipped, %d commits)\n",
				result.Processed, result.Queued, result.Skipped, result.Commits)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noStudy, "no-study", false, "Skip the seen-set study phase before processing")

	return cmd
}
