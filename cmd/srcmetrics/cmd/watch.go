package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/srcmetrics/srcmetrics/internal/scanner"
	"github.com/srcmetrics/srcmetrics/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Watch a directory and reprocess files as they change",
		Long: `Watch processes the directory once, then keeps running and reprocesses
any supported source file that changes. Metrics are keyed by content
hash, so deletions need no cleanup and unchanged saves are deduplicated
at write time.`,
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

			p, err := setupPipeline(abs)
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.Engine.StudyPlugins(ctx); err != nil {
				return err
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
				"Initial pass: %d of %d files processed (%d skipped)\n",
				result.Processed, result.Queued, result.Skipped)

			w, err := watcher.New(abs, watcher.Options{})
			if err != nil {
				return err
			}
			defer w.Close()

			go func() {
				if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					slog.Error("watcher stopped", slog.String("error", err.Error()))
				}
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", abs)
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-w.Events():
					if !ok {
						return nil
					}
					if ev.Removed {
						// Metric records are content-addressed; a removed
						// path leaves them valid for identical content
						// elsewhere.
						continue
					}
					full := filepath.Join(abs, filepath.FromSlash(ev.Path))
					if err := p.Engine.ProcessFile(ctx, full); err != nil {
						slog.Warn("reprocess failed",
							slog.String("path", ev.Path), slog.String("error", err.Error()))
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Processed %s\n", ev.Path)
				}
			}
		},
	}
	return cmd
}
