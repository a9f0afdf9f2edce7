// Package cmd provides the CLI commands for srcmetrics.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/srcmetrics/srcmetrics/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the srcmetrics CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "srcmetrics",
		Short: "Collect structural metrics from source code corpora",
		Long: `srcmetrics parses source files, computes structural metrics
(size, token counts, line counts, tree shape) through a set of plugins,
and persists them to an embedded SQLite store.

Content is identified by hash, so unchanged files are never reprocessed
across runs. Run 'srcmetrics process' in a project directory to start.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(newProcessCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newStudyCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if loggingCleanup != nil {
		loggingCleanup()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}
