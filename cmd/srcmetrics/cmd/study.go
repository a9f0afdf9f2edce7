package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStudyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "study",
		Short: "Report how much of the corpus each plugin has already seen",
		Long: `Study populates every plugin's seen set from the metric store and
reports the counts. This is the same eager pre-load the process and
cache commands perform before a batch run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := setupPipeline(".")
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.Engine.StudyPlugins(cmd.Context()); err != nil {
				return err
			}

			for _, plug := range registeredPlugins() {
				// registeredPlugins returns fresh instances; query the
				// store directly for the authoritative counts.
				hashes, err := p.Store.DistinctHashes(cmd.Context(), plug.Name(), plug.Version())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s v%-3d %d content hashes seen\n",
					plug.Name(), plug.Version(), len(hashes))
			}
			return nil
		},
	}
	return cmd
}
