package cmd

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show metric store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := setupPipeline(".")
			if err != nil {
				return err
			}
			defer p.Close()

			st, err := p.Store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Metric records:  %s\n", humanize.Comma(st.Records))
			fmt.Fprintf(out, "Distinct hashes: %s\n", humanize.Comma(st.DistinctHashes))
			if st.SizeBytes > 0 {
				fmt.Fprintf(out, "Store size:      %s\n", humanize.Bytes(uint64(st.SizeBytes)))
			}

			if len(st.RecordsPerPlug) > 0 {
				names := make([]string, 0, len(st.RecordsPerPlug))
				for name := range st.RecordsPerPlug {
					names = append(names, name)
				}
				sort.Strings(names)
				fmt.Fprintln(out, "Records per plugin:")
				for _, name := range names {
					fmt.Fprintf(out, "  %-12s %s\n", name, humanize.Comma(st.RecordsPerPlug[name]))
				}
			}
			return nil
		},
	}
	return cmd
}
