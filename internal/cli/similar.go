package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSimilarCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "similar <case-id>...",
		Short: "Rank the cases most similar to a group",
		Long: `Similar ranks every case within two citations of the group by its summed
neighbourhood similarity, using the network stored in --snapshot.

Examples:
  casegraph similar 101
  casegraph similar --limit 5 101 102`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			n, err := opts.loadNetwork(cmd.Context())
			if err != nil {
				return err
			}

			records, err := n.Similarity.CaseSimilarity(cmd.Context(), ids, limit)
			if err != nil {
				return fmt.Errorf("similar: %w", err)
			}

			w := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(w, "No similar cases found.")
				return nil
			}
			for i, r := range records {
				fmt.Fprintf(w, "%d. %d\t%.4f\n", i+1, r.OpinionB, r.Score)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "max results (0 for all)")
	return cmd
}
