package cli

import (
	"fmt"
	"strings"

	"github.com/casegraph/backend/pkg/cluster"

	"github.com/spf13/cobra"
)

func newClusterCmd(opts *rootOptions) *cobra.Command {
	var (
		method string
		eps    float64
		k      int
	)

	cmd := &cobra.Command{
		Use:   "cluster <case-id>...",
		Short: "Cluster cases by citation similarity",
		Long: `Cluster partitions the given cases using the network stored in --snapshot.

Examples:
  casegraph cluster 101 102 103 104
  casegraph cluster --method spectral --k 3 101 102 103 104
  casegraph cluster --eps 0.5 101 102 103`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			m, err := cluster.ParseMethod(method)
			if err != nil {
				return err
			}
			n, err := opts.loadNetwork(cmd.Context())
			if err != nil {
				return err
			}

			var res *cluster.Result
			switch m {
			case cluster.MethodSpectral:
				res, err = n.Clusters.Spectral(ids, k)
			default:
				res, err = n.Clusters.DBSCAN(ids, eps)
			}
			if err != nil {
				return fmt.Errorf("cluster: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d clusters (%s):\n", len(res.Groups), m)
			for _, label := range res.SortedLabels() {
				members := make([]string, 0, len(res.Groups[label]))
				for _, id := range res.Groups[label] {
					members = append(members, fmt.Sprint(id))
				}
				fmt.Fprintf(w, "  %d: %s\n", label, strings.Join(members, " "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", string(cluster.MethodDBSCAN), "dbscan or spectral")
	cmd.Flags().Float64Var(&eps, "eps", cluster.DefaultEps, "DBSCAN neighbourhood radius")
	cmd.Flags().IntVar(&k, "k", 0, "spectral cluster count (0 picks it from the eigengap)")
	return cmd
}
