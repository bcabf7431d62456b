package cli

import (
	"fmt"
	"time"

	"github.com/casegraph/backend/internal/db"
	"github.com/casegraph/backend/internal/timing"
	"github.com/casegraph/backend/internal/util"
	"github.com/casegraph/backend/pkg/logger"
	"github.com/casegraph/backend/pkg/network"
	pgxstore "github.com/casegraph/backend/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Build and inspect network snapshots",
	}
	cmd.AddCommand(newSnapshotBuildCmd(opts))
	cmd.AddCommand(newSnapshotInfoCmd(opts))
	return cmd
}

func newSnapshotBuildCmd(opts *rootOptions) *cobra.Command {
	var (
		out      string
		directed bool
		migrate  bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the citation network from the database and write a snapshot",
		Long: `Build reads every citation from DATABASE_URL, constructs the network and
writes it to --out, or to --snapshot when --out is not given.

Examples:
  casegraph snapshot build
  casegraph snapshot build --out /data/network.json.gz --directed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			databaseURL := util.GetEnv("DATABASE_URL")
			if databaseURL == "" {
				return fmt.Errorf("DATABASE_URL is not set")
			}
			if migrate {
				if err := db.Migrate(databaseURL, util.GetEnvString("MIGRATIONS_PATH", db.DefaultMigrationsPath)); err != nil {
					return err
				}
			}

			pool, err := pgxpool.New(ctx, databaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			start := time.Now()
			n, err := network.Build(ctx, pgxstore.NewCaseStore(pool), directed, opts.seed)
			if err != nil {
				return err
			}
			took := time.Since(start)

			if out == "" {
				out = opts.snapshot
			}
			if err := network.SaveSnapshot(ctx, network.NewFileStore(out), n); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			if err := timing.RecordNetworkBuild(ctx, n.Graph.NodeCount(), n.Graph.EdgeCount(), directed, took, timing.SourceCLI, pool); err != nil {
				logger.Warn("Failed to record network build", "err", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d nodes, %d edges) in %s\n",
				out, n.Graph.NodeCount(), n.Graph.EdgeCount(), took.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (defaults to --snapshot)")
	cmd.Flags().BoolVar(&directed, "directed", util.GetEnvBool("NETWORK_DIRECTED", false), "keep citation direction")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations first")
	return cmd
}

func newSnapshotInfoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := opts.loadNetwork(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Snapshot: %s\n", opts.snapshot)
			fmt.Fprintf(w, "Nodes:    %d\n", n.Graph.NodeCount())
			fmt.Fprintf(w, "Edges:    %d\n", n.Graph.EdgeCount())
			fmt.Fprintf(w, "Directed: %t\n", n.Graph.Directed())
			fmt.Fprintf(w, "Built at: %s\n", n.BuiltAt.Format(time.RFC3339))
			return nil
		},
	}
}
