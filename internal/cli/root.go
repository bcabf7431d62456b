// Package cli provides the casegraph operator command line.
package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/casegraph/backend/internal/storage"
	"github.com/casegraph/backend/internal/util"
	"github.com/casegraph/backend/pkg/logger"
	"github.com/casegraph/backend/pkg/logger/console"
	"github.com/casegraph/backend/pkg/network"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

type rootOptions struct {
	verbose  bool
	snapshot string
	seed     uint64
}

// NewRootCmd assembles the casegraph command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "casegraph",
		Short: "Citation network tooling",
		Long: `casegraph builds and inspects the citation network served by the API.

Snapshots written by "snapshot build" can be loaded by the server and worker,
and queried offline with "cluster" and "similar".`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
				Debug:  opts.verbose || util.GetEnvBool("DEBUG", false),
				Output: cmd.ErrOrStderr(),
			}))
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.snapshot, "snapshot",
		util.GetEnvString("NETWORK_CACHE_PATH", storage.DefaultSnapshotPath), "snapshot file")
	cmd.PersistentFlags().Uint64Var(&opts.seed, "seed", util.GetEnvUint64("CLUSTER_SEED", 0), "spectral clustering seed")

	cmd.AddCommand(newSnapshotCmd(opts))
	cmd.AddCommand(newClusterCmd(opts))
	cmd.AddCommand(newSimilarCmd(opts))

	return cmd
}

// Execute runs the command tree against os.Args.
func Execute() error {
	util.LoadEnv()
	return NewRootCmd().Execute()
}

func (o *rootOptions) loadNetwork(ctx context.Context) (*network.Network, error) {
	n, err := network.LoadSnapshot(ctx, network.NewFileStore(o.snapshot), o.seed)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", o.snapshot, err)
	}
	return n, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid case ID %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
