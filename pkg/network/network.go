// Package network owns the process-wide citation network: building it,
// persisting it as a snapshot, sharing it between requests and serving the
// similarity and clustering operations on top of it.
package network

import (
	"context"
	"time"

	"github.com/casegraph/backend/pkg/citation"
	"github.com/casegraph/backend/pkg/cluster"
	"github.com/casegraph/backend/pkg/logger"
	"github.com/casegraph/backend/pkg/similarity"
)

var log = logger.With("Network")

// Network bundles an immutable citation graph with the engines that read it.
// A Network is never mutated after construction. Rebuilding produces a new one.
type Network struct {
	Graph      *citation.Graph
	Similarity *similarity.Engine
	Clusters   *cluster.Engine
	BuiltAt    time.Time
}

// New wraps a graph. seed drives spectral clustering.
func New(g *citation.Graph, seed uint64) *Network {
	return newNetwork(g, seed, time.Now().UTC())
}

func newNetwork(g *citation.Graph, seed uint64, builtAt time.Time) *Network {
	sim := similarity.NewEngine(g)
	return &Network{
		Graph:      g,
		Similarity: sim,
		Clusters:   cluster.NewEngine(sim, seed),
		BuiltAt:    builtAt,
	}
}

// Build constructs a fresh network from the edge source.
func Build(ctx context.Context, src citation.EdgeSource, directed bool, seed uint64) (*Network, error) {
	start := time.Now()
	g, err := citation.Construct(ctx, src, directed)
	if err != nil {
		return nil, err
	}
	n := New(g, seed)
	log.Info("Citation network constructed",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"directed", directed,
		"duration", time.Since(start),
	)
	return n, nil
}
