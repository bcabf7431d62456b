// Package citation builds the weighted citation graph that every similarity
// and clustering computation is layered on.
package citation

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/logger"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// MaxDepth normalizes the lowest edge weight. It is not enforced: deeper
// citations are accepted, they simply weigh less than 1/MaxDepth.
const MaxDepth = 122

// ErrConstruction marks a graph that could not be built, either because the
// edge source failed or because it returned an invalid record.
var ErrConstruction = errors.New("citation network construction failed")

var log = logger.With("Citation")

// EdgeSource yields every citation record of the corpus.
type EdgeSource interface {
	Citations(ctx context.Context) ([]common.Citation, error)
}

type weightedGraph interface {
	graph.Weighted
	graph.WeightedBuilder
	WeightedEdges() graph.WeightedEdges
}

// Graph is the citation network over opinion resource IDs. It is immutable
// once built and safe for concurrent readers.
type Graph struct {
	g        weightedGraph
	directed bool
	edges    int
}

func newGraph(directed bool) *Graph {
	var g weightedGraph
	if directed {
		g = simple.NewWeightedDirectedGraph(0, 0)
	} else {
		g = simple.NewWeightedUndirectedGraph(0, 0)
	}
	return &Graph{g: g, directed: directed}
}

// Construct reads all citations from src once and builds the graph. Any
// source failure is fatal and is not retried.
func Construct(ctx context.Context, src EdgeSource, directed bool) (*Graph, error) {
	citations, err := src.Citations(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConstruction, err)
	}
	return FromCitations(citations, directed)
}

// FromCitations adds each record as an edge weighted 1/depth. A pair seen
// more than once keeps the weight of its last record; undirected graphs treat
// (a, b) and (b, a) as the same pair.
func FromCitations(citations []common.Citation, directed bool) (*Graph, error) {
	g := newGraph(directed)
	deep := 0
	for i, c := range citations {
		if c.Depth <= 0 {
			return nil, fmt.Errorf("%w: record %d (%d -> %d) has depth %d", ErrConstruction, i, c.CitingOpinionID, c.CitedOpinionID, c.Depth)
		}
		if c.Depth > MaxDepth {
			deep++
		}
		g.setEdge(c.CitingOpinionID, c.CitedOpinionID, 1/float64(c.Depth))
	}
	g.edges = g.countEdges()
	if deep > 0 {
		log.Debug("Citations deeper than max depth", "count", deep, "max_depth", MaxDepth)
	}
	return g, nil
}

// FromEdges rebuilds a graph from previously collapsed state, as stored in a
// snapshot. Nodes without edges are kept.
func FromEdges(nodes []int64, edges []common.Edge, directed bool) (*Graph, error) {
	g := newGraph(directed)
	for _, id := range nodes {
		g.ensureNode(id)
	}
	for _, e := range edges {
		if e.Weight <= 0 {
			return nil, fmt.Errorf("edge %d -> %d has non-positive weight %v", e.From, e.To, e.Weight)
		}
		g.setEdge(e.From, e.To, e.Weight)
	}
	g.edges = g.countEdges()
	return g, nil
}

func (g *Graph) ensureNode(id int64) graph.Node {
	if n := g.g.Node(id); n != nil {
		return n
	}
	n := simple.Node(id)
	g.g.AddNode(n)
	return n
}

// setEdge overwrites any existing edge. Self-citations only register the
// node: simple graphs cannot hold loops, and a loop contributes nothing to a
// Laplacian anyway.
func (g *Graph) setEdge(from, to int64, weight float64) {
	u := g.ensureNode(from)
	if from == to {
		return
	}
	v := g.ensureNode(to)
	g.g.SetWeightedEdge(g.g.NewWeightedEdge(u, v, weight))
}

func (g *Graph) countEdges() int {
	n := 0
	it := g.g.WeightedEdges()
	for it.Next() {
		n++
	}
	return n
}

// Directed reports whether citation direction is kept.
func (g *Graph) Directed() bool { return g.directed }

// NodeCount returns the number of opinions that appear in any citation.
func (g *Graph) NodeCount() int { return g.g.Nodes().Len() }

// EdgeCount returns the number of collapsed edges.
func (g *Graph) EdgeCount() int { return g.edges }

// Has reports whether the opinion appears in the graph.
func (g *Graph) Has(id int64) bool { return g.g.Node(id) != nil }

// Nodes returns all opinion IDs in ascending order.
func (g *Graph) Nodes() []int64 {
	it := g.g.Nodes()
	ids := make([]int64, 0, it.Len())
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	slices.Sort(ids)
	return ids
}

// Edges returns all edges ordered by (From, To). Undirected edges are
// reported with From < To.
func (g *Graph) Edges() []common.Edge {
	edges := make([]common.Edge, 0, g.edges)
	it := g.g.WeightedEdges()
	for it.Next() {
		e := it.WeightedEdge()
		from, to := e.From().ID(), e.To().ID()
		if !g.directed && from > to {
			from, to = to, from
		}
		edges = append(edges, common.Edge{From: from, To: to, Weight: e.Weight()})
	}
	slices.SortFunc(edges, func(a, b common.Edge) int {
		if a.From != b.From {
			return cmp.Compare(a.From, b.From)
		}
		return cmp.Compare(a.To, b.To)
	})
	return edges
}

// Weight returns the weight of the edge a -> b. For undirected graphs the
// order does not matter.
func (g *Graph) Weight(a, b int64) (float64, bool) {
	if a == b {
		return 0, false
	}
	return g.g.Weight(a, b)
}

// Neighbors returns the weighted neighbourhood of id, ignoring direction.
// When a directed graph holds both a -> b and b -> a, the larger weight wins.
func (g *Graph) Neighbors(id int64) map[int64]float64 {
	out := make(map[int64]float64)
	if !g.Has(id) {
		return out
	}
	add := func(other int64, w float64) {
		if cur, ok := out[other]; !ok || w > cur {
			out[other] = w
		}
	}
	from := g.g.From(id)
	for from.Next() {
		v := from.Node().ID()
		w, _ := g.g.Weight(id, v)
		add(v, w)
	}
	if d, ok := g.g.(graph.Directed); ok && g.directed {
		to := d.To(id)
		for to.Next() {
			v := to.Node().ID()
			w, _ := g.g.Weight(v, id)
			add(v, w)
		}
	}
	return out
}
