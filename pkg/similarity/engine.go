// Package similarity derives pairwise opinion similarity from the topology of
// the citation graph.
//
// Two opinions are similar when their citation neighbourhoods overlap. Each
// opinion's closed neighbourhood holds its neighbours at their edge weights
// plus the opinion itself at weight 1. The similarity of a and b is the
// weighted Jaccard index of their closed neighbourhoods:
//
//	sim(a, b) = Σ_k min(N[a]_k, N[b]_k) / Σ_k max(N[a]_k, N[b]_k)
//
// Scores lie in [0, 1] and are symmetric. Opinions that cite each other
// directly or share citations score above zero. Opinions more than two hops
// apart, and opinions missing from the graph, score zero.
package similarity

import (
	"context"

	"github.com/casegraph/backend/pkg/citation"
	"github.com/casegraph/backend/pkg/common"
)

// Engine computes similarities against one immutable citation graph.
type Engine struct {
	graph *citation.Graph
}

// NewEngine creates an engine over g. The graph is never mutated.
func NewEngine(g *citation.Graph) *Engine {
	return &Engine{graph: g}
}

type neighbourhood struct {
	weights map[int64]float64
	total   float64
}

func (e *Engine) closedNeighbourhood(id int64) neighbourhood {
	w := e.graph.Neighbors(id)
	w[id] = 1
	total := 0.0
	for _, v := range w {
		total += v
	}
	return neighbourhood{weights: w, total: total}
}

func jaccard(a, b neighbourhood) float64 {
	small, large := a.weights, b.weights
	if len(small) > len(large) {
		small, large = large, small
	}
	overlap := 0.0
	for k, wa := range small {
		if wb, ok := large[k]; ok {
			overlap += min(wa, wb)
		}
	}
	if overlap == 0 {
		return 0
	}
	return overlap / (a.total + b.total - overlap)
}

// Similarity returns the similarity of two opinions. An opinion compared with
// itself scores 0, matching the zero diagonal of InternalSimilarity.
func (e *Engine) Similarity(a, b int64) float64 {
	if a == b {
		return 0
	}
	return jaccard(e.closedNeighbourhood(a), e.closedNeighbourhood(b))
}

// InternalSimilarity builds the similarity graph over exactly the given
// opinions, in the given order after removing duplicates. Opinions absent from
// the citation graph become isolated rows.
func (e *Engine) InternalSimilarity(ids []int64) (*Graph, error) {
	ids, err := common.UniqueIDs(ids)
	if err != nil {
		return nil, err
	}

	hoods := make([]neighbourhood, len(ids))
	for i, id := range ids {
		hoods[i] = e.closedNeighbourhood(id)
	}

	g := newGraph(ids)
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if s := jaccard(hoods[i], hoods[j]); s > 0 {
				g.weights.SetSym(i, j, s)
			}
		}
	}
	return g, nil
}

// CaseSimilarity ranks the opinions most similar to a group. Each candidate
// scores the sum of its similarities to the group's members. Members of the
// group are never returned. A limit <= 0 returns every candidate.
func (e *Engine) CaseSimilarity(ctx context.Context, ids []int64, limit int) ([]common.SimilarityRecord, error) {
	ids, err := common.UniqueIDs(ids)
	if err != nil {
		return nil, err
	}

	group := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		group[id] = struct{}{}
	}

	scores := make(map[int64]float64)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.graph.Has(id) {
			continue
		}
		hood := e.closedNeighbourhood(id)
		for _, c := range e.twoHop(id) {
			if _, member := group[c]; member {
				continue
			}
			if s := jaccard(hood, e.closedNeighbourhood(c)); s > 0 {
				scores[c] += s
			}
		}
	}

	ranked := TopN(scores, limit)
	records := make([]common.SimilarityRecord, 0, len(ranked))
	for _, r := range ranked {
		records = append(records, common.SimilarityRecord{OpinionB: r.ID, Score: r.Score})
	}
	return records, nil
}

// twoHop lists every opinion within two hops of id, excluding id itself.
func (e *Engine) twoHop(id int64) []int64 {
	seen := map[int64]struct{}{id: {}}
	var out []int64
	for n1 := range e.graph.Neighbors(id) {
		if _, ok := seen[n1]; !ok {
			seen[n1] = struct{}{}
			out = append(out, n1)
		}
		for n2 := range e.graph.Neighbors(n1) {
			if _, ok := seen[n2]; !ok {
				seen[n2] = struct{}{}
				out = append(out, n2)
			}
		}
	}
	return out
}
