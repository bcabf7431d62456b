package similarity

import (
	"gonum.org/v1/gonum/mat"
)

// Graph is the similarity structure over one request's opinion subset. Row i
// of the weight matrix belongs to IDs[i]. It lives only for the duration of a
// single similarity or clustering call.
type Graph struct {
	IDs     []int64
	index   map[int64]int
	weights *mat.SymDense
}

func newGraph(ids []int64) *Graph {
	index := make(map[int64]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	return &Graph{
		IDs:     ids,
		index:   index,
		weights: mat.NewSymDense(len(ids), nil),
	}
}

// FromMatrix builds a similarity graph from precomputed weights. The
// diagonal is ignored and the matrix is copied.
func FromMatrix(ids []int64, weights mat.Symmetric) *Graph {
	g := newGraph(ids)
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			g.weights.SetSym(i, j, weights.At(i, j))
		}
	}
	return g
}

// Len returns the number of opinions in the subset.
func (g *Graph) Len() int { return len(g.IDs) }

// Index returns the matrix row of an opinion.
func (g *Graph) Index(id int64) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Weight returns the similarity between two opinions of the subset, or 0 when
// either is not part of it.
func (g *Graph) Weight(a, b int64) float64 {
	i, ok := g.index[a]
	if !ok {
		return 0
	}
	j, ok := g.index[b]
	if !ok {
		return 0
	}
	return g.weights.At(i, j)
}

// Affinity returns a copy of the dense, symmetric affinity matrix.
func (g *Graph) Affinity() *mat.SymDense {
	a := mat.NewSymDense(g.Len(), nil)
	a.CopySym(g.weights)
	return a
}

// Laplacian returns D - W, where D is the diagonal matrix of weighted degrees.
func (g *Graph) Laplacian() *mat.Dense {
	n := g.Len()
	l := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		degree := 0.0
		for j := 0; j < n; j++ {
			w := g.weights.At(i, j)
			if i != j {
				l.Set(i, j, -w)
			}
			degree += w
		}
		l.Set(i, i, degree-g.weights.At(i, i))
	}
	return l
}
