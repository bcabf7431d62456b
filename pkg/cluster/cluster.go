// Package cluster partitions a set of opinions into groups of related cases.
// Two independent methods are offered: density-based clustering over a
// Laplacian-derived pseudo-distance, and spectral clustering of the affinity
// matrix with discretized label assignment.
package cluster

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/similarity"
)

// DefaultEps is the DBSCAN neighbourhood radius used when none is given.
const DefaultEps = 0.94

// NoiseLabel marks points DBSCAN could not attach to any cluster. With
// min_samples=1 it never occurs, but callers of the low-level routine may see it.
const NoiseLabel = -1

// Method selects a clustering algorithm.
type Method string

const (
	MethodDBSCAN   Method = "dbscan"
	MethodSpectral Method = "spectral"
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodDBSCAN, MethodSpectral:
		return Method(s), nil
	}
	return "", fmt.Errorf("%w: unknown cluster method %q", common.ErrInvalidInput, s)
}

// SimilarityProvider builds the similarity graph for a subset of opinions.
type SimilarityProvider interface {
	InternalSimilarity(ids []int64) (*similarity.Graph, error)
}

// Result is the outcome of one clustering call. Labels[i] is the label of
// IDs[i]; Groups lists the members of each label in input order. Labels only
// identify partitions within this result.
type Result struct {
	IDs    []int64         `json:"ids"`
	Labels []int           `json:"labels"`
	Groups map[int][]int64 `json:"groups"`
}

func newResult(ids []int64, labels []int) *Result {
	groups := make(map[int][]int64)
	for i, id := range ids {
		groups[labels[i]] = append(groups[labels[i]], id)
	}
	return &Result{IDs: ids, Labels: labels, Groups: groups}
}

// SortedLabels returns the labels present in the result in ascending order.
func (r *Result) SortedLabels() []int {
	labels := make([]int, 0, len(r.Groups))
	for l := range r.Groups {
		labels = append(labels, l)
	}
	slices.Sort(labels)
	return labels
}

// Engine runs clustering against a similarity provider. It holds no
// per-request state and may be shared between goroutines.
type Engine struct {
	similarity SimilarityProvider
	seed       uint64
}

// NewEngine creates an engine. seed drives the random starts of the
// discretize step, making spectral results reproducible.
func NewEngine(p SimilarityProvider, seed uint64) *Engine {
	return &Engine{similarity: p, seed: seed}
}

// DBSCAN clusters the opinions with density-based clustering. Smaller eps
// yields more, smaller clusters. Every input opinion lands in exactly one
// group.
func (e *Engine) DBSCAN(ids []int64, eps float64) (*Result, error) {
	if eps <= 0 {
		return nil, fmt.Errorf("%w: eps must be positive, got %v", common.ErrInvalidInput, eps)
	}
	sg, err := e.similarity.InternalSimilarity(ids)
	if err != nil {
		return nil, err
	}
	dist := PseudoDistance(sg.Laplacian())
	labels := dbscan(dist, eps, 1)
	return newResult(sg.IDs, labels), nil
}

// Spectral clusters the opinions into numClusters groups. numClusters == 0
// selects the count with the eigengap heuristic. Some labels may end up
// without members when the discretization degenerates.
func (e *Engine) Spectral(ids []int64, numClusters int) (*Result, error) {
	if numClusters < 0 {
		return nil, fmt.Errorf("%w: num_clusters must not be negative, got %d", common.ErrInvalidInput, numClusters)
	}
	sg, err := e.similarity.InternalSimilarity(ids)
	if err != nil {
		return nil, err
	}
	affinity := sg.Affinity()

	k := numClusters
	if k == 0 {
		k = OptimalNumClusters(affinity)
	}
	if k > sg.Len() {
		return nil, fmt.Errorf("%w: cannot form %d clusters from %d opinions", common.ErrInvalidInput, k, sg.Len())
	}

	maps, err := spectralEmbedding(affinity, k)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(e.seed, e.seed))
	labels, err := discretize(maps, rng)
	if err != nil {
		return nil, err
	}
	return newResult(sg.IDs, labels), nil
}
