package cluster

import (
	"slices"

	"gonum.org/v1/gonum/mat"
)

// EigenvalueFloor stops the eigengap scan. Eigenvalues below it form the
// near-zero tail that would otherwise cause over-partitioning.
const EigenvalueFloor = 0.2

// OptimalNumClusters picks a cluster count with the eigengap heuristic
// (Zelnik-Manor & Perona, "Self-Tuning Spectral Clustering", section 3.1).
// The eigenvalues of the affinity matrix are sorted in descending order. The
// result is the index of the largest drop between consecutive eigenvalues,
// scanning only until an eigenvalue falls below EigenvalueFloor. If no drop is
// found, the result is 1.
func OptimalNumClusters(affinity mat.Symmetric) int {
	var es mat.EigenSym
	if !es.Factorize(affinity, false) {
		return 1
	}
	values := es.Values(nil)
	slices.Sort(values)
	slices.Reverse(values)

	largestDrop, largestDropIndex := 0.0, 0
	for i := 1; i < len(values); i++ {
		if drop := values[i-1] - values[i]; drop > largestDrop {
			largestDrop, largestDropIndex = drop, i
		}
		if values[i] < EigenvalueFloor {
			break
		}
	}
	if largestDropIndex == 0 {
		return 1
	}
	return largestDropIndex
}
