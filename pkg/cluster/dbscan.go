package cluster

import "gonum.org/v1/gonum/mat"

// PseudoDistance turns a graph Laplacian into the distance matrix DBSCAN
// runs on: one is added to every entry and the diagonal is zeroed. Off the
// diagonal this leaves 1 - w(i, j).
func PseudoDistance(laplacian *mat.Dense) *mat.Dense {
	r, c := laplacian.Dims()
	dist := mat.NewDense(r, c, nil)
	dist.Apply(func(i, j int, v float64) float64 {
		if i == j {
			return 0
		}
		return v + 1
	}, laplacian)
	return dist
}

// dbscan labels points from a precomputed distance matrix. A point's
// neighbourhood holds every point within eps (inclusive), itself included;
// points with at least minSamples neighbours are core points. Clusters are
// numbered in the order their first core point appears.
func dbscan(dist mat.Matrix, eps float64, minSamples int) []int {
	n, _ := dist.Dims()

	neighbours := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if dist.At(i, j) <= eps {
				neighbours[i] = append(neighbours[i], j)
			}
		}
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = NoiseLabel
	}

	label := 0
	var stack []int
	for i := 0; i < n; i++ {
		if labels[i] != NoiseLabel || len(neighbours[i]) < minSamples {
			continue
		}
		stack = append(stack[:0], i)
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if labels[p] != NoiseLabel {
				continue
			}
			labels[p] = label
			if len(neighbours[p]) < minSamples {
				continue
			}
			for _, q := range neighbours[p] {
				if labels[q] == NoiseLabel {
					stack = append(stack, q)
				}
			}
		}
		label++
	}
	return labels
}
