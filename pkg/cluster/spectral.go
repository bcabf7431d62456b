package cluster

import (
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

const (
	maxSVDRestarts   = 30
	maxDiscretizeIts = 20
	machineEpsilon   = 2.220446049250313e-16
)

var (
	ErrEigenDecomposition = errors.New("eigendecomposition of the laplacian failed")
	ErrNoConvergence      = errors.New("spectral discretization did not converge")
)

// spectralEmbedding embeds the nodes of the affinity graph into k dimensions
// using the eigenvectors of the symmetric normalized Laplacian with the k
// smallest eigenvalues. The result has one row per node. Isolated nodes are
// treated as having degree one.
func spectralEmbedding(affinity *mat.SymDense, k int) (*mat.Dense, error) {
	n := affinity.SymmetricDim()

	dd := make([]float64, n)
	for i := 0; i < n; i++ {
		var degree float64
		for j := 0; j < n; j++ {
			if i != j {
				degree += affinity.At(i, j)
			}
		}
		if degree == 0 {
			dd[i] = 1
		} else {
			dd[i] = math.Sqrt(degree)
		}
	}

	laplacian := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		laplacian.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			laplacian.SetSym(i, j, -affinity.At(i, j)/(dd[i]*dd[j]))
		}
	}

	var es mat.EigenSym
	if !es.Factorize(laplacian, true) {
		return nil, ErrEigenDecomposition
	}
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	maps := mat.NewDense(n, k, nil)
	for c := 0; c < k; c++ {
		for i := 0; i < n; i++ {
			maps.Set(i, c, vectors.At(i, c)/dd[i])
		}
		flipToPositiveMax(maps, c)
	}
	return maps, nil
}

// flipToPositiveMax negates column c unless its entry of largest magnitude is
// positive, fixing the arbitrary sign of an eigenvector.
func flipToPositiveMax(m *mat.Dense, c int) {
	n, _ := m.Dims()
	best, bestAbs := 0.0, -1.0
	for i := 0; i < n; i++ {
		if v := m.At(i, c); math.Abs(v) > bestAbs {
			best, bestAbs = v, math.Abs(v)
		}
	}
	if best < 0 {
		for i := 0; i < n; i++ {
			m.Set(i, c, -m.At(i, c))
		}
	}
}

// discretize searches for the partition closest to the continuous spectral
// embedding (Yu & Shi, "Multiclass spectral clustering", 2003). vectors is
// modified in place.
func discretize(vectors *mat.Dense, rng *rand.Rand) ([]int, error) {
	n, k := vectors.Dims()
	sqrtN := math.Sqrt(float64(n))

	for c := 0; c < k; c++ {
		col := mat.Col(nil, c, vectors)
		norm := mat.Norm(mat.NewVecDense(n, col), 2)
		if norm == 0 {
			continue
		}
		scale := sqrtN / norm
		if col[0] > 0 {
			scale = -scale
		}
		for i := 0; i < n; i++ {
			vectors.Set(i, c, col[i]*scale)
		}
	}

	for i := 0; i < n; i++ {
		row := vectors.RawRowView(i)
		var sum float64
		for _, v := range row {
			sum += v * v
		}
		if sum == 0 {
			continue
		}
		norm := math.Sqrt(sum)
		for j := range row {
			row[j] /= norm
		}
	}

	labels := make([]int, n)
	for restarts := 0; restarts < maxSVDRestarts; {
		rotation := initialRotation(vectors, rng)

		var lastObjective float64
		for iter := 1; ; iter++ {
			var projected mat.Dense
			projected.Mul(vectors, rotation)
			for i := 0; i < n; i++ {
				labels[i] = argmax(projected.RawRowView(i))
			}

			// indicator^T * vectors, one row per label.
			tSVD := mat.NewDense(k, k, nil)
			for i := 0; i < n; i++ {
				dst := tSVD.RawRowView(labels[i])
				for j, v := range vectors.RawRowView(i) {
					dst[j] += v
				}
			}

			var svd mat.SVD
			if !svd.Factorize(tSVD, mat.SVDThin) {
				restarts++
				break
			}
			var sum float64
			for _, s := range svd.Values(nil) {
				sum += s
			}
			objective := 2 * (float64(n) - sum)
			if math.Abs(objective-lastObjective) < machineEpsilon || iter > maxDiscretizeIts {
				return labels, nil
			}
			lastObjective = objective

			var u, v mat.Dense
			svd.UTo(&u)
			svd.VTo(&v)
			rotation.Mul(&v, u.T())
		}
	}
	return nil, ErrNoConvergence
}

// initialRotation starts from a random row of vectors and adds, column by
// column, the row least aligned with the columns chosen so far.
func initialRotation(vectors *mat.Dense, rng *rand.Rand) *mat.Dense {
	n, k := vectors.Dims()
	rotation := mat.NewDense(k, k, nil)
	rotation.SetCol(0, vectors.RawRowView(rng.IntN(n)))

	c := make([]float64, n)
	for j := 1; j < k; j++ {
		prev := mat.Col(nil, j-1, rotation)
		for i := 0; i < n; i++ {
			var dot float64
			for x, v := range vectors.RawRowView(i) {
				dot += v * prev[x]
			}
			c[i] += math.Abs(dot)
		}
		rotation.SetCol(j, vectors.RawRowView(argmin(c)))
	}
	return rotation
}

func argmax(xs []float64) int {
	best := 0
	for i, v := range xs {
		if v > xs[best] {
			best = i
		}
	}
	return best
}

func argmin(xs []float64) int {
	best := 0
	for i, v := range xs {
		if v < xs[best] {
			best = i
		}
	}
	return best
}
