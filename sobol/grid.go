package sobol

import (
	"gonum.org/v1/gonum/mat"

	"github.com/npag-go/npag/grid"
)

// InitialGrid builds the starting support-point set: n rows scaled from a
// Halton sequence into the box described by bounds (one Range per
// parameter). Deterministic given seed.
func InitialGrid(n int, bounds []grid.Range, seed uint64) *mat.Dense {
	dims := len(bounds)
	seq := New(dims, seed)

	out := mat.NewDense(n, dims, nil)
	for i := 0; i < n; i++ {
		point := seq.Next()
		for d := 0; d < dims; d++ {
			b := bounds[d]
			out.Set(i, d, b.Low+point[d]*(b.High-b.Low))
		}
	}
	return out
}
