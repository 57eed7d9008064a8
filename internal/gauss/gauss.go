// Package gauss generates synthetic Gaussian observation noise for test
// fixtures and simulation-mode datasets. It plays no part in the
// estimation engine itself — the engine only ever consumes observations,
// never manufactures them.
package gauss

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Generator draws noise from a seeded source so synthetic datasets are
// reproducible across test runs.
type Generator struct {
	src *rand.Rand
}

// NewGenerator creates a Generator seeded deterministically.
func NewGenerator(seed uint64) *Generator {
	return &Generator{src: rand.New(rand.NewSource(seed))}
}

// Sample draws one independent noise value per entry of sigma (a diagonal
// covariance): the common case for per-observation additive or
// proportional error models, where cross-observation correlation isn't
// part of the model.
func (g *Generator) Sample(sigma []float64) []float64 {
	out := make([]float64, len(sigma))
	for i, s := range sigma {
		d := distuv.Normal{Mu: 0, Sigma: s, Src: g.src}
		out[i] = d.Rand()
	}
	return out
}

// SampleCorrelated draws a single zero-mean sample from a Normal with the
// given (possibly non-diagonal) covariance, via SVD rather than Cholesky
// since cov may be near-singular. Use this when a test fixture needs
// correlated residual noise instead of the independent case Sample covers.
func (g *Generator) SampleCorrelated(cov mat.Symmetric) ([]float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(cov, mat.SVDFull); !ok {
		return nil, fmt.Errorf("gauss: SVD factorization failed")
	}

	u := new(mat.Dense)
	svd.UTo(u)
	vals := svd.Values(nil)
	for i := range vals {
		vals[i] = math.Sqrt(vals[i])
	}
	scale := mat.NewDiagDense(len(vals), vals)
	u.Mul(u, scale)

	rows, _ := cov.Dims()
	z := make([]float64, rows)
	for i := range z {
		z[i] = g.src.NormFloat64()
	}
	zVec := mat.NewVecDense(rows, z)

	out := mat.NewVecDense(rows, nil)
	out.MulVec(u, zVec)

	result := make([]float64, rows)
	for i := range result {
		result[i] = out.AtVec(i)
	}
	return result, nil
}
