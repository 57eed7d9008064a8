// Package grid implements adaptive axis-aligned neighbor expansion of the
// support-point set Θ between NPAG cycles.
package grid

import (
	"gonum.org/v1/gonum/mat"

	"github.com/npag-go/npag"
	"github.com/npag-go/npag/internal/linalg"
)

// Range is the closed [Low, High] bound for one parameter axis.
type Range struct {
	Low, High float64
}

// Expand returns a new Θ containing every row of theta plus any accepted
// axis-aligned neighbor candidates. For each existing point p and each
// axis k, it considers p + eps*(high_k-low_k)*e_k and p - eps*(high_k-low_k)*e_k
// in that order. A candidate is accepted iff it lies strictly within every
// axis's bounds and its scaled-L1 distance to every point already in the
// growing Θ (original rows plus candidates already accepted this call)
// exceeds npag.ThetaD. Only original rows of theta spawn candidates;
// accepted candidates are not themselves expanded in the same call.
func Expand(theta *mat.Dense, eps float64, bounds []Range) *mat.Dense {
	rows, cols := theta.Dims()

	low := make([]float64, cols)
	high := make([]float64, cols)
	for k := 0; k < cols; k++ {
		low[k] = bounds[k].Low
		high[k] = bounds[k].High
	}

	points := make([][]float64, rows, rows+rows*cols*2)
	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		for j := 0; j < cols; j++ {
			row[j] = theta.At(i, j)
		}
		points[i] = row
	}

	for i := 0; i < rows; i++ {
		p := points[i]
		for k := 0; k < cols; k++ {
			delta := eps * (high[k] - low[k])
			for _, sign := range [2]float64{1, -1} {
				cand := append([]float64(nil), p...)
				cand[k] += sign * delta

				if cand[k] <= low[k] || cand[k] >= high[k] {
					continue
				}

				accepted := true
				for _, q := range points {
					if linalg.ScaledL1(cand, q, low, high) <= npag.ThetaD {
						accepted = false
						break
					}
				}
				if accepted {
					points = append(points, cand)
				}
			}
		}
	}

	out := mat.NewDense(len(points), cols, nil)
	for i, p := range points {
		for j, v := range p {
			out.Set(i, j, v)
		}
	}
	return out
}
