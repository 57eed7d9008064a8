// Package linalg collects the small dense-matrix helpers shared by the
// likelihood, condensation and grid packages: row/column reductions and a
// scaled-distance helper, built on top of gonum.org/v1/gonum/mat.
package linalg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Format returns a matrix formatter suitable for logging.
func Format(m mat.Matrix) fmt.Formatter {
	return mat.Formatted(m, mat.Prefix(""), mat.Squeeze())
}

// RowSums returns a slice containing the row sums of m.
func RowSums(m *mat.Dense) []float64 {
	rows, _ := m.Dims()
	sum := make([]float64, rows)
	for i := 0; i < rows; i++ {
		sum[i] = floats.Sum(m.RawRowView(i))
	}
	return sum
}

// ColSums returns a slice containing the column sums of m.
func ColSums(m *mat.Dense) []float64 {
	_, cols := m.Dims()
	sum := make([]float64, cols)
	for j := 0; j < cols; j++ {
		sum[j] = mat.Sum(m.ColView(j))
	}
	return sum
}

// NormalizeRows returns a copy of m with every row divided by its own sum.
// Used to turn the likelihood matrix Psi into a row-stochastic matrix
// before column-pivoted QR condensation.
func NormalizeRows(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		s := floats.Sum(row)
		dst := out.RawRowView(i)
		if s == 0 {
			copy(dst, row)
			continue
		}
		for j, v := range row {
			dst[j] = v / s
		}
	}
	return out
}

// ColumnNorm2 returns the Euclidean norm of column j of m.
func ColumnNorm2(m mat.Matrix, j int) float64 {
	rows, _ := m.Dims()
	var sumSq float64
	for i := 0; i < rows; i++ {
		v := m.At(i, j)
		sumSq += v * v
	}
	return math.Sqrt(sumSq)
}

// ScaledL1 returns the scaled L1 distance between two equal-length
// parameter vectors a and b, each term divided by the corresponding axis
// range (high - low): sum_k |a_k - b_k| / (high_k - low_k).
func ScaledL1(a, b []float64, low, high []float64) float64 {
	var d float64
	for k := range a {
		rng := high[k] - low[k]
		d += abs(a[k]-b[k]) / rng
	}
	return d
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
