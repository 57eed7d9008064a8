// Package condense implements the two-stage support-point pruning applied
// after each interior-point solve: a cheap weight-magnitude threshold
// (Stage A) followed by rank-revealing column-pivoted QR condensation
// (Stage B) to remove support points that are linearly redundant in the
// likelihood matrix even though their weight survived Stage A.
package condense

import "gonum.org/v1/gonum/mat"

// weightFloor and weightRatio are the strict variant of the Stage A
// criterion: a support point survives only if its weight exceeds both an
// absolute floor and a fraction of the largest surviving weight, so a
// single dominant support point can't carry along a long tail of
// numerically negligible ones.
const (
	weightFloor = 1e-8
	weightRatio = 1.0 / 1000.0
)

// Threshold returns the indices of lambda whose weight is large enough to
// survive Stage A pruning: lambda[j] > max(lambda)*weightRatio AND
// lambda[j] > weightFloor. The returned indices are in ascending order.
func Threshold(lambda *mat.VecDense) []int {
	n := lambda.Len()
	if n == 0 {
		return nil
	}

	max := lambda.AtVec(0)
	for j := 1; j < n; j++ {
		if v := lambda.AtVec(j); v > max {
			max = v
		}
	}
	cut := max * weightRatio

	keep := make([]int, 0, n)
	for j := 0; j < n; j++ {
		v := lambda.AtVec(j)
		if v > cut && v > weightFloor {
			keep = append(keep, j)
		}
	}
	return keep
}
