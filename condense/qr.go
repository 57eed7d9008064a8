package condense

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/npag-go/npag/internal/linalg"
)

// qrRatioThreshold is the rank-revealing cutoff: a pivot column whose
// remaining (orthogonal-to-previously-selected) norm has fallen below
// this fraction of its original norm is judged linearly dependent on the
// columns already retained.
const qrRatioThreshold = 1e-8

// QR applies Stage B condensation: among candidates (column indices into
// psi surviving Stage A), it row-normalizes psi, then greedily
// column-pivots a Gram-Schmidt QR factorization, retaining a column only
// while its pivot ratio stays above qrRatioThreshold. The returned
// indices are a subset of candidates, in ascending order.
//
// gonum's mat.QR has no column pivoting, so rank-revealing selection is
// done here with a direct modified Gram-Schmidt sweep: this also gives
// the running pivot norms the ratio test needs without a second pass.
func QR(psi *mat.Dense, candidates []int) []int {
	m := len(candidates)
	if m == 0 {
		return nil
	}
	n, _ := psi.Dims()

	sub := mat.NewDense(n, m, nil)
	for j, col := range candidates {
		for i := 0; i < n; i++ {
			sub.Set(i, j, psi.At(i, col))
		}
	}
	normalized := linalg.NormalizeRows(sub)

	cols := make([][]float64, m)
	for j := 0; j < m; j++ {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = normalized.At(i, j)
		}
		cols[j] = col
	}

	origNorms := make([]float64, m)
	for j := 0; j < m; j++ {
		origNorms[j] = norm2(cols[j])
	}

	perm := append([]int(nil), candidates...)
	rank := 0
	limit := m
	if n < limit {
		limit = n
	}

	for t := 0; t < limit; t++ {
		pivot := t
		best := norm2(cols[t])
		for j := t + 1; j < m; j++ {
			if nrm := norm2(cols[j]); nrm > best {
				best = nrm
				pivot = j
			}
		}
		if pivot != t {
			cols[t], cols[pivot] = cols[pivot], cols[t]
			perm[t], perm[pivot] = perm[pivot], perm[t]
			origNorms[t], origNorms[pivot] = origNorms[pivot], origNorms[t]
		}

		rtt := norm2(cols[t])
		if origNorms[t] == 0 || rtt/origNorms[t] < qrRatioThreshold {
			break
		}

		q := make([]float64, n)
		for i := range q {
			q[i] = cols[t][i] / rtt
		}
		for j := t + 1; j < m; j++ {
			proj := dot(q, cols[j])
			for i := 0; i < n; i++ {
				cols[j][i] -= proj * q[i]
			}
		}
		rank = t + 1
	}

	if rank == 0 {
		rank = 1 // always retain at least one support point
	}

	retained := append([]int(nil), perm[:rank]...)
	sort.Ints(retained)
	return retained
}

// norm2 delegates to linalg.ColumnNorm2 by wrapping v as a single-column
// matrix, so the rank-revealing pivot/ratio test shares its norm
// computation with the rest of the module instead of duplicating it.
func norm2(v []float64) float64 {
	return linalg.ColumnNorm2(mat.NewDense(len(v), 1, v), 0)
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
