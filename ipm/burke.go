// Package ipm solves the convex weight-optimization subproblem
//
//	maximize   sum_i log(Psi_i . w)
//	subject to w >= 0, sum_j w_j = 1
//
// for a fixed likelihood matrix Psi, via a primal-dual interior-point
// method in the tradition of Burke's algorithm for nonparametric maximum
// likelihood: Newton steps on the perturbed KKT system of the log-barrier
// formulation, with a fraction-to-boundary line search and a
// path-following reduction of the barrier parameter.
package ipm

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	maxIterations = 200
	tau           = 0.995 // fraction-to-boundary safety factor
	sigmaReduce   = 0.2   // barrier-parameter shrink factor per iteration
	gapTol        = 1e-8
	kktTol        = 1e-6
)

// Burke solves the weight-optimization subproblem for psi (an N-subject
// by K-support-point likelihood matrix) and returns the optimal weights
// together with the attained objective value.
//
// It fails with an *Error wrapping ErrZeroRow if any row of psi is
// entirely zero (no support point explains that subject at all, so the
// objective is -Inf for every feasible w), with ErrSingular if a Newton
// system becomes numerically singular, and with ErrMaxIterations if the
// barrier method fails to reach the convergence tolerance within the
// iteration budget.
func Burke(psi *mat.Dense) (*Result, error) {
	n, k := psi.Dims()

	for i := 0; i < n; i++ {
		zero := true
		for j := 0; j < k; j++ {
			if psi.At(i, j) != 0 {
				zero = false
				break
			}
		}
		if zero {
			return nil, &Error{Cause: ErrZeroRow, Row: i}
		}
	}

	if k == 1 {
		objf := 0.0
		for i := 0; i < n; i++ {
			objf += math.Log(psi.At(i, 0))
		}
		lambda := mat.NewVecDense(1, []float64{1.0})
		return &Result{lambda: lambda, objf: objf, iterations: 0}, nil
	}

	w := mat.NewVecDense(k, nil)
	z := mat.NewVecDense(k, nil)
	for j := 0; j < k; j++ {
		w.SetVec(j, 1.0/float64(k))
		z.SetVec(j, float64(k)) // mu0=1, z_j = mu0/w_j
	}
	y := 0.0
	mu := 1.0

	onesN := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		onesN.SetVec(i, 1.0)
	}
	onesK := mat.NewVecDense(k, nil)
	for j := 0; j < k; j++ {
		onesK.SetVec(j, 1.0)
	}

	iter := 0
	kktNorm := math.Inf(1)
	for ; iter < maxIterations; iter++ {
		s := mat.NewVecDense(n, nil)
		s.MulVec(psi, w)
		for i := 0; i < n; i++ {
			if s.AtVec(i) <= 0 {
				return nil, &Error{Cause: ErrSingular, Iter: iter}
			}
		}

		m := mat.NewDense(n, k, nil)
		for i := 0; i < n; i++ {
			inv := 1.0 / s.AtVec(i)
			for j := 0; j < k; j++ {
				m.Set(i, j, psi.At(i, j)*inv)
			}
		}

		grad := mat.NewVecDense(k, nil)
		grad.MulVec(m.T(), onesN)
		grad.ScaleVec(-1, grad)

		rDual := mat.NewVecDense(k, nil)
		for j := 0; j < k; j++ {
			rDual.SetVec(j, grad.AtVec(j)-y-z.AtVec(j))
		}

		rPri := 0.0
		for j := 0; j < k; j++ {
			rPri += w.AtVec(j)
		}
		rPri -= 1

		rCent := mat.NewVecDense(k, nil)
		for j := 0; j < k; j++ {
			rCent.SetVec(j, w.AtVec(j)*z.AtVec(j)-mu)
		}

		gap := 0.0
		for j := 0; j < k; j++ {
			gap += w.AtVec(j) * z.AtVec(j)
		}
		gap /= float64(k)

		kktNorm = mat.Norm(rDual, 2) + math.Abs(rPri) + mat.Norm(rCent, 2)
		if gap < gapTol && kktNorm < kktTol {
			break
		}

		hess := mat.NewDense(k, k, nil)
		hess.Mul(m.T(), m)

		dMat := mat.NewSymDense(k, nil)
		for a := 0; a < k; a++ {
			for b := a; b < k; b++ {
				v := hess.At(a, b)
				if a == b {
					v += z.AtVec(a) / w.AtVec(a)
				}
				dMat.SetSym(a, b, v)
			}
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(dMat); !ok {
			return nil, &Error{Cause: ErrSingular, Iter: iter}
		}

		rhs1 := mat.NewVecDense(k, nil)
		for j := 0; j < k; j++ {
			rhs1.SetVec(j, -rDual.AtVec(j)-rCent.AtVec(j)/w.AtVec(j))
		}

		x1 := mat.NewVecDense(k, nil)
		if err := chol.SolveVecTo(x1, rhs1); err != nil {
			return nil, &Error{Cause: ErrSingular, Iter: iter}
		}
		x2 := mat.NewVecDense(k, nil)
		if err := chol.SolveVecTo(x2, onesK); err != nil {
			return nil, &Error{Cause: ErrSingular, Iter: iter}
		}

		sumX1, sumX2 := 0.0, 0.0
		for j := 0; j < k; j++ {
			sumX1 += x1.AtVec(j)
			sumX2 += x2.AtVec(j)
		}
		dy := (-rPri - sumX1) / sumX2

		dw := mat.NewVecDense(k, nil)
		dz := mat.NewVecDense(k, nil)
		for j := 0; j < k; j++ {
			dwj := x1.AtVec(j) + dy*x2.AtVec(j)
			dw.SetVec(j, dwj)
			dz.SetVec(j, -rCent.AtVec(j)/w.AtVec(j)-(z.AtVec(j)/w.AtVec(j))*dwj)
		}

		alphaP := fractionToBoundary(w, dw)
		alphaD := fractionToBoundary(z, dz)

		for j := 0; j < k; j++ {
			w.SetVec(j, w.AtVec(j)+alphaP*dw.AtVec(j))
			z.SetVec(j, z.AtVec(j)+alphaD*dz.AtVec(j))
		}
		y += alphaD * dy

		newGap := 0.0
		for j := 0; j < k; j++ {
			newGap += w.AtVec(j) * z.AtVec(j)
		}
		mu = sigmaReduce * newGap / float64(k)
	}

	if iter >= maxIterations {
		return nil, &Error{Cause: ErrMaxIterations, Iter: iter}
	}

	normalizeSimplex(w)

	objf := 0.0
	for i := 0; i < n; i++ {
		s := 0.0
		for j := 0; j < k; j++ {
			s += psi.At(i, j) * w.AtVec(j)
		}
		objf += math.Log(s)
	}

	return &Result{lambda: w, objf: objf, iterations: iter, residual: kktNorm}, nil
}

// fractionToBoundary returns the largest step in (0,1] such that
// x + alpha*dx stays within tau of the boundary x>=0.
func fractionToBoundary(x, dx *mat.VecDense) float64 {
	alpha := 1.0
	n := x.Len()
	for i := 0; i < n; i++ {
		if dx.AtVec(i) < 0 {
			candidate := -tau * x.AtVec(i) / dx.AtVec(i)
			if candidate < alpha {
				alpha = candidate
			}
		}
	}
	return alpha
}

// normalizeSimplex clips negligible negative entries to zero and rescales
// so the vector sums to exactly 1, correcting floating-point drift
// accumulated over the Newton iterations.
func normalizeSimplex(w *mat.VecDense) {
	n := w.Len()
	sum := 0.0
	for i := 0; i < n; i++ {
		if w.AtVec(i) < 0 {
			w.SetVec(i, 0)
		}
		sum += w.AtVec(i)
	}
	if sum == 0 {
		return
	}
	for i := 0; i < n; i++ {
		w.SetVec(i, w.AtVec(i)/sum)
	}
}
