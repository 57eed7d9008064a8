package ipm

import "gonum.org/v1/gonum/mat"

// Result is the outcome of a converged Burke solve. A solve that exhausts
// its iteration budget returns an error instead of a Result.
type Result struct {
	lambda     *mat.VecDense
	objf       float64
	iterations int
	residual   float64
}

// Lambda is the optimal support-point weight vector.
func (r *Result) Lambda() *mat.VecDense { return r.lambda }

// Objf is sum_i log(Psi_i . lambda) at Lambda().
func (r *Result) Objf() float64 { return r.objf }

// Iterations is the number of Newton steps taken.
func (r *Result) Iterations() int { return r.iterations }

// Residual is the norm of the KKT residual at the returned point.
func (r *Result) Residual() float64 { return r.residual }
