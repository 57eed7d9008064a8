// Package npag implements the Nonparametric Adaptive Grid (NPAG) algorithm
// for fitting population pharmacokinetic models: given a structural model
// and per-subject dosing/observation records it estimates a discrete
// probability distribution over a parameter space, represented as a set of
// support points with associated probability weights.
package npag

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/npag-go/npag/scenario"
)

// Predictor is the external contract supplied by the user's structural
// model. Given a parameter vector and a subject's event record it returns
// the model-predicted value at each of the subject's observation times, in
// event order.
//
// Predictor must be pure with respect to (params, subj): identical inputs
// yield identical outputs within the floating-point determinism of the
// implementation's own numerical integrator. The engine never inspects the
// model internals; it only ever calls Predict.
type Predictor interface {
	// Predict returns one prediction per observation event in subj.
	Predict(ctx context.Context, params mat.Vector, subj *scenario.Scenario) ([]float64, error)
}

// Convergence constants shared by the driver and its collaborators.
const (
	// ThetaE is the floor below which the expansion radius epsilon no
	// longer triggers further grid expansion.
	ThetaE = 1e-4
	// ThetaG is the objective-function convergence tolerance used to
	// decide whether epsilon should shrink.
	ThetaG = 1e-4
	// ThetaF is the log-marginal-likelihood convergence tolerance
	// checked once epsilon has reached ThetaE.
	ThetaF = 1e-2
	// ThetaD is the minimum scaled L1 distance grid expansion enforces
	// between a new candidate and every point already in the grid.
	// Condensation does not check it.
	ThetaD = 1e-4
)
