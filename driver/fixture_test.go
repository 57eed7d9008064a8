package driver_test

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/npag-go/npag/scenario"
)

// oneCompartmentIVBolus is a test-only closed-form predictor: a single IV
// bolus dose at t=0 into a one-compartment model with first-order
// elimination, C(t) = (dose/V)*exp(-ke*t). It exists only to exercise the
// driver against a case with a known true parameter vector; it is not
// part of the estimation engine.
type oneCompartmentIVBolus struct {
	dose float64
}

// Predict implements npag.Predictor. params = [ke, V].
func (p oneCompartmentIVBolus) Predict(_ context.Context, params mat.Vector, subj *scenario.Scenario) ([]float64, error) {
	ke := params.AtVec(0)
	v := params.AtVec(1)

	out := make([]float64, 0, subj.NumObs())
	for _, t := range subj.ObsTimes() {
		out = append(out, (p.dose/v)*math.Exp(-ke*t))
	}
	return out, nil
}

func trueConcentration(dose, ke, v, t float64) float64 {
	return (dose / v) * math.Exp(-ke*t)
}
