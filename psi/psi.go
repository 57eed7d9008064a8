// Package psi builds the likelihood matrix Psi from a prediction tensor
// and an observation-error model: Psi[i,j] is subject i's marginal
// likelihood under support point j.
package psi

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/npag-go/npag/internal/linalg"
	"github.com/npag-go/npag/internal/workerpool"
	"github.com/npag-go/npag/predict"
	"github.com/npag-go/npag/scenario"
	"github.com/npag-go/npag/sigma"
)

const frac1Sqrt2Pi = 0.3989422804014327 // 1/sqrt(2*pi)

// Logger is the minimal logging capability Build needs to report
// likelihood anomalies; *zap.SugaredLogger satisfies it.
type Logger interface {
	Warnw(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Warnw(string, ...interface{}) {}

// Options configures a Build call.
type Options struct {
	// Logger receives a warning for every NaN/Inf cell encountered. If
	// nil, anomalies are neutralized silently.
	Logger Logger
	// Workers bounds parallelism across (i, j) pairs. 0 selects a
	// default.
	Workers int
}

// Build computes Psi from the prediction tensor ypred, the scenarios the
// tensor's rows correspond to, and the observation-error model. Psi is
// elementwise finite and >= 0 on return: any NaN/Inf cell is logged and
// replaced with 0.
func Build(ypred predict.Tensor, scenarios []*scenario.Scenario, model sigma.Model, opts Options) (*mat.Dense, error) {
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	nSubj := ypred.Subjects()
	nPts := ypred.Points()

	out := mat.NewDense(nSubj, nPts, nil)

	errs := make([]error, nSubj)
	workerpool.Run(nSubj, opts.Workers, func(i int) {
		subj := scenarios[i]
		yObs := subj.Obs()

		sig, err := model.Sigma(yObs)
		if err != nil {
			errs[i] = err
			return
		}

		for j := 0; j < nPts; j++ {
			ll := likelihood(ypred.At(i, j), yObs, sig)
			if math.IsNaN(ll) || math.IsInf(ll, 0) {
				logger.Warnw("non-finite likelihood neutralized to zero",
					"subject", subj.ID, "supportPoint", j, "value", ll)
				ll = 0
			}
			out.Set(i, j, ll)
		}
	})

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	for i, sum := range linalg.RowSums(out) {
		if sum == 0 {
			logger.Warnw("subject has zero likelihood under every support point", "subject", scenarios[i].ID)
		}
	}

	return out, nil
}

// likelihood computes prod_k Normal(yObs_k; yPred_k, sig_k).
func likelihood(yPred, yObs, sig []float64) float64 {
	ll := 1.0
	for k := range yObs {
		diff := yObs[k] - yPred[k]
		s := sig[k]
		ll *= frac1Sqrt2Pi / s * math.Exp(-(diff*diff)/(2*s*s))
	}
	return ll
}
