// Package driver implements the NPAG outer fixed-point loop: the cycle
// that alternates prediction, likelihood construction, interior-point
// weight optimization, two-stage condensation, a gamma line search, a
// convergence test, and adaptive grid expansion until the epsilon floor
// and log-marginal criterion are both satisfied or the cycle budget is
// exhausted.
package driver

import (
	"context"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/npag-go/npag"
	"github.com/npag-go/npag/cache"
	"github.com/npag-go/npag/condense"
	"github.com/npag-go/npag/grid"
	"github.com/npag-go/npag/internal/linalg"
	"github.com/npag-go/npag/ipm"
	"github.com/npag-go/npag/predict"
	"github.com/npag-go/npag/progress"
	"github.com/npag-go/npag/psi"
	"github.com/npag-go/npag/scenario"
	"github.com/npag-go/npag/sigma"
)

// Logger is the minimal logging capability the driver needs; satisfied
// structurally by *zap.SugaredLogger. Every Logger also satisfies
// psi.Logger, so the same value is passed on to psi.Build.
type Logger interface {
	Warnw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Warnw(string, ...interface{}) {}
func (nopLogger) Infow(string, ...interface{}) {}

// Options configures a Fit run.
type Options struct {
	Predictor  npag.Predictor
	Scenarios  []*scenario.Scenario
	Theta0     *mat.Dense // initial support-point grid
	Bounds     []grid.Range
	Model      sigma.Model // initial error model, including starting gamma
	MaxCycles  int
	Cache      cache.Cache // optional; nil disables prediction caching entirely
	Hub        *progress.Hub
	CycleLog   *progress.CycleLogger
	StopPath   string // default "stop"
	Workers    int
	Logger     Logger
}

// Result is the final state of a Fit run.
type Result struct {
	Theta     *mat.Dense
	Psi       *mat.Dense
	W         *mat.VecDense
	NegTwoLL  float64
	Cycles    int
	Converged bool
}

// Error wraps a numeric failure encountered during a specific cycle.
type Error struct {
	Cycle int
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("driver: cycle %d: %v", e.Cycle, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Fit runs the NPAG outer loop to convergence, the cycle cap, a `stop`
// file, or context cancellation, whichever comes first.
func Fit(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	stopPath := opts.StopPath
	if stopPath == "" {
		stopPath = "stop"
	}

	theta := opts.Theta0
	model := opts.Model
	gammaDelta := 0.1

	eps := 0.2
	lastObjf := math.Inf(-1)
	f0 := math.Inf(-1)
	cycle := 1

	var finalPsi *mat.Dense
	var finalW *mat.VecDense
	var objf float64

	for eps > npag.ThetaE {
		select {
		case <-ctx.Done():
			return &Result{Theta: theta, Psi: finalPsi, W: finalW, NegTwoLL: -2 * objf, Cycles: cycle, Converged: false}, nil
		default:
		}

		var predCache cache.Cache
		if cycle > 1 {
			predCache = opts.Cache
		}

		ypred, err := predict.Build(ctx, opts.Predictor, opts.Scenarios, theta, predict.Options{Cache: predCache, Workers: opts.Workers})
		if err != nil {
			return nil, &Error{Cycle: cycle, Err: err}
		}

		psiMat, err := psi.Build(ypred, opts.Scenarios, model, psi.Options{Logger: logger, Workers: opts.Workers})
		if err != nil {
			return nil, &Error{Cycle: cycle, Err: err}
		}

		res, err := ipm.Burke(psiMat)
		if err != nil {
			return nil, &Error{Cycle: cycle, Err: err}
		}

		survivors := condense.Threshold(res.Lambda())
		theta = selectRows(theta, survivors)
		psiMat = selectCols(psiMat, survivors)

		retained := condense.QR(psiMat, allIndices(len(survivors)))
		theta = selectRows(theta, retained)
		psiMat = selectCols(psiMat, retained)

		res, err = ipm.Burke(psiMat)
		if err != nil {
			return nil, &Error{Cycle: cycle, Err: err}
		}
		lambda := res.Lambda()
		objf = res.Objf()

		// Gamma line search: rebuild Psi from the already-computed
		// predictions at gamma+ and gamma-, never re-predicting.
		gammaUp := model.Gamma * (1 + gammaDelta)
		gammaDown := model.Gamma / (1 + gammaDelta)

		psiUp, errUp := psi.Build(ypred, opts.Scenarios, model.WithGamma(gammaUp), psi.Options{Logger: logger, Workers: opts.Workers})
		psiDown, errDown := psi.Build(ypred, opts.Scenarios, model.WithGamma(gammaDown), psi.Options{Logger: logger, Workers: opts.Workers})

		// These are deliberately two separate ifs, not if/else if, and
		// both trials are compared against the pre-search objective: when
		// both the up and down trial objectives improve on it, the down
		// branch runs second and its assignment wins, discarding the up
		// branch's (possibly better) result.
		objfBefore := objf
		if errUp == nil {
			if resUp, err := ipm.Burke(psiUp); err == nil && resUp.Objf() > objfBefore {
				model.Gamma = gammaUp
				objf = resUp.Objf()
				lambda = resUp.Lambda()
				psiMat = psiUp
				gammaDelta *= 4
			}
		}
		if errDown == nil {
			if resDown, err := ipm.Burke(psiDown); err == nil && resDown.Objf() > objfBefore {
				model.Gamma = gammaDown
				objf = resDown.Objf()
				lambda = resDown.Lambda()
				psiMat = psiDown
				gammaDelta *= 4
			}
		}
		gammaDelta *= 0.5
		if gammaDelta <= 0.01 {
			gammaDelta = 0.1
		}

		finalSurvivors := condense.Threshold(lambda)
		theta = selectRows(theta, finalSurvivors)
		psiMat = selectCols(psiMat, finalSurvivors)
		finalPsi = psiMat
		finalW = selectVec(lambda, finalSurvivors)

		logMarginal := 0.0
		nSubj, _ := finalPsi.Dims()
		for i := 0; i < nSubj; i++ {
			row := mat.Row(nil, i, finalPsi)
			s := 0.0
			for j, v := range row {
				s += v * finalW.AtVec(j)
			}
			logMarginal += math.Log(s)
		}

		logger.Infow("cycle summary", "cycle", cycle, "theta", linalg.Format(theta), "supportMass", linalg.ColSums(finalPsi))

		if opts.Hub != nil {
			opts.Hub.Publish(progress.Event{Cycle: cycle, NegTwoLL: -2 * objf, DeltaObjf: math.Abs(lastObjf - objf), NumSupport: finalW.Len(), Gamma: model.Gamma, Theta: theta})
		}
		if opts.CycleLog != nil {
			if err := opts.CycleLog.Append(progress.Event{Cycle: cycle, NegTwoLL: -2 * objf, DeltaObjf: math.Abs(lastObjf - objf), NumSupport: finalW.Len(), Gamma: model.Gamma, Theta: theta}); err != nil {
				logger.Warnw("failed to append cycle log", "cycle", cycle, "error", err)
			}
		}

		converged := false
		if math.Abs(lastObjf-objf) <= npag.ThetaG && eps > npag.ThetaE {
			eps /= 2
			if eps <= npag.ThetaE {
				f1 := logMarginal
				if math.Abs(f1-f0) <= npag.ThetaF {
					converged = true
				} else {
					f0 = f1
					eps = 0.2
				}
			}
		}
		if converged {
			return &Result{Theta: theta, Psi: finalPsi, W: finalW, NegTwoLL: -2 * objf, Cycles: cycle, Converged: true}, nil
		}

		if cycle >= opts.MaxCycles {
			logger.Warnw("maximum cycles reached without convergence", "cycles", cycle)
			return &Result{Theta: theta, Psi: finalPsi, W: finalW, NegTwoLL: -2 * objf, Cycles: cycle, Converged: false}, nil
		}

		if _, err := os.Stat(stopPath); err == nil {
			logger.Infow("stop file detected, terminating at cycle boundary", "cycle", cycle)
			return &Result{Theta: theta, Psi: finalPsi, W: finalW, NegTwoLL: -2 * objf, Cycles: cycle, Converged: false}, nil
		}

		theta = grid.Expand(theta, eps, opts.Bounds)

		// A grid expansion can change the support-point set enough that
		// the objective dips between cycles; that's permitted, not a
		// bug, but it's worth a log line to distinguish from stalling.
		if objf < lastObjf {
			logger.Warnw("objective function decreased after grid expansion", "cycle", cycle, "previous", lastObjf, "current", objf)
		}

		cycle++
		lastObjf = objf
	}

	return &Result{Theta: theta, Psi: finalPsi, W: finalW, NegTwoLL: -2 * objf, Cycles: cycle, Converged: false}, nil
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func selectRows(m *mat.Dense, keep []int) *mat.Dense {
	_, cols := m.Dims()
	out := mat.NewDense(len(keep), cols, nil)
	for newI, oldI := range keep {
		for j := 0; j < cols; j++ {
			out.Set(newI, j, m.At(oldI, j))
		}
	}
	return out
}

func selectCols(m *mat.Dense, keep []int) *mat.Dense {
	rows, _ := m.Dims()
	out := mat.NewDense(rows, len(keep), nil)
	for i := 0; i < rows; i++ {
		for newJ, oldJ := range keep {
			out.Set(i, newJ, m.At(i, oldJ))
		}
	}
	return out
}

func selectVec(v *mat.VecDense, keep []int) *mat.VecDense {
	out := mat.NewVecDense(len(keep), nil)
	for newI, oldI := range keep {
		out.SetVec(newI, v.AtVec(oldI))
	}
	return out
}
