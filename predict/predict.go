// Package predict runs a user-supplied npag.Predictor over every
// (subject, support point) pair and holds the resulting prediction
// tensor. Predictions are gamma-independent, so a single tensor is shared
// across the gamma line search's up/down likelihood rebuilds within a
// cycle (see sigma.Model.WithGamma).
package predict

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/npag-go/npag"
	"github.com/npag-go/npag/cache"
	"github.com/npag-go/npag/internal/workerpool"
	"github.com/npag-go/npag/scenario"
)

// Tensor holds one prediction vector per (subject, support point) pair:
// Tensor[i][j] is the predicted observation vector for subject i under
// support point j.
type Tensor [][][]float64

// At returns the prediction vector for subject i under support point j.
func (t Tensor) At(i, j int) []float64 { return t[i][j] }

// Subjects returns the number of subjects (rows) in the tensor.
func (t Tensor) Subjects() int { return len(t) }

// Points returns the number of support points (columns) in the tensor,
// or 0 if there are no subjects.
func (t Tensor) Points() int {
	if len(t) == 0 {
		return 0
	}
	return len(t[0])
}

// Options configures a Build call.
type Options struct {
	// Cache, if non-nil, memoizes predictions keyed on (subject,
	// parameter vector). The spec requires disabling the cache on the
	// very first cycle to avoid any possibility of stale hits before
	// the cache key's bit-exactness has been exercised end to end; the
	// driver enforces that by passing a nil Cache on cycle 1.
	Cache cache.Cache
	// Workers bounds the number of goroutines used to parallelize
	// across (subject, support point) pairs. 0 selects a default.
	Workers int
}

// Build runs predictor over every (subject, support point) pair formed by
// scenarios x theta (theta's rows are support points) and returns the
// resulting Tensor. Build parallelizes across pairs since Tensor[i][j]
// depends only on (i, j): order of evaluation is irrelevant.
func Build(ctx context.Context, predictor npag.Predictor, scenarios []*scenario.Scenario, theta *mat.Dense, opts Options) (Tensor, error) {
	nSubj := len(scenarios)
	nPts, _ := theta.Dims()

	tensor := make(Tensor, nSubj)
	for i := range tensor {
		tensor[i] = make([][]float64, nPts)
	}

	errs := make([]error, nSubj*nPts)

	workerpool.Run(nSubj*nPts, opts.Workers, func(idx int) {
		i := idx / nPts
		j := idx % nPts

		params := theta.RowView(j)
		subj := scenarios[i]

		if opts.Cache != nil {
			key := cache.KeyOf(subj.ID, params)
			if y, ok := opts.Cache.Get(key); ok {
				tensor[i][j] = y
				return
			}
			y, err := predictor.Predict(ctx, params, subj)
			if err != nil {
				errs[idx] = fmt.Errorf("subject %s, point %d: %w", subj.ID, j, err)
				return
			}
			opts.Cache.Put(key, y)
			tensor[i][j] = y
			return
		}

		y, err := predictor.Predict(ctx, params, subj)
		if err != nil {
			errs[idx] = fmt.Errorf("subject %s, point %d: %w", subj.ID, j, err)
			return
		}
		tensor[i][j] = y
	})

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return tensor, nil
}
