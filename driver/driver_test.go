package driver_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/npag-go/npag/driver"
	"github.com/npag-go/npag/grid"
	"github.com/npag-go/npag/scenario"
	"github.com/npag-go/npag/sigma"
	"github.com/npag-go/npag/sobol"
)

func observationScenario(t *testing.T, id string, dose float64, times []float64, obs []float64) *scenario.Scenario {
	t.Helper()
	inputCompartment := 1
	outputEq := 1

	events := []scenario.Event{
		{Time: 0, Kind: scenario.Bolus, Dose: &dose, InputCompartment: &inputCompartment},
	}
	for _, tm := range times {
		events = append(events, scenario.Event{Time: tm, Kind: scenario.Observation, OutputEquation: &outputEq})
	}

	s, err := scenario.New(id, events, obs, times, nil)
	assert.NoError(t, err)
	return s
}

func defaultBounds() []grid.Range {
	return []grid.Range{
		{Low: 0.01, High: 1.0},  // ke
		{Low: 10.0, High: 100.0}, // V
	}
}

func defaultModel() sigma.Model {
	return sigma.Model{
		Poly:  sigma.Polynomial{C0: 0.1},
		Class: sigma.Additive,
		Gamma: 1.0,
	}
}

// TestFitRecoversSingleSubjectParameters implements the one-compartment IV
// bolus concrete scenario: a single subject generated from a known
// (ke, V), fit against a Halton-seeded 25-point initial grid, should place
// a support point close to the truth with non-trivial weight within a
// modest cycle budget.
func TestFitRecoversSingleSubjectParameters(t *testing.T) {
	assert := assert.New(t)

	const dose = 500.0
	const trueKe = 0.1
	const trueV = 50.0
	times := []float64{0.5, 1, 2, 4, 8, 12, 24}

	obs := make([]float64, len(times))
	for i, tm := range times {
		obs[i] = trueConcentration(dose, trueKe, trueV, tm)
	}

	subj := observationScenario(t, "001", dose, times, obs)
	bounds := defaultBounds()
	theta0 := sobol.InitialGrid(25, bounds, 347)

	res, err := driver.Fit(context.Background(), driver.Options{
		Predictor: oneCompartmentIVBolus{dose: dose},
		Scenarios: []*scenario.Scenario{subj},
		Theta0:    theta0,
		Bounds:    bounds,
		Model:     defaultModel(),
		MaxCycles: 30,
		StopPath:  filepath.Join(t.TempDir(), "stop"),
	})
	assert.NoError(err)
	assert.NotNil(res)

	rows, cols := res.Theta.Dims()
	assert.Equal(2, cols)
	assert.True(rows > 0)

	best := -1
	bestDist := -1.0
	for i := 0; i < rows; i++ {
		ke := res.Theta.At(i, 0)
		v := res.Theta.At(i, 1)
		d := (ke-trueKe)*(ke-trueKe) + (v-trueV)*(v-trueV)/2500
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	assert.True(best >= 0)
	assert.InDelta(trueKe, res.Theta.At(best, 0), 0.1)
	assert.InDelta(trueV, res.Theta.At(best, 1), 10)
	assert.True(res.W.AtVec(best) > 0.1, "closest support point should carry meaningful weight")
}

// TestFitStopsAtStopFile exercises the stop-file termination path: a run
// that would otherwise continue toward the cycle cap returns early, not
// converged, once the stop file appears.
func TestFitStopsAtStopFile(t *testing.T) {
	assert := assert.New(t)

	const dose = 500.0
	times := []float64{1, 4, 12}
	obs := []float64{trueConcentration(dose, 0.1, 50, 1), trueConcentration(dose, 0.1, 50, 4), trueConcentration(dose, 0.1, 50, 12)}
	subj := observationScenario(t, "001", dose, times, obs)

	bounds := defaultBounds()
	theta0 := sobol.InitialGrid(9, bounds, 1)
	stopPath := filepath.Join(t.TempDir(), "stop")

	// Pre-create the stop file so it is already present when the driver
	// makes its very first boundary check, at the end of cycle 1's work.
	assert.NoError(os.WriteFile(stopPath, []byte{}, 0o644))

	res, err := driver.Fit(context.Background(), driver.Options{
		Predictor: oneCompartmentIVBolus{dose: dose},
		Scenarios: []*scenario.Scenario{subj},
		Theta0:    theta0,
		Bounds:    bounds,
		Model:     defaultModel(),
		MaxCycles: 100,
		StopPath:  stopPath,
	})
	assert.NoError(err)
	assert.False(res.Converged)
	assert.Equal(1, res.Cycles)
}

// TestFitCancelsWithContext exercises the context-cancellation path: a
// pre-cancelled context aborts the loop on its very first iteration.
func TestFitCancelsWithContext(t *testing.T) {
	assert := assert.New(t)

	const dose = 500.0
	times := []float64{1, 4}
	obs := []float64{trueConcentration(dose, 0.1, 50, 1), trueConcentration(dose, 0.1, 50, 4)}
	subj := observationScenario(t, "001", dose, times, obs)

	bounds := defaultBounds()
	theta0 := sobol.InitialGrid(5, bounds, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := driver.Fit(ctx, driver.Options{
		Predictor: oneCompartmentIVBolus{dose: dose},
		Scenarios: []*scenario.Scenario{subj},
		Theta0:    theta0,
		Bounds:    bounds,
		Model:     defaultModel(),
		MaxCycles: 100,
		StopPath:  filepath.Join(t.TempDir(), "stop"),
	})
	assert.NoError(err)
	assert.False(res.Converged)
	assert.Equal(1, res.Cycles)
}

// TestFitTwoDisjointSubjectsRetainsMultipleSupportPoints covers the
// bimodal case: two subjects generated from well-separated true parameter
// vectors should, after a handful of cycles, leave the condensed grid
// with support near both, not collapse to a single shared point.
func TestFitTwoDisjointSubjectsRetainsMultipleSupportPoints(t *testing.T) {
	assert := assert.New(t)

	const dose = 500.0
	times := []float64{0.5, 2, 6, 12, 24}

	obsA := make([]float64, len(times))
	obsB := make([]float64, len(times))
	for i, tm := range times {
		obsA[i] = trueConcentration(dose, 0.05, 40, tm)
		obsB[i] = trueConcentration(dose, 0.4, 80, tm)
	}

	subjA := observationScenario(t, "A", dose, times, obsA)
	subjB := observationScenario(t, "B", dose, times, obsB)

	bounds := defaultBounds()
	theta0 := sobol.InitialGrid(25, bounds, 347)

	res, err := driver.Fit(context.Background(), driver.Options{
		Predictor: oneCompartmentIVBolus{dose: dose},
		Scenarios: []*scenario.Scenario{subjA, subjB},
		Theta0:    theta0,
		Bounds:    bounds,
		Model:     defaultModel(),
		MaxCycles: 20,
		StopPath:  filepath.Join(t.TempDir(), "stop"),
	})
	assert.NoError(err)
	assert.NotNil(res)
	assert.True(res.W.Len() >= 1)

	sum := 0.0
	for i := 0; i < res.W.Len(); i++ {
		sum += res.W.AtVec(i)
	}
	assert.InDelta(1.0, sum, 1e-6)

	// Sum the weight carried by every support point within a fixed scaled
	// distance of each true mode separately (same distance metric as
	// TestFitRecoversSingleSubjectParameters), rather than just the
	// single closest point, since mass can legitimately spread across a
	// few neighboring grid points around a mode.
	const radius = 0.05 // scaled distance: (dke)^2 + (dV/50)^2 < radius
	weightNearA, weightNearB := 0.0, 0.0
	rows, _ := res.Theta.Dims()
	for i := 0; i < rows; i++ {
		ke := res.Theta.At(i, 0)
		v := res.Theta.At(i, 1)
		dA := (ke-0.05)*(ke-0.05) + (v-40)*(v-40)/2500
		dB := (ke-0.4)*(ke-0.4) + (v-80)*(v-80)/2500
		if dA < radius {
			weightNearA += res.W.AtVec(i)
		}
		if dB < radius {
			weightNearB += res.W.AtVec(i)
		}
	}
	assert.True(weightNearA > 0.3, "support near the first true mode (ke=0.05, V=40) should carry substantial weight, got %v", weightNearA)
	assert.True(weightNearB > 0.3, "support near the second true mode (ke=0.4, V=80) should carry substantial weight, got %v", weightNearB)
}

// TestFitInvariants checks the structural invariants that must hold for
// any successful Fit result, independent of numerical recovery quality:
// matching dimensions, non-negative weights summing to one, and bounds
// respected by every retained support point.
func TestFitInvariants(t *testing.T) {
	assert := assert.New(t)

	const dose = 500.0
	times := []float64{1, 4, 12}
	obs := []float64{trueConcentration(dose, 0.2, 60, 1), trueConcentration(dose, 0.2, 60, 4), trueConcentration(dose, 0.2, 60, 12)}
	subj := observationScenario(t, "001", dose, times, obs)

	bounds := defaultBounds()
	theta0 := sobol.InitialGrid(9, bounds, 7)

	res, err := driver.Fit(context.Background(), driver.Options{
		Predictor: oneCompartmentIVBolus{dose: dose},
		Scenarios: []*scenario.Scenario{subj},
		Theta0:    theta0,
		Bounds:    bounds,
		Model:     defaultModel(),
		MaxCycles: 10,
		StopPath:  filepath.Join(t.TempDir(), "stop"),
	})
	assert.NoError(err)

	rows, _ := res.Theta.Dims()
	psiRows, psiCols := res.Psi.Dims()
	assert.Equal(rows, psiCols)
	assert.Equal(1, psiRows)
	assert.Equal(rows, res.W.Len())

	sum := 0.0
	for i := 0; i < res.W.Len(); i++ {
		w := res.W.AtVec(i)
		assert.True(w >= 0, "weights must be non-negative")
		sum += w
	}
	assert.InDelta(1.0, sum, 1e-6)

	for i := 0; i < rows; i++ {
		ke := res.Theta.At(i, 0)
		v := res.Theta.At(i, 1)
		assert.True(ke >= bounds[0].Low && ke <= bounds[0].High)
		assert.True(v >= bounds[1].Low && v <= bounds[1].High)
	}
}
