package psi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/npag-go/npag/predict"
	"github.com/npag-go/npag/scenario"
	"github.com/npag-go/npag/sigma"
)

func mustScenario(t *testing.T, id string, obs []float64) *scenario.Scenario {
	t.Helper()
	times := make([]float64, len(obs))
	events := make([]scenario.Event, len(obs))
	for i := range obs {
		times[i] = float64(i + 1)
		events[i] = scenario.Event{Time: times[i], Kind: scenario.Observation}
	}
	s, err := scenario.New(id, events, obs, times, nil)
	assert.NoError(t, err)
	return s
}

func TestBuildExactMatchIsPeakLikelihood(t *testing.T) {
	s := mustScenario(t, "s1", []float64{1.0})
	tensor := predict.Tensor{{{1.0}}}
	model := sigma.Model{Poly: sigma.Polynomial{C0: 0.1}, Class: sigma.Additive, Gamma: 0}

	out, err := Build(tensor, []*scenario.Scenario{s}, model, Options{})
	assert.NoError(t, err)

	want := 1.0 / (math.Sqrt(2*math.Pi) * 0.1)
	assert.InDelta(t, want, out.At(0, 0), 1e-9)
}

func TestBuildNaNNeutralizedToZero(t *testing.T) {
	s := mustScenario(t, "s1", []float64{1.0})
	tensor := predict.Tensor{{{math.NaN()}}}
	model := sigma.Model{Poly: sigma.Polynomial{C0: 0.1}, Class: sigma.Additive, Gamma: 0}

	out, err := Build(tensor, []*scenario.Scenario{s}, model, Options{})
	assert.NoError(t, err)
	assert.Equal(t, 0.0, out.At(0, 0))
}

func TestBuildNonPositiveSigmaIsFatal(t *testing.T) {
	s := mustScenario(t, "s1", []float64{1.0})
	tensor := predict.Tensor{{{1.0}}}
	model := sigma.Model{Poly: sigma.Polynomial{C0: -10}, Class: sigma.Additive, Gamma: 0}

	_, err := Build(tensor, []*scenario.Scenario{s}, model, Options{})
	assert.Error(t, err)
}

func TestBuildMultipleSubjectsAndPoints(t *testing.T) {
	s1 := mustScenario(t, "s1", []float64{1.0, 2.0})
	s2 := mustScenario(t, "s2", []float64{0.5})

	tensor := predict.Tensor{
		{{1.0, 2.0}, {0.0, 0.0}},
		{{0.5}, {10.0}},
	}
	model := sigma.Model{Poly: sigma.Polynomial{C0: 0.1}, Class: sigma.Additive, Gamma: 0}

	out, err := Build(tensor, []*scenario.Scenario{s1, s2}, model, Options{})
	assert.NoError(t, err)

	rows, cols := out.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Greater(t, out.At(0, 0), out.At(0, 1))
	assert.Greater(t, out.At(1, 0), out.At(1, 1))
}
