package gauss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestSampleIsDeterministicGivenSeed(t *testing.T) {
	assert := assert.New(t)

	a := NewGenerator(7)
	b := NewGenerator(7)

	sigma := []float64{0.1, 0.2, 0.05}
	assert.Equal(a.Sample(sigma), b.Sample(sigma))
}

func TestSampleLengthMatchesSigma(t *testing.T) {
	assert := assert.New(t)

	g := NewGenerator(1)
	out := g.Sample([]float64{0.1, 0.1, 0.1, 0.1})
	assert.Len(out, 4)
}

func TestSampleCorrelatedMatchesCovDims(t *testing.T) {
	assert := assert.New(t)

	g := NewGenerator(3)
	cov := mat.NewDiagDense(3, []float64{0.01, 0.04, 0.09})

	out, err := g.SampleCorrelated(cov)
	assert.NoError(err)
	assert.Len(out, 3)
}
