package sigma

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSigmaProportional(t *testing.T) {
	assert := assert.New(t)

	m := Model{
		Poly:  Polynomial{C0: 0.1, C1: 0, C2: 0, C3: 0},
		Class: Proportional,
		Gamma: 2.0,
	}

	s, err := m.Sigma([]float64{1, 2, 3})
	assert.NoError(err)
	assert.Equal([]float64{0.2, 0.2, 0.2}, s)
}

func TestSigmaAdditive(t *testing.T) {
	assert := assert.New(t)

	m := Model{
		Poly:  Polynomial{C0: 0.1},
		Class: Additive,
		Gamma: 0.5,
	}

	s, err := m.Sigma([]float64{1})
	assert.NoError(err)
	assert.InDelta(0.6, s[0], 1e-12)
}

func TestSigmaNonPositiveIsFatal(t *testing.T) {
	m := Model{
		Poly:  Polynomial{C0: -1},
		Class: Additive,
		Gamma: 0,
	}

	_, err := m.Sigma([]float64{1})
	assert.Error(t, err)

	var target *ErrNonPositiveSigma
	assert.ErrorAs(t, err, &target)
}

func TestParseClass(t *testing.T) {
	assert := assert.New(t)

	c, err := ParseClass("additive")
	assert.NoError(err)
	assert.Equal(Additive, c)

	c, err = ParseClass("proportional")
	assert.NoError(err)
	assert.Equal(Proportional, c)

	_, err = ParseClass("bogus")
	assert.Error(err)
}

func TestWithGamma(t *testing.T) {
	m := Model{Gamma: 1.0}
	m2 := m.WithGamma(2.0)
	assert.Equal(t, 1.0, m.Gamma)
	assert.Equal(t, 2.0, m2.Gamma)
}
