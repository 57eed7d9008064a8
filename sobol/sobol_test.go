package sobol

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/npag-go/npag/grid"
)

func TestSequenceIsDeterministic(t *testing.T) {
	assert := assert.New(t)

	a := New(3, 42)
	b := New(3, 42)

	for i := 0; i < 10; i++ {
		pa := a.Next()
		pb := b.Next()
		assert.Equal(pa, pb)
	}
}

func TestSequenceStaysInUnitBox(t *testing.T) {
	assert := assert.New(t)

	s := New(4, 0)
	for i := 0; i < 200; i++ {
		p := s.Next()
		for _, v := range p {
			assert.GreaterOrEqual(v, 0.0)
			assert.Less(v, 1.0)
		}
	}
}

func TestSequenceRoughEquidistribution(t *testing.T) {
	assert := assert.New(t)

	s := New(1, 7)
	lower := 0
	n := 1000
	for i := 0; i < n; i++ {
		if s.Next()[0] < 0.5 {
			lower++
		}
	}
	// A well-distributed 1-D sequence should land close to a 50/50 split.
	assert.InDelta(0.5, float64(lower)/float64(n), 0.05)
}

func TestInitialGridRespectsBounds(t *testing.T) {
	assert := assert.New(t)

	bounds := []grid.Range{{Low: 0.01, High: 1.0}, {Low: 10, High: 100}}
	theta := InitialGrid(50, bounds, 347)

	rows, cols := theta.Dims()
	assert.Equal(50, rows)
	assert.Equal(2, cols)

	for i := 0; i < rows; i++ {
		assert.GreaterOrEqual(theta.At(i, 0), 0.01)
		assert.Less(theta.At(i, 0), 1.0)
		assert.GreaterOrEqual(theta.At(i, 1), 10.0)
		assert.Less(theta.At(i, 1), 100.0)
	}
}
