package bayesopt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrid1D(t *testing.T) {
	g, err := NewGrid([]Interval{SymmetricInterval(2)}, 50)
	require.NoError(t, err)

	assert.Equal(t, 50, g.Len())
	assert.Equal(t, 1, g.Dimensions())

	// Both bounds are candidates.
	assert.Equal(t, []float64{-2}, g.Point(0))
	assert.Equal(t, []float64{2}, g.Point(49))

	for i := 1; i < g.Len(); i++ {
		assert.Greater(t, g.Point(i)[0], g.Point(i-1)[0])
	}
}

func TestNewGridLastAxisFastest(t *testing.T) {
	g, err := NewGrid([]Interval{{Min: -1, Max: 1}, {Min: 0, Max: 1}}, 3)
	require.NoError(t, err)

	assert.Equal(t, 9, g.Len())
	assert.Equal(t, []float64{-1, 0}, g.Point(0))
	assert.Equal(t, []float64{-1, 0.5}, g.Point(1))
	assert.Equal(t, []float64{-1, 1}, g.Point(2))
	assert.Equal(t, []float64{0, 0}, g.Point(3))
	assert.Equal(t, []float64{1, 1}, g.Point(8))
}

func TestNewGridSinglePointIsMidpoint(t *testing.T) {
	g, err := NewGrid([]Interval{{Min: 0, Max: 4}, {Min: -2, Max: 2}}, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, g.Len())
	assert.Equal(t, []float64{2, 0}, g.Point(0))
}

func TestGridPointIsACopy(t *testing.T) {
	g, err := NewGrid([]Interval{SymmetricInterval(1)}, 5)
	require.NoError(t, err)

	p := g.Point(0)
	p[0] = 42

	assert.Equal(t, -1.0, g.Points()[0][0])
}

func TestNewGridErrors(t *testing.T) {
	_, err := NewGrid(nil, 5)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = NewGrid([]Interval{SymmetricInterval(1)}, 0)
	assert.ErrorIs(t, err, ErrInvalidResolution)

	_, err = NewGrid([]Interval{{Min: 1, Max: -1}}, 5)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewGrid(replicate(SymmetricInterval(1), 3), 1000)
	assert.ErrorIs(t, err, ErrGridTooLarge)
}
