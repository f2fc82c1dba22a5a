package bayesopt

import (
	"fmt"
	"math"
)

// MaxGridPoints caps resolution^D.
const MaxGridPoints = 1 << 22

// Grid is the immutable candidate set: the Cartesian product of evenly
// spaced points along every axis. The last axis varies fastest.
type Grid struct {
	axes       []Interval
	resolution int
	points     [][]float64
}

// NewGrid builds the candidate grid over axes with resolution points per
// axis, both bounds included. A resolution of 1 places the single point at
// the midpoint of each axis.
//
// Example:
//
//	g, _ := NewGrid([]Interval{{-1, 1}, {0, 1}}, 3)
//	g.Point(0) // [-1 0]
//	g.Point(1) // [-1 0.5]
//	g.Point(3) // [0 0]
func NewGrid(axes []Interval, resolution int) (*Grid, error) {
	size, err := gridSize(len(axes), resolution)
	if err != nil {
		return nil, err
	}

	for i, a := range axes {
		if err := a.validate(); err != nil {
			return nil, fmt.Errorf("axis %d: %w", i, err)
		}
	}

	d := len(axes)

	values := make([][]float64, d)
	for i, a := range axes {
		values[i] = linspace(a, resolution)
	}

	// One backing array; each point is a window into it.
	backing := make([]float64, size*d)
	points := make([][]float64, size)

	for idx := range points {
		p := backing[idx*d : (idx+1)*d : (idx+1)*d]

		rem := idx
		for axis := d - 1; axis >= 0; axis-- {
			p[axis] = values[axis][rem%resolution]
			rem /= resolution
		}

		points[idx] = p
	}

	return &Grid{
		axes:       append([]Interval(nil), axes...),
		resolution: resolution,
		points:     points,
	}, nil
}

// Len returns the number of candidate points.
func (g *Grid) Len() int { return len(g.points) }

// Dimensions returns D.
func (g *Grid) Dimensions() int { return len(g.axes) }

// Resolution returns the number of points per axis.
func (g *Grid) Resolution() int { return g.resolution }

// Axes returns a copy of the per-axis bounds.
func (g *Grid) Axes() []Interval { return append([]Interval(nil), g.axes...) }

// Point returns a copy of the i-th candidate.
func (g *Grid) Point(i int) []float64 {
	return append([]float64(nil), g.points[i]...)
}

// Points returns the shared candidate slice. Callers must not modify it.
func (g *Grid) Points() [][]float64 { return g.points }

// gridSize returns resolution^d, or an error if it is invalid or exceeds
// MaxGridPoints.
func gridSize(d, resolution int) (int, error) {
	if d < 1 {
		return 0, ErrInvalidDimensions
	}

	if resolution < 1 {
		return 0, ErrInvalidResolution
	}

	size := 1
	for i := 0; i < d; i++ {
		if size > MaxGridPoints/resolution {
			return 0, fmt.Errorf("%w: %d^%d > %d", ErrGridTooLarge, resolution, d, MaxGridPoints)
		}

		size *= resolution
	}

	return size, nil
}

func linspace(a Interval, n int) []float64 {
	if n == 1 {
		return []float64{a.Min + (a.Max-a.Min)/2}
	}

	out := make([]float64, n)
	step := (a.Max - a.Min) / float64(n-1)

	for i := range out {
		out[i] = a.Min + float64(i)*step
	}

	// Pin the upper bound against accumulated rounding.
	out[n-1] = a.Max

	return out
}

func (a Interval) validate() error {
	if math.IsNaN(a.Min) || math.IsNaN(a.Max) || math.IsInf(a.Min, 0) || math.IsInf(a.Max, 0) || a.Min > a.Max {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidInterval, a.Min, a.Max)
	}

	return nil
}

// scale maps u in [0, 1] onto the interval.
func (a Interval) scale(u float64) float64 {
	return a.Min + u*(a.Max-a.Min)
}

func replicate(a Interval, d int) []Interval {
	axes := make([]Interval, d)
	for i := range axes {
		axes[i] = a
	}

	return axes
}
