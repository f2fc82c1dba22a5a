package bayesopt

import (
	"math"
	"slices"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

//////
// Helper functions.
//////

// Helper function used by PI and EI to compute the cumulative distribution
// function of the standard normal distribution.
//
// Returns:
// - Probability that a standard normal random variable is less than x.
func normalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// Helper function used by EI to compute the probability density function
// of the standard normal distribution.
//
// Returns:
// - Value of the standard normal PDF at x.
func normalPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// descending orders a before b when a is larger. NaN sorts after every
// number.
func descending[T constraints.Float](a, b T) int {
	aNaN, bNaN := math.IsNaN(float64(a)), math.IsNaN(float64(b))

	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a > b:
		return -1
	case a < b:
		return 1
	}

	return 0
}

func isPowerOfTwo[T constraints.Integer](n T) bool {
	return n > 0 && n&(n-1) == 0
}

// standardization holds the shift and scale of a per-fit z-score transform.
// A zero-spread column gets scale 1 so it maps to 0 rather than NaN.
type standardization struct {
	mean  float64
	scale float64
}

func standardizationOf(values []float64) standardization {
	mean, std := stat.PopMeanStdDev(values, nil)
	if !(std > 1e-12) {
		std = 1
	}

	return standardization{mean: mean, scale: std}
}

func (s standardization) apply(v float64) float64 { return (v - s.mean) / s.scale }

func (s standardization) invert(v float64) float64 { return v*s.scale + s.mean }

// columnStandardizations computes one standardization per input axis.
func columnStandardizations(inputs [][]float64) []standardization {
	d := len(inputs[0])
	col := make([]float64, len(inputs))
	out := make([]standardization, d)

	for j := range out {
		for i, x := range inputs {
			col[i] = x[j]
		}

		out[j] = standardizationOf(col)
	}

	return out
}

// popMeanStdDev returns the ensemble mean and population standard deviation,
// clamped non-negative. Identical members give exactly (value, 0).
func popMeanStdDev(values []float64) (mean, std float64) {
	if slices.IndexFunc(values, func(v float64) bool { return v != values[0] }) < 0 {
		return values[0], 0
	}

	mean, std = stat.PopMeanStdDev(values, nil)
	if !(std > 0) {
		std = 0
	}

	return mean, std
}

func clonePoints(points [][]float64) [][]float64 {
	out := make([][]float64, len(points))
	for i, p := range points {
		out[i] = append([]float64(nil), p...)
	}

	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// validateSamples checks the shape and finiteness of a training set.
func validateSamples(inputs [][]float64, outputs []float64) error {
	if len(inputs) == 0 {
		return ErrEmptySamples
	}

	if len(inputs) != len(outputs) {
		return ErrLengthMismatch
	}

	d := len(inputs[0])
	if d == 0 {
		return ErrInvalidDimensions
	}

	for i, x := range inputs {
		if len(x) != d {
			return ErrLengthMismatch
		}

		for _, v := range x {
			if !isFinite(v) {
				return ErrNonFinite
			}
		}

		if !isFinite(outputs[i]) {
			return ErrNonFinite
		}
	}

	return nil
}
