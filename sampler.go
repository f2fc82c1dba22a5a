package bayesopt

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/samplemv"
)

// InitialSamples produces the starting design: n points inside axes.
//
// Strategies:
// - SamplerRandom: independent uniform draws per axis
// - SamplerLatinHypercube: exactly one point per 1/n stratum on every axis
// - SamplerSobol: deterministic Sobol sequence; n must be a power of two
// - SamplerHalton: Owen-scrambled Halton sequence, any n
//
// Unrecognized strategies fall back to SamplerRandom.
//
// Errors:
// - ErrSampleCount for n < 1, or a Sobol n that is not a power of two.
// The Sobol count is never rounded or truncated.
// - ErrSampleDimensions for Sobol above maxSobolDimensions axes.
func InitialSamples(strategy SamplerStrategy, n int, axes []Interval, rng *rand.Rand) ([][]float64, error) {
	if len(axes) < 1 {
		return nil, ErrInvalidDimensions
	}

	strategy, _ = strategy.resolve()
	if err := validateSampleCount(strategy, n, len(axes)); err != nil {
		return nil, err
	}

	d := len(axes)

	var unit [][]float64

	switch strategy {
	case SamplerSobol:
		unit = sobolPoints(n, d)
	case SamplerLatinHypercube:
		batch := mat.NewDense(n, d, nil)
		samplemv.LatinHypercube{Q: distmv.NewUnitUniform(d, rng), Src: rng}.Sample(batch)
		unit = denseRows(batch)
	case SamplerHalton:
		batch := mat.NewDense(n, d, nil)
		samplemv.Halton{Kind: samplemv.Owen, Q: distmv.NewUnitUniform(d, rng), Src: rng}.Sample(batch)
		unit = denseRows(batch)
	default:
		unit = make([][]float64, n)
		for i := range unit {
			p := make([]float64, d)
			for j := range p {
				p[j] = rng.Float64()
			}

			unit[i] = p
		}
	}

	for _, p := range unit {
		for j := range p {
			p[j] = axes[j].scale(p[j])
		}
	}

	return unit, nil
}

// validateSampleCount checks n against the resolved strategy.
func validateSampleCount(strategy SamplerStrategy, n, d int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrSampleCount, n)
	}

	if strategy != SamplerSobol {
		return nil
	}

	if !isPowerOfTwo(n) {
		return fmt.Errorf("%w: sobol requires a power of two, got %d", ErrSampleCount, n)
	}

	if d > maxSobolDimensions {
		return fmt.Errorf("%w: %d > %d", ErrSampleDimensions, d, maxSobolDimensions)
	}

	return nil
}

func denseRows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()

	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = append([]float64(nil), m.RawRowView(i)...)
	}

	return rows
}
