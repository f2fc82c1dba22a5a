package bayesopt

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

//////
// Available acquisition functions for Bayesian optimization.
// Each function helps decide which points to evaluate next by balancing
// exploration (trying new areas) and exploitation (focusing on known good
// areas). All of them maximize: higher scores are more promising.
//////

// UCB implements the Upper Confidence Bound acquisition function.
//
// How it works:
// - Adds a multiple of the uncertainty to the predicted mean
// - The Beta parameter controls the trade-off between exploration and exploitation
// - Non-decreasing in stddev for Beta >= 0
//
// Example:
//
//	params := AcquisitionParams{
//	    Beta: 2.0,  // Balance between exploration and exploitation
//	}
//	value := UCB(0.5, 0.2, params)  // 0.9
func UCB(mean, stddev float64, params AcquisitionParams) float64 {
	return mean + params.Beta*stddev
}

// ProbabilityOfImprovement (PI) calculates the probability that a point will
// improve upon the current best observed value by at least Xi.
//
// A point with stddev == 0 scores exactly 0. This matches the guard in
// ExpectedImprovement; the division is never attempted.
//
// Example:
//
//	params := AcquisitionParams{
//	    BestSoFar: 1.0,
//	    Xi: 0.01,
//	}
//	prob := ProbabilityOfImprovement(1.2, 0.2, params)
func ProbabilityOfImprovement(mean, stddev float64, params AcquisitionParams) float64 {
	if stddev == 0 {
		return 0
	}

	z := (mean - params.BestSoFar - params.Xi) / stddev

	return normalCDF(z)
}

// ExpectedImprovement (EI) calculates the expected value of the improvement
// over the current best value.
//
// How it works:
// - improvement = mean - BestSoFar - Xi
// - EI = improvement * Phi(improvement/stddev) + stddev * phi(improvement/stddev)
// - A point with stddev == 0 scores exactly 0
//
// Example:
//
//	params := AcquisitionParams{
//	    BestSoFar: 1.0,
//	    Xi: 0.01,
//	}
//	expected := ExpectedImprovement(1.2, 0.2, params)
func ExpectedImprovement(mean, stddev float64, params AcquisitionParams) float64 {
	if stddev == 0 {
		return 0
	}

	improvement := mean - params.BestSoFar - params.Xi
	z := improvement / stddev

	return improvement*normalCDF(z) + stddev*normalPDF(z)
}

// ThompsonSampling draws one sample from Normal(mean, stddev).
//
// Warning:
// - params.RandomState must be set
// - Exactly one normal draw is consumed per call, even when stddev == 0
func ThompsonSampling(mean, stddev float64, params AcquisitionParams) float64 {
	return distuv.Normal{Mu: mean, Sigma: stddev, Src: params.RandomState}.Rand()
}

// RandomScore ignores the prediction and returns a uniform draw in [0, 1).
// It is a baseline.
func RandomScore(_, _ float64, params AcquisitionParams) float64 {
	return params.RandomState.Float64()
}

// Func returns the per-point function for k. Unrecognized kinds return UCB.
func (k AcquisitionKind) Func() AcquisitionFunc {
	resolved, _ := k.resolve()

	switch resolved {
	case AcquisitionEI:
		return ExpectedImprovement
	case AcquisitionPI:
		return ProbabilityOfImprovement
	case AcquisitionThompson:
		return ThompsonSampling
	case AcquisitionRandom:
		return RandomScore
	default:
		return UCB
	}
}

// Score evaluates strategy at every candidate.
//
// Parameters:
// - strategy: acquisition tag; unrecognized tags score with UCB
// - mean, stddev: prediction pair, one entry per candidate
// - observed: every output observed so far; EI and PI take BestSoFar from
// its maximum, overriding params.BestSoFar
// - params: Beta, Xi and, for Thompson and random, RandomState
//
// Returns one score per candidate, in candidate order. Draws of the
// stochastic strategies are made in candidate order.
func Score(strategy AcquisitionKind, mean, stddev, observed []float64, params AcquisitionParams) ([]float64, error) {
	if len(mean) != len(stddev) {
		return nil, ErrLengthMismatch
	}

	strategy, _ = strategy.resolve()

	switch strategy {
	case AcquisitionEI, AcquisitionPI:
		if len(observed) == 0 {
			return nil, ErrEmptySamples
		}

		params.BestSoFar = floats.Max(observed)
	case AcquisitionThompson, AcquisitionRandom:
		if params.RandomState == nil {
			return nil, ErrNilRandomState
		}
	}

	fn := strategy.Func()

	scores := make([]float64, len(mean))
	for i := range mean {
		scores[i] = fn(mean[i], stddev[i], params)
	}

	return scores, nil
}
