package bayesopt

import (
	"math/rand/v2"

	"go.uber.org/zap"
)

// Surrogate is a cheap statistical model of the objective.
//
// Contract:
// - Fit discards any previous state and trains on the complete sample set
// - Predict returns one mean and one standard deviation per point
// - Every returned standard deviation is >= 0; exactly 0 is valid
// - Predict before a successful Fit returns ErrNotFitted
// - Predict on a point of the wrong dimension returns ErrLengthMismatch
//
// Implementations are owned by a single optimizer and need not be safe for
// concurrent use.
type Surrogate interface {
	Fit(inputs [][]float64, outputs []float64) error
	Predict(points [][]float64) (mean, stddev []float64, err error)
}

// NewSurrogate builds the backend selected by cfg.Kind. Unrecognized kinds
// build a Gaussian process. rng supplies every random draw of the stochastic
// backends; the caller keeps ownership of it. It may be nil only for a
// Gaussian process.
func NewSurrogate(cfg SurrogateConfig, rng *rand.Rand, logger *zap.Logger) (Surrogate, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	kind, _ := cfg.Kind.resolve()

	cfg = cfg.withDefaults()
	if err := cfg.validate(kind); err != nil {
		return nil, err
	}

	if kind != SurrogateGP && rng == nil {
		return nil, configError("surrogate.kind", ErrNilRandomState)
	}

	logger = logger.Named(string(kind))

	switch kind {
	case SurrogateForest:
		return newRandomForest(cfg, rng, logger), nil
	case SurrogateMCDropout:
		return newMCDropoutNetwork(cfg, rng, logger), nil
	default:
		return newGaussianProcess(cfg, logger), nil
	}
}

// withDefaults fills zero-valued hyperparameters.
func (c SurrogateConfig) withDefaults() SurrogateConfig {
	c.Kind, _ = c.Kind.resolve()
	c.Kernel, _ = c.Kernel.resolve()

	if c.LengthScale == 0 {
		c.LengthScale = 1
	}

	if c.SignalVariance == 0 {
		c.SignalVariance = 1
	}

	if c.Alpha == 0 {
		c.Alpha = 1
	}

	if c.Trees == 0 {
		c.Trees = 100
	}

	if c.MinLeafSize == 0 {
		c.MinLeafSize = 1
	}

	if c.Hidden == 0 {
		c.Hidden = 64
	}

	switch {
	case c.DropoutRate == 0:
		c.DropoutRate = 0.1
	case c.DropoutRate < 0:
		c.DropoutRate = 0
	}

	if c.LearningRate == 0 {
		c.LearningRate = 0.01
	}

	if c.Epochs == 0 {
		c.Epochs = 300
	}

	if c.Passes == 0 {
		c.Passes = 10
	}

	return c
}

// validate rejects out-of-range hyperparameters of the selected kind.
func (c SurrogateConfig) validate(kind SurrogateKind) error {
	switch kind {
	case SurrogateForest:
		switch {
		case c.Trees < 1:
			return configError("surrogate.trees", ErrInvalidHyperparameter)
		case c.MinLeafSize < 1:
			return configError("surrogate.min_leaf_size", ErrInvalidHyperparameter)
		case c.MaxDepth < 0:
			return configError("surrogate.max_depth", ErrInvalidHyperparameter)
		case c.MaxFeatures < 0:
			return configError("surrogate.max_features", ErrInvalidHyperparameter)
		}
	case SurrogateMCDropout:
		switch {
		case c.Hidden < 1:
			return configError("surrogate.hidden", ErrInvalidHyperparameter)
		case c.DropoutRate >= 1:
			return configError("surrogate.dropout_rate", ErrInvalidHyperparameter)
		case !(c.LearningRate > 0):
			return configError("surrogate.learning_rate", ErrInvalidHyperparameter)
		case c.Epochs < 1:
			return configError("surrogate.epochs", ErrInvalidHyperparameter)
		case c.Passes < 1:
			return configError("surrogate.passes", ErrInvalidHyperparameter)
		}
	default:
		switch {
		case !(c.LengthScale > 0) || !isFinite(c.LengthScale):
			return configError("surrogate.length_scale", ErrInvalidHyperparameter)
		case !(c.SignalVariance > 0) || !isFinite(c.SignalVariance):
			return configError("surrogate.signal_variance", ErrInvalidHyperparameter)
		case !(c.Alpha > 0):
			return configError("surrogate.alpha", ErrInvalidHyperparameter)
		case c.Noise < 0 || !isFinite(c.Noise):
			return configError("surrogate.noise", ErrInvalidHyperparameter)
		}
	}

	return nil
}
