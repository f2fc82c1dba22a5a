package bayesopt

import (
	"errors"
	"fmt"
)

//////
// Sentinel errors.
//////

var (
	// ErrInvalidDimensions is returned when the search space has no axes.
	ErrInvalidDimensions = errors.New("dimensions must be at least 1")

	// ErrInvalidResolution is returned when a grid axis would have no points.
	ErrInvalidResolution = errors.New("grid resolution must be at least 1")

	// ErrInvalidInterval is returned for non-finite bounds or Min > Max.
	ErrInvalidInterval = errors.New("interval bounds must be finite with min <= max")

	// ErrGridTooLarge is returned when resolution^D exceeds MaxGridPoints.
	ErrGridTooLarge = errors.New("candidate grid exceeds maximum size")

	// ErrSampleCount is returned when the initial design size is incompatible
	// with the requested strategy (n < 1, or a Sobol count that is not a
	// power of two).
	ErrSampleCount = errors.New("invalid initial sample count")

	// ErrSampleDimensions is returned when Sobol is asked for more axes than
	// its direction-number table covers.
	ErrSampleDimensions = errors.New("too many dimensions for sobol sequence")

	// ErrInvalidBatch is returned for a batch size below 1.
	ErrInvalidBatch = errors.New("batch size must be at least 1")

	// ErrBatchTooLarge is returned when the batch size exceeds the number of
	// candidate points.
	ErrBatchTooLarge = errors.New("batch size exceeds candidate grid size")

	// ErrInvalidIterations is returned for a negative iteration budget.
	ErrInvalidIterations = errors.New("iterations must be non-negative")

	// ErrInvalidHyperparameter is returned for out-of-range surrogate or
	// acquisition parameters.
	ErrInvalidHyperparameter = errors.New("invalid hyperparameter")

	// ErrNilObjective is returned by New without an objective.
	ErrNilObjective = errors.New("objective evaluator is required")

	// ErrNilRandomState is returned when a stochastic acquisition or
	// surrogate has no generator to draw from.
	ErrNilRandomState = errors.New("random state is required")

	// ErrNotFitted is returned by Predict before the first successful Fit.
	ErrNotFitted = errors.New("surrogate has not been fitted")

	// ErrEmptySamples is returned when a fit or an improvement-based score
	// has no observations to work from.
	ErrEmptySamples = errors.New("no observations")

	// ErrLengthMismatch is returned when parallel slices disagree in length.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrNonFinite is returned for NaN or infinite inputs or outputs.
	ErrNonFinite = errors.New("non-finite value")

	// ErrIllConditioned is returned when the covariance matrix cannot be
	// factorized.
	ErrIllConditioned = errors.New("covariance matrix is not positive definite")

	// ErrBudgetExhausted is returned by Step once every iteration has run.
	ErrBudgetExhausted = errors.New("iteration budget exhausted")
)

//////
// Typed errors.
//////

// ConfigError reports a configuration field that was rejected before any
// evaluation of the objective took place.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("bayesopt: invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FitError reports a surrogate that failed to fit. It terminates the run.
type FitError struct {
	Model SurrogateKind
	Err   error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("bayesopt: %s fit failed: %v", e.Model, e.Err)
}

func (e *FitError) Unwrap() error { return e.Err }

// EvaluationError reports a failure of the objective, or objective output
// that cannot be appended to the sample set.
type EvaluationError struct {
	Err error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("bayesopt: objective evaluation failed: %v", e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

func configError(field string, err error) error {
	return &ConfigError{Field: field, Err: err}
}
