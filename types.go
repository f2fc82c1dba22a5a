package bayesopt

import (
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"
)

// ProgressUpdate represents the current state of the optimization process.
type ProgressUpdate struct {
	// Phase is "InitialSampling" or "Optimization".
	Phase string

	// CurrentIteration is the current iteration number (1-based within the
	// phase).
	CurrentIteration int

	// TotalIterations is the total number of steps in the phase.
	TotalIterations int

	// CurrentParams holds the points evaluated in this step.
	CurrentParams [][]float64

	// CurrentOutputs holds the objective values for CurrentParams, in the
	// same order.
	CurrentOutputs []float64

	// Selected holds the grid indices of CurrentParams. Empty during initial
	// sampling.
	Selected []int

	// CurrentBestParams holds the best point observed so far.
	CurrentBestParams []float64

	// CurrentBestValue holds the best (highest) objective value observed so
	// far.
	CurrentBestValue float64

	// SampleCount is the size of the sample set after this step.
	SampleCount int
}

// Interval defines the valid range of one axis of the search space.
//
// Fields:
// - Min: The minimum (inclusive) value
// - Max: The maximum (inclusive) value
//
// Usage:
//
//	// Symmetric domain used by DefaultConfig.
//	domain := SymmetricInterval(2) // [-2, 2]
//
//	// Arbitrary domain.
//	learningRate := Interval{Min: 0.0001, Max: 0.1}
//
// Validation:
// - Min must be less than or equal to Max
// - Both bounds must be finite
type Interval struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// SymmetricInterval returns [-bound, bound].
func SymmetricInterval(bound float64) Interval {
	return Interval{Min: -bound, Max: bound}
}

// Samples holds the observations of the true objective. Inputs and Outputs
// are parallel and always have the same length; (Inputs[i], Outputs[i]) is
// one evaluation.
type Samples struct {
	Inputs  [][]float64
	Outputs []float64
}

// AcquisitionFunc defines the signature for per-point acquisition functions.
// These functions help decide which points in the candidate grid should be
// evaluated next.
//
// Parameters:
// - mean: The predicted mean of the objective at a point (higher is better)
// - stddev: The predicted standard deviation at that point (>= 0)
// - params: Additional parameters needed by specific acquisition functions
//
// Returns:
// - float64: Acquisition value (higher values indicate more promising points)
//
// Built-in acquisition functions:
// - UCB: Upper Confidence Bound
// - ProbabilityOfImprovement: Probability of finding a better value
// - ExpectedImprovement: Expected magnitude of improvement
// - ThompsonSampling: Random draw from the posterior
// - RandomScore: Uniform baseline
//
// Implementation notes for custom acquisition functions:
// - Must handle stddev == 0, which is a valid prediction
// - Must return higher values for more promising points
type AcquisitionFunc func(mean, stddev float64, params AcquisitionParams) float64

// AcquisitionParams holds parameters used by the acquisition functions to
// balance between exploring new areas (exploration) and focusing on areas
// known to be good (exploitation).
type AcquisitionParams struct {
	// Beta controls the exploration-exploitation trade-off in the Upper
	// Confidence Bound (UCB) acquisition function.
	// - Higher values (e.g., 3.0 or 5.0) encourage more exploration of uncertain areas
	// - Lower values (e.g., 0.1 or 0.5) focus more on exploiting known good areas
	// Typical values range from 0.1 to 5.0, with 2.0 being a good default.
	Beta float64 `json:"beta"`

	// Xi (Greek letter ξ) is the margin used by Probability of Improvement
	// (PI) and Expected Improvement (EI). It controls how much improvement
	// over the current best observation is required.
	// Typical values range from 0.0 to 0.1.
	Xi float64 `json:"xi"`

	// BestSoFar is the highest observed output. Score derives it from the
	// observation history; callers of the per-point functions set it
	// themselves.
	BestSoFar float64 `json:"-"`

	// RandomState is the generator used by ThompsonSampling and RandomScore.
	// The optimizer always overwrites it with the run generator.
	RandomState *rand.Rand `json:"-"`
}

//////
// Strategy tags.
//////

// AcquisitionKind names a built-in acquisition strategy.
type AcquisitionKind string

const (
	AcquisitionUCB      AcquisitionKind = "ucb"
	AcquisitionEI       AcquisitionKind = "ei"
	AcquisitionPI       AcquisitionKind = "pi"
	AcquisitionThompson AcquisitionKind = "thompson"
	AcquisitionRandom   AcquisitionKind = "random"
)

// resolve returns the canonical tag, falling back to UCB. ok reports
// whether k was recognized.
func (k AcquisitionKind) resolve() (resolved AcquisitionKind, ok bool) {
	switch c := AcquisitionKind(normalizeTag(string(k))); c {
	case AcquisitionUCB, AcquisitionEI, AcquisitionPI, AcquisitionThompson, AcquisitionRandom:
		return c, true
	}

	return AcquisitionUCB, false
}

// SamplerStrategy names an initial design strategy.
type SamplerStrategy string

const (
	SamplerRandom         SamplerStrategy = "random"
	SamplerLatinHypercube SamplerStrategy = "lhs"
	SamplerSobol          SamplerStrategy = "sobol"
	SamplerHalton         SamplerStrategy = "halton"
)

// resolve returns the canonical tag, falling back to SamplerRandom.
func (s SamplerStrategy) resolve() (resolved SamplerStrategy, ok bool) {
	switch c := SamplerStrategy(normalizeTag(string(s))); c {
	case SamplerRandom, SamplerLatinHypercube, SamplerSobol, SamplerHalton:
		return c, true
	}

	return SamplerRandom, false
}

// SurrogateKind names a surrogate backend.
type SurrogateKind string

const (
	// SurrogateGP is the exact-posterior Gaussian process (default).
	SurrogateGP SurrogateKind = "gp"

	// SurrogateForest is the random forest; uncertainty is the spread of
	// the trees.
	SurrogateForest SurrogateKind = "forest"

	// SurrogateMCDropout is a dropout network; uncertainty is the spread of
	// repeated stochastic forward passes.
	SurrogateMCDropout SurrogateKind = "mcdropout"
)

func (k SurrogateKind) resolve() (resolved SurrogateKind, ok bool) {
	switch c := SurrogateKind(normalizeTag(string(k))); c {
	case SurrogateGP, SurrogateForest, SurrogateMCDropout:
		return c, true
	}

	return SurrogateGP, false
}

// KernelKind names a Gaussian process covariance function.
type KernelKind string

const (
	KernelRBF               KernelKind = "rbf"
	KernelMatern32          KernelKind = "matern32"
	KernelMatern52          KernelKind = "matern52"
	KernelRationalQuadratic KernelKind = "rational_quadratic"
)

func (k KernelKind) resolve() (resolved KernelKind, ok bool) {
	switch c := KernelKind(normalizeTag(string(k))); c {
	case KernelRBF, KernelMatern32, KernelMatern52, KernelRationalQuadratic:
		return c, true
	}

	return KernelRBF, false
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

//////
// Configuration.
//////

// SurrogateConfig selects and tunes the surrogate backend. Zero values are
// replaced by the defaults listed on each field.
type SurrogateConfig struct {
	// Kind selects the backend. Unrecognized values fall back to SurrogateGP.
	Kind SurrogateKind `json:"kind"`

	// Kernel selects the GP covariance. Unrecognized values fall back to
	// KernelRBF.
	Kernel KernelKind `json:"kernel"`

	// LengthScale of the GP kernel. Default 1.
	LengthScale float64 `json:"length_scale"`

	// SignalVariance is the GP kernel amplitude. Default 1.
	SignalVariance float64 `json:"signal_variance"`

	// Alpha is the rational quadratic scale mixture. Default 1.
	Alpha float64 `json:"alpha"`

	// Noise is the additive observation-noise variance of the GP. Zero is
	// allowed.
	Noise float64 `json:"noise"`

	// NormalizeTargets standardizes outputs before the GP fit.
	NormalizeTargets bool `json:"normalize_targets"`

	// TuneHyperparameters maximizes the GP marginal likelihood over the
	// length-scale and signal variance on every fit.
	TuneHyperparameters bool `json:"tune_hyperparameters"`

	// Trees is the forest size. Default 100.
	Trees int `json:"trees"`

	// MaxDepth limits tree depth; 0 means unlimited.
	MaxDepth int `json:"max_depth"`

	// MinLeafSize is the minimum number of samples per leaf. Default 1.
	MinLeafSize int `json:"min_leaf_size"`

	// MaxFeatures is the number of axes tried per split; 0 means all.
	MaxFeatures int `json:"max_features"`

	// Hidden is the dropout network width. Default 64.
	Hidden int `json:"hidden"`

	// DropoutRate is the hidden-unit drop probability in [0, 1). Default 0.1.
	// Use a negative value to request no dropout.
	DropoutRate float64 `json:"dropout_rate"`

	// LearningRate of the Adam optimizer. Default 0.01.
	LearningRate float64 `json:"learning_rate"`

	// Epochs of full-batch training. Default 300.
	Epochs int `json:"epochs"`

	// Passes is the number of stochastic forward passes per prediction.
	// Default 10.
	Passes int `json:"passes"`
}

// Config holds all configuration parameters for an optimization run.
//
// Usage example:
//
//	config := DefaultConfig()
//
//	// Two axes, each [-2, 2], 30 points per axis (900 candidates).
//	config.Dimensions = 2
//	config.Resolution = 30
//
//	// Expected improvement, four evaluations per iteration.
//	config.Acquisition = AcquisitionEI
//	config.BatchSize = 4
//
// Performance impact notes:
// - Candidate count grows as Resolution^Dimensions
// - The Gaussian process fit is cubic in the number of samples
// - Total evaluations = InitialSamples + Iterations*BatchSize
type Config struct {
	// Dimensions is the number of input axes (D >= 1).
	Dimensions int `json:"dimensions"`

	// Domain bounds every axis.
	Domain Interval `json:"domain"`

	// Resolution is the number of grid points per axis.
	Resolution int `json:"resolution"`

	// InitialSamples is the size of the starting design.
	InitialSamples int `json:"initial_samples"`

	// Sampler selects the starting design strategy. Unrecognized values
	// fall back to SamplerRandom.
	Sampler SamplerStrategy `json:"sampler"`

	// Surrogate selects and tunes the model.
	Surrogate SurrogateConfig `json:"surrogate"`

	// Model, when set, replaces the built-in surrogate selected by
	// Surrogate.Kind.
	Model Surrogate `json:"-"`

	// Acquisition selects the scoring strategy. Unrecognized values fall
	// back to AcquisitionUCB.
	Acquisition AcquisitionKind `json:"acquisition"`

	// AcqParams holds the parameters for the acquisition function.
	AcqParams AcquisitionParams `json:"acquisition_params"`

	// Iterations is the number of fit/select/evaluate rounds after the
	// initial design.
	Iterations int `json:"iterations"`

	// BatchSize is the number of grid points evaluated per iteration. It
	// must not exceed the grid size.
	BatchSize int `json:"batch_size"`

	// Seed drives every random draw of the run.
	Seed uint64 `json:"seed"`

	// ProgressChan is used to send progress updates during optimization.
	// If nil, no updates will be sent. Updates are dropped when the channel
	// is full.
	ProgressChan chan<- ProgressUpdate `json:"-"`

	// Logger receives structured run logs. Nil disables logging.
	Logger *zap.Logger `json:"-"`
}
