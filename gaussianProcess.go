package bayesopt

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

//////
// Const, vars, types.
//////

// jitter is always added to the covariance diagonal so that a zero noise
// setting still factorizes for distinct inputs.
const jitter = 1e-10

// gaussianProcess implements exact Gaussian process regression with
// multidimensional inputs and a zero prior mean.
//
// Fields:
// - base: kernel as configured; every fit starts tuning from it
// - kern: kernel used by the current fit
// - noise: additive observation-noise variance
// - x: training inputs of the current fit
// - chol: Cholesky factor of K(x, x) + (noise + jitter) I
// - alpha: K^-1 y
// - target: output standardization (identity unless normalizing)
// - lml: log marginal likelihood of the current fit
//
// Memory usage:
// - O(n^2) for the factor, where n is the number of observations
// - Predict allocates an n x m matrix for m query points.
type gaussianProcess struct {
	base      kernel
	kern      kernel
	noise     float64
	normalize bool
	tune      bool
	logger    *zap.Logger

	x      [][]float64
	chol   *mat.Cholesky
	alpha  *mat.VecDense
	target standardization
	lml    float64
}

//////
// Methods.
//////

// Fit computes the posterior from scratch on inputs and outputs.
//
// Mathematical details:
// - K = k(X, X) + (noise + jitter) I, factorized as L L^T
// - alpha = K^-1 y
// - log p(y | X) = -1/2 y^T alpha - 1/2 log|K| - n/2 log(2 pi)
//
// Errors:
// - ErrEmptySamples, ErrLengthMismatch, ErrNonFinite for bad data
// - ErrIllConditioned when K is not positive definite. Not retried.
func (gp *gaussianProcess) Fit(inputs [][]float64, outputs []float64) error {
	if err := validateSamples(inputs, outputs); err != nil {
		return err
	}

	// Invalidate the previous fit before anything can fail.
	gp.chol, gp.alpha = nil, nil

	gp.x = clonePoints(inputs)

	gp.target = standardization{mean: 0, scale: 1}
	if gp.normalize {
		gp.target = standardizationOf(outputs)
	}

	y := make([]float64, len(outputs))
	for i, v := range outputs {
		y[i] = gp.target.apply(v)
	}

	gp.kern = gp.base
	if gp.tune {
		gp.kern = gp.tuneKernel(y)
	}

	chol, alpha, lml, err := gp.factorize(gp.kern, y)
	if err != nil {
		return err
	}

	gp.chol, gp.alpha, gp.lml = chol, alpha, lml

	gp.logger.Debug("fitted gaussian process",
		zap.Int("samples", len(y)),
		zap.String("kernel", string(gp.kern.kind)),
		zap.Float64("length_scale", gp.kern.lengthScale),
		zap.Float64("signal_variance", gp.kern.variance),
		zap.Float64("log_marginal_likelihood", lml),
	)

	return nil
}

// Predict returns the posterior mean and standard deviation at every point.
//
// Mathematical details, for the n x m cross-covariance K* = k(X, points):
// - mean = K*^T alpha
// - variance = k(x, x) - diag(K*^T K^-1 K*), clamped at 0
//
// Observation noise is not added to the predictive variance. A point whose
// dimension differs from the training inputs returns ErrLengthMismatch.
func (gp *gaussianProcess) Predict(points [][]float64) (mean, stddev []float64, err error) {
	if gp.chol == nil {
		return nil, nil, ErrNotFitted
	}

	n, m := len(gp.x), len(points)
	if m == 0 {
		return []float64{}, []float64{}, nil
	}

	for _, p := range points {
		if len(p) != len(gp.x[0]) {
			return nil, nil, ErrLengthMismatch
		}
	}

	kStar := mat.NewDense(n, m, nil)
	for i, xi := range gp.x {
		for j, p := range points {
			kStar.Set(i, j, gp.kern.Eval(xi, p))
		}
	}

	var w mat.Dense
	if err := tolerateCondition(gp.chol.SolveTo(&w, kStar)); err != nil {
		return nil, nil, err
	}

	mean = make([]float64, m)
	stddev = make([]float64, m)

	for j, p := range points {
		var mu, reduction float64

		for i := 0; i < n; i++ {
			ks := kStar.At(i, j)
			mu += ks * gp.alpha.AtVec(i)
			reduction += ks * w.At(i, j)
		}

		variance := gp.kern.Eval(p, p) - reduction
		if !(variance > 0) {
			variance = 0
		}

		mean[j] = gp.target.invert(mu)
		stddev[j] = math.Sqrt(variance) * gp.target.scale
	}

	return mean, stddev, nil
}

// LogMarginalLikelihood returns the evidence of the current fit, in the
// (possibly standardized) target space.
func (gp *gaussianProcess) LogMarginalLikelihood() float64 {
	return gp.lml
}

// factorize builds and factorizes the training covariance for k.
func (gp *gaussianProcess) factorize(k kernel, y []float64) (*mat.Cholesky, *mat.VecDense, float64, error) {
	n := len(gp.x)

	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, k.Eval(gp.x[i], gp.x[j]))
		}

		cov.SetSym(i, i, cov.At(i, i)+gp.noise+jitter)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return nil, nil, 0, ErrIllConditioned
	}

	yVec := mat.NewVecDense(n, append([]float64(nil), y...))

	var alpha mat.VecDense
	if err := tolerateCondition(chol.SolveVecTo(&alpha, yVec)); err != nil {
		return nil, nil, 0, err
	}

	lml := -0.5*mat.Dot(yVec, &alpha) - 0.5*chol.LogDet() - 0.5*float64(n)*math.Log(2*math.Pi)

	return &chol, &alpha, lml, nil
}

// tuneKernel maximizes the log marginal likelihood over log length-scale
// and log signal variance with Nelder-Mead, starting from the configured
// kernel. On failure the configured kernel is kept.
func (gp *gaussianProcess) tuneKernel(y []float64) kernel {
	start := gp.base

	nll := func(theta []float64) float64 {
		_, _, lml, err := gp.factorize(start.withLogParams(theta), y)
		if err != nil || !isFinite(lml) {
			return math.MaxFloat64 / 2
		}

		return -lml
	}

	x0 := start.logParams()
	startNLL := nll(x0)

	result, err := optimize.Minimize(
		optimize.Problem{Func: nll},
		x0,
		&optimize.Settings{MajorIterations: 200},
		&optimize.NelderMead{},
	)
	if err != nil {
		gp.logger.Warn("kernel tuning failed, keeping configured hyperparameters", zap.Error(err))
	}

	if result == nil || !(result.F < startNLL) {
		return start
	}

	return start.withLogParams(result.X)
}

// tolerateCondition drops gonum's near-singular warnings; the solve result
// is still usable. Every other error is returned.
func tolerateCondition(err error) error {
	if err == nil {
		return nil
	}

	var cond mat.Condition
	if errors.As(err, &cond) {
		return nil
	}

	return fmt.Errorf("%w: %v", ErrIllConditioned, err)
}

//////
// Factory.
//////

// newGaussianProcess creates a Gaussian process from cfg. cfg must already
// carry defaults.
func newGaussianProcess(cfg SurrogateConfig, logger *zap.Logger) *gaussianProcess {
	k := newKernel(cfg)

	return &gaussianProcess{
		base:      k,
		kern:      k,
		noise:     cfg.Noise,
		normalize: cfg.NormalizeTargets,
		tune:      cfg.TuneHyperparameters,
		logger:    logger,
	}
}
