package bayesopt

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGP(t *testing.T, cfg SurrogateConfig) *gaussianProcess {
	t.Helper()

	s, err := NewSurrogate(cfg, nil, nil)
	require.NoError(t, err)

	gp, ok := s.(*gaussianProcess)
	require.True(t, ok)

	return gp
}

func TestGaussianProcessInterpolates(t *testing.T) {
	gp := newTestGP(t, SurrogateConfig{Kind: SurrogateGP, Noise: 1e-8})

	x := [][]float64{{-1}, {0}, {1}}
	y := []float64{1, -0.5, 2}

	require.NoError(t, gp.Fit(x, y))

	mean, stddev, err := gp.Predict(x)
	require.NoError(t, err)

	for i := range y {
		assert.InDelta(t, y[i], mean[i], 1e-4)
		assert.GreaterOrEqual(t, stddev[i], 0.0)
		assert.Less(t, stddev[i], 1e-3)
	}
}

func TestGaussianProcessRevertsToPriorFarAway(t *testing.T) {
	gp := newTestGP(t, SurrogateConfig{Kind: SurrogateGP, Noise: 1e-6, SignalVariance: 4})

	require.NoError(t, gp.Fit([][]float64{{0, 0}, {0.5, 0.5}}, []float64{3, 2}))

	mean, stddev, err := gp.Predict([][]float64{{100, 100}})
	require.NoError(t, err)

	assert.InDelta(t, 0, mean[0], 1e-9)
	assert.InDelta(t, 2, stddev[0], 1e-9)
}

func TestGaussianProcessNormalizeTargets(t *testing.T) {
	gp := newTestGP(t, SurrogateConfig{Kind: SurrogateGP, Noise: 1e-6, NormalizeTargets: true})

	require.NoError(t, gp.Fit([][]float64{{0}, {1}, {2}}, []float64{100, 101, 102}))

	mean, stddev, err := gp.Predict([][]float64{{500}})
	require.NoError(t, err)

	// Far from the data the prior mean is the sample mean, the prior
	// standard deviation the sample standard deviation.
	assert.InDelta(t, 101, mean[0], 1e-6)
	assert.InDelta(t, math.Sqrt(2.0/3.0), stddev[0], 1e-6)
}

func TestGaussianProcessRefitDiscardsState(t *testing.T) {
	gp := newTestGP(t, SurrogateConfig{Kind: SurrogateGP, Noise: 1e-6})

	require.NoError(t, gp.Fit([][]float64{{0}, {1}, {2}}, []float64{1, 2, 3}))
	require.NoError(t, gp.Fit([][]float64{{0}, {1}}, []float64{5, 6}))

	assert.Len(t, gp.x, 2)

	mean, _, err := gp.Predict([][]float64{{0}})
	require.NoError(t, err)
	assert.InDelta(t, 5, mean[0], 1e-3)
}

func TestGaussianProcessPredictBeforeFit(t *testing.T) {
	gp := newTestGP(t, SurrogateConfig{Kind: SurrogateGP})

	_, _, err := gp.Predict([][]float64{{0}})
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestGaussianProcessIllConditioned(t *testing.T) {
	// A negative noise is rejected by configuration; build it directly to
	// force an indefinite covariance.
	gp := newGaussianProcess(SurrogateConfig{Noise: -2}.withDefaults(), zap.NewNop())

	err := gp.Fit([][]float64{{0}, {1}}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrIllConditioned)

	_, _, err = gp.Predict([][]float64{{0}})
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestGaussianProcessRejectsBadData(t *testing.T) {
	gp := newTestGP(t, SurrogateConfig{Kind: SurrogateGP})

	assert.ErrorIs(t, gp.Fit(nil, nil), ErrEmptySamples)
	assert.ErrorIs(t, gp.Fit([][]float64{{0}}, []float64{1, 2}), ErrLengthMismatch)
	assert.ErrorIs(t, gp.Fit([][]float64{{0}}, []float64{math.NaN()}), ErrNonFinite)
}

func TestGaussianProcessTuningNeverLowersEvidence(t *testing.T) {
	x := make([][]float64, 8)
	y := make([]float64, 8)

	for i := range x {
		v := -2 + float64(i)*0.5
		x[i] = []float64{v}
		y[i] = math.Sin(3 * v)
	}

	fixed := newTestGP(t, SurrogateConfig{Kind: SurrogateGP, Noise: 1e-4})
	require.NoError(t, fixed.Fit(x, y))

	tuned := newTestGP(t, SurrogateConfig{Kind: SurrogateGP, Noise: 1e-4, TuneHyperparameters: true})
	require.NoError(t, tuned.Fit(x, y))

	assert.GreaterOrEqual(t, tuned.LogMarginalLikelihood(), fixed.LogMarginalLikelihood()-1e-9)

	// Tuning restarts from the configured kernel on every fit.
	assert.Equal(t, 1.0, tuned.base.lengthScale)
}

func TestKernels(t *testing.T) {
	for _, kind := range []KernelKind{KernelRBF, KernelMatern32, KernelMatern52, KernelRationalQuadratic} {
		k := newKernel(SurrogateConfig{Kernel: kind}.withDefaults())

		assert.InDelta(t, 1.0, k.Eval([]float64{0.3, -1}, []float64{0.3, -1}), 1e-12, "kind=%s", kind)

		near := k.Eval([]float64{0}, []float64{0.5})
		far := k.Eval([]float64{0}, []float64{2})
		assert.Greater(t, near, far, "kind=%s", kind)
		assert.Greater(t, far, 0.0, "kind=%s", kind)
	}

	assert.Panics(t, func() {
		newKernel(SurrogateConfig{}.withDefaults()).Eval([]float64{0}, []float64{0, 1})
	})
}

func TestKernelUnknownFallsBackToRBF(t *testing.T) {
	k := newKernel(SurrogateConfig{Kernel: "spectral-mixture"}.withDefaults())

	assert.Equal(t, KernelRBF, k.kind)
	assert.InDelta(t, math.Exp(-0.5), k.Eval([]float64{0}, []float64{1}), 1e-12)
}

func TestNewSurrogateUnknownKindIsGP(t *testing.T) {
	s, err := NewSurrogate(SurrogateConfig{Kind: "svm"}, nil, nil)
	require.NoError(t, err)

	_, ok := s.(*gaussianProcess)
	assert.True(t, ok)
}

func TestNewSurrogateRejectsHyperparameters(t *testing.T) {
	_, err := NewSurrogate(SurrogateConfig{Kind: SurrogateGP, Noise: -1}, nil, nil)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "surrogate.noise", cfgErr.Field)
	assert.ErrorIs(t, err, ErrInvalidHyperparameter)

	_, err = NewSurrogate(SurrogateConfig{Kind: SurrogateForest, Trees: -3}, newTestRand(1), nil)
	assert.ErrorIs(t, err, ErrInvalidHyperparameter)

	_, err = NewSurrogate(SurrogateConfig{Kind: SurrogateMCDropout, DropoutRate: 1}, newTestRand(1), nil)
	assert.ErrorIs(t, err, ErrInvalidHyperparameter)
}
