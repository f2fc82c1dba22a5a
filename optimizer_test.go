package bayesopt

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/floats"
)

// Sample objective with an interior maximum on [-2, 2].
func testObjective(x []float64) (float64, error) {
	var sum float64
	for _, v := range x {
		sum += math.Sin(3*v) - 0.2*v*v
	}

	return sum, nil
}

// countingObjective counts every evaluated point.
type countingObjective struct {
	points int32
}

func (c *countingObjective) Evaluate(points [][]float64) ([]float64, error) {
	atomic.AddInt32(&c.points, int32(len(points)))

	return ObjectiveFunc(testObjective).Evaluate(points)
}

// zeroUncertaintyModel predicts mean = first coordinate and no uncertainty.
type zeroUncertaintyModel struct {
	fits int
}

func (m *zeroUncertaintyModel) Fit(inputs [][]float64, outputs []float64) error {
	m.fits++

	return nil
}

func (m *zeroUncertaintyModel) Predict(points [][]float64) ([]float64, []float64, error) {
	mean := make([]float64, len(points))
	for i, p := range points {
		mean[i] = p[0]
	}

	return mean, make([]float64, len(points)), nil
}

type failingModel struct{}

func (failingModel) Fit([][]float64, []float64) error { return ErrIllConditioned }

func (failingModel) Predict([][]float64) ([]float64, []float64, error) { return nil, nil, ErrNotFitted }

func TestScenarioGaussianProcessUCB(t *testing.T) {
	// D=1, [-2, 2], 50 candidates, 5 random samples, GP, UCB with Beta 2,
	// one iteration of one point.
	config := DefaultConfig()
	config.Iterations = 1
	config.BatchSize = 1

	o, err := New(config, ObjectiveFunc(testObjective))
	require.NoError(t, err)

	result, err := o.Run()
	require.NoError(t, err)

	require.Len(t, result.Samples.Inputs, 6)
	require.Len(t, result.Samples.Outputs, 6)
	require.Len(t, result.Mean, 50)
	require.Len(t, result.StdDev, 50)

	ucb := make([]float64, len(result.Mean))
	for i := range ucb {
		ucb[i] = result.Mean[i] + 2*result.StdDev[i]
	}

	want := floats.MaxIdx(ucb)
	assert.Equal(t, []int{want}, result.Selected)
	assert.Equal(t, o.Grid().Point(want), result.Samples.Inputs[5])

	// The reported prediction is the posterior of the five initial samples.
	gp, err := NewSurrogate(config.Surrogate, nil, nil)
	require.NoError(t, err)
	require.NoError(t, gp.Fit(result.Samples.Inputs[:5], result.Samples.Outputs[:5]))

	mean, stddev, err := gp.Predict(o.Grid().Points())
	require.NoError(t, err)
	assert.InDeltaSlice(t, mean, result.Mean, 1e-12)
	assert.InDeltaSlice(t, stddev, result.StdDev, 1e-12)
}

func TestSampleSetGrowsByBatch(t *testing.T) {
	config := DefaultConfig()
	config.InitialSamples = 5
	config.Iterations = 4
	config.BatchSize = 3

	o, err := New(config, ObjectiveFunc(testObjective))
	require.NoError(t, err)

	for k := 1; k <= config.Iterations; k++ {
		require.NoError(t, o.Step())

		samples := o.Samples()
		assert.Equal(t, config.InitialSamples+k*config.BatchSize, len(samples.Inputs))
		assert.Equal(t, len(samples.Inputs), len(samples.Outputs))
		assert.Equal(t, k, o.Iteration())
	}

	assert.ErrorIs(t, o.Step(), ErrBudgetExhausted)
	assert.Equal(t, config.InitialSamples+config.Iterations*config.BatchSize, o.Samples().Len())
}

func TestExpectedImprovementWithZeroUncertainty(t *testing.T) {
	model := &zeroUncertaintyModel{}

	config := DefaultConfig()
	config.Model = model
	config.Acquisition = AcquisitionEI
	config.Iterations = 1
	config.BatchSize = 3

	result, err := Optimize(config, ObjectiveFunc(testObjective))
	require.NoError(t, err)

	assert.Equal(t, make([]float64, 50), result.Scores)
	assert.Len(t, result.Selected, 3)
	assert.Len(t, result.Samples.Inputs, config.InitialSamples+3)
	assert.Equal(t, 1, model.fits)

	seen := map[int]bool{}
	for _, idx := range result.Selected {
		assert.False(t, seen[idx])
		seen[idx] = true
	}
}

func TestBatchLargerThanGridIsRejected(t *testing.T) {
	objective := &countingObjective{}

	config := DefaultConfig()
	config.Resolution = 5
	config.BatchSize = 6

	o, err := New(config, objective)
	assert.Nil(t, o)
	assert.ErrorIs(t, err, ErrBatchTooLarge)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "batch_size", cfgErr.Field)

	// Nothing was evaluated.
	assert.Equal(t, int32(0), atomic.LoadInt32(&objective.points))
}

func TestSobolCountIsRejectedBeforeEvaluation(t *testing.T) {
	objective := &countingObjective{}

	config := DefaultConfig()
	config.Sampler = SamplerSobol
	config.InitialSamples = 5

	_, err := New(config, objective)
	assert.ErrorIs(t, err, ErrSampleCount)
	assert.Equal(t, int32(0), atomic.LoadInt32(&objective.points))

	config.InitialSamples = 8

	result, err := Optimize(config, objective)
	require.NoError(t, err)
	assert.Equal(t, 8+config.Iterations, result.Samples.Len())
}

func TestDeterministicRuns(t *testing.T) {
	cases := []struct {
		sampler     SamplerStrategy
		surrogate   SurrogateConfig
		acquisition AcquisitionKind
	}{
		{SamplerRandom, SurrogateConfig{Kind: SurrogateGP, Kernel: KernelMatern52, Noise: 1e-6}, AcquisitionThompson},
		{SamplerLatinHypercube, SurrogateConfig{Kind: SurrogateForest, Trees: 15}, AcquisitionEI},
		{SamplerHalton, SurrogateConfig{Kind: SurrogateForest, Trees: 15}, AcquisitionRandom},
		{SamplerSobol, SurrogateConfig{Kind: SurrogateMCDropout, Hidden: 8, Epochs: 30}, AcquisitionThompson},
		{SamplerLatinHypercube, SurrogateConfig{Kind: SurrogateGP, Noise: 1e-4, TuneHyperparameters: true}, AcquisitionPI},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s/%s/%s", tc.sampler, tc.surrogate.Kind, tc.acquisition), func(t *testing.T) {
			config := DefaultConfig()
			config.Dimensions = 2
			config.Resolution = 10
			config.InitialSamples = 4
			config.Sampler = tc.sampler
			config.Surrogate = tc.surrogate
			config.Acquisition = tc.acquisition
			config.Iterations = 3
			config.BatchSize = 2
			config.Seed = 7

			first, err := Optimize(config, ObjectiveFunc(testObjective))
			require.NoError(t, err)

			second, err := Optimize(config, ObjectiveFunc(testObjective))
			require.NoError(t, err)

			assert.Empty(t, cmp.Diff(first.Samples, second.Samples))
			assert.Empty(t, cmp.Diff(first.History, second.History))
			assert.Len(t, first.History, 3)
			assert.NotEqual(t, first.RunID, second.RunID)
		})
	}
}

func TestParallelEvaluationMatchesSerial(t *testing.T) {
	config := DefaultConfig()
	config.Surrogate = SurrogateConfig{Kind: SurrogateForest, Trees: 20}
	config.Acquisition = AcquisitionThompson
	config.Iterations = 3
	config.BatchSize = 4

	serial, err := Optimize(config, ObjectiveFunc(testObjective))
	require.NoError(t, err)

	parallel, err := Optimize(config, ParallelObjective{Func: testObjective, Workers: 3})
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(serial.Samples, parallel.Samples))
	assert.Empty(t, cmp.Diff(serial.History, parallel.History))
}

func TestZeroIterations(t *testing.T) {
	config := DefaultConfig()
	config.Iterations = 0

	result, err := Optimize(config, ObjectiveFunc(testObjective))
	require.NoError(t, err)

	assert.Equal(t, config.InitialSamples, result.Samples.Len())
	assert.Nil(t, result.Mean)
	assert.Nil(t, result.Selected)
	assert.Empty(t, result.History)

	x, y, ok := result.Best()
	require.True(t, ok)
	assert.Len(t, x, 1)
	assert.Equal(t, floats.Max(result.Samples.Outputs), y)
}

func TestUnknownTagsFallBackWithWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	config := DefaultConfig()
	config.Logger = zap.New(core)
	config.Sampler = "stratified-ish"
	config.Acquisition = "knowledge-gradient"
	config.Surrogate.Kind = "svm"
	config.Surrogate.Kernel = "periodic"
	config.Iterations = 2

	result, err := Optimize(config, ObjectiveFunc(testObjective))
	require.NoError(t, err)
	assert.Equal(t, config.InitialSamples+2, result.Samples.Len())

	assert.Equal(t, 4, logs.FilterMessage("unrecognized tag, using default").Len())
}

func TestObjectiveFailureTerminatesRun(t *testing.T) {
	boom := errors.New("boom")

	var calls int

	config := DefaultConfig()

	_, err := Optimize(config, ObjectiveFunc(func(x []float64) (float64, error) {
		calls++
		if calls > config.InitialSamples {
			return 0, boom
		}

		return testObjective(x)
	}))

	var evalErr *EvaluationError
	require.True(t, errors.As(err, &evalErr))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, config.InitialSamples+1, calls)
}

func TestNonFiniteOutputIsRejected(t *testing.T) {
	config := DefaultConfig()

	o, err := New(config, ObjectiveFunc(func([]float64) (float64, error) {
		return math.Inf(1), nil
	}))
	require.NoError(t, err)

	_, err = o.Run()
	assert.ErrorIs(t, err, ErrNonFinite)
	assert.Equal(t, 0, o.Samples().Len())
}

func TestFitFailureTerminatesRun(t *testing.T) {
	config := DefaultConfig()
	config.Model = failingModel{}

	o, err := New(config, ObjectiveFunc(testObjective))
	require.NoError(t, err)

	_, err = o.Run()

	var fitErr *FitError
	require.True(t, errors.As(err, &fitErr))
	assert.ErrorIs(t, err, ErrIllConditioned)

	// Initial design only.
	assert.Equal(t, config.InitialSamples, o.Samples().Len())
	assert.Equal(t, 0, o.Iteration())
}

func TestNewRejectsNilObjective(t *testing.T) {
	for _, objective := range []Evaluator{
		nil,
		ObjectiveFunc(nil),
		ParallelObjective{Workers: 2},
		&ParallelObjective{},
	} {
		_, err := New(DefaultConfig(), objective)
		assert.ErrorIs(t, err, ErrNilObjective, "objective=%T", objective)
	}
}

func TestOptimizeProgressChannel(t *testing.T) {
	// Create a configuration
	config := DefaultConfig()

	// Small run so every update fits in the buffer.
	config.InitialSamples = 3
	config.Iterations = 5

	// Create a bidirectional channel for progress updates
	progressChan := make(chan ProgressUpdate, config.InitialSamples+config.Iterations)

	// Assign the channel to config (will be automatically converted to send-only)
	config.ProgressChan = progressChan

	result, err := Optimize(config, ObjectiveFunc(testObjective))
	require.NoError(t, err)
	close(progressChan)

	var initial, optimization int
	var last ProgressUpdate

	for update := range progressChan {
		switch update.Phase {
		case PhaseInitialSampling:
			initial++
		case PhaseOptimization:
			optimization++
			assert.Len(t, update.Selected, config.BatchSize)
		}

		last = update
	}

	assert.Equal(t, config.InitialSamples, initial)
	assert.Equal(t, config.Iterations, optimization)

	_, best, _ := result.Best()
	assert.Equal(t, best, last.CurrentBestValue)
	assert.Equal(t, result.Samples.Len(), last.SampleCount)
}
