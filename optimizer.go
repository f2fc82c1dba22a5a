package bayesopt

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Progress phases.
const (
	PhaseInitialSampling = "InitialSampling"
	PhaseOptimization    = "Optimization"
)

// Result is the externally visible outcome of a run: enough to reconstruct
// any visualization without re-running the optimization.
type Result struct {
	// RunID identifies the run in logs.
	RunID string

	// Samples is the final sample set, initial design first.
	Samples Samples

	// Mean and StdDev are the last prediction over the grid, in grid order.
	// Nil when no iteration ran.
	Mean   []float64
	StdDev []float64

	// Scores are the last acquisition scores over the grid.
	Scores []float64

	// Selected holds the grid indices chosen in the last iteration, best
	// first.
	Selected []int

	// History holds the selected grid indices of every iteration.
	History [][]int
}

// Best returns the observation with the highest output. ok is false for an
// empty sample set.
func (r *Result) Best() (x []float64, y float64, ok bool) {
	return r.Samples.Best()
}

// Len returns the number of observations.
func (s Samples) Len() int { return len(s.Outputs) }

// Best returns the observation with the highest output. Ties keep the
// earliest.
func (s Samples) Best() (x []float64, y float64, ok bool) {
	if len(s.Outputs) == 0 {
		return nil, 0, false
	}

	i := floats.MaxIdx(s.Outputs)

	return append([]float64(nil), s.Inputs[i]...), s.Outputs[i], true
}

func (s Samples) clone() Samples {
	return Samples{
		Inputs:  clonePoints(s.Inputs),
		Outputs: append([]float64(nil), s.Outputs...),
	}
}

// append adds one batch. Both slices grow together.
func (s *Samples) append(points [][]float64, outputs []float64) {
	s.Inputs = append(s.Inputs, clonePoints(points)...)
	s.Outputs = append(s.Outputs, outputs...)
}

// Optimizer runs the fit, predict, score, select, evaluate, append cycle
// over a fixed candidate grid. It owns its sample set, grid, surrogate and
// generator exclusively and is not safe for concurrent use; separate
// optimizers are independent.
type Optimizer struct {
	cfg         Config
	objective   Evaluator
	runID       uuid.UUID
	logger      *zap.Logger
	grid        *Grid
	rng         *rand.Rand
	model       Surrogate
	acquisition AcquisitionKind

	samples     Samples
	initialized bool
	iteration   int
	history     [][]int

	mean     []float64
	stddev   []float64
	scores   []float64
	selected []int
}

// New validates cfg and prepares a run. Nothing is evaluated: a rejected
// configuration never touches the objective.
//
// Unrecognized sampler, surrogate, kernel and acquisition tags are resolved
// to their defaults here and logged at warn level.
func New(cfg Config, objective Evaluator) (*Optimizer, error) {
	if isNilObjective(objective) {
		return nil, configError("objective", ErrNilObjective)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.New()

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	logger := cfg.Logger.Named("bayesopt").With(zap.String("run_id", runID.String()))

	resolveTag := func(field, given, resolved string, ok bool) {
		if !ok {
			logger.Warn("unrecognized tag, using default",
				zap.String("field", field),
				zap.String("given", given),
				zap.String("default", resolved),
			)
		}
	}

	sampler, ok := cfg.Sampler.resolve()
	resolveTag("sampler", string(cfg.Sampler), string(sampler), ok)
	cfg.Sampler = sampler

	acquisition, ok := cfg.Acquisition.resolve()
	resolveTag("acquisition", string(cfg.Acquisition), string(acquisition), ok)
	cfg.Acquisition = acquisition

	// A single generator drives the initial design, stochastic surrogate
	// training and stochastic acquisition, in that order.
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	model := cfg.Model
	if model == nil {
		kind, ok := cfg.Surrogate.Kind.resolve()
		resolveTag("surrogate.kind", string(cfg.Surrogate.Kind), string(kind), ok)

		if kind == SurrogateGP {
			kernel, ok := cfg.Surrogate.Kernel.resolve()
			resolveTag("surrogate.kernel", string(cfg.Surrogate.Kernel), string(kernel), ok)
		}

		var err error
		if model, err = NewSurrogate(cfg.Surrogate, rng, logger); err != nil {
			return nil, err
		}
	}

	grid, err := NewGrid(replicate(cfg.Domain, cfg.Dimensions), cfg.Resolution)
	if err != nil {
		return nil, configError("resolution", err)
	}

	return &Optimizer{
		cfg:         cfg,
		objective:   objective,
		runID:       runID,
		logger:      logger,
		grid:        grid,
		rng:         rng,
		model:       model,
		acquisition: acquisition,
	}, nil
}

// Optimize is a shorthand for New followed by Run.
//
// Usage example:
//
//	config := DefaultConfig()
//	config.Acquisition = AcquisitionEI
//
//	result, err := Optimize(config, ObjectiveFunc(func(x []float64) (float64, error) {
//	    return -(x[0] - 0.5) * (x[0] - 0.5), nil
//	}))
//	if err != nil {
//	    return err
//	}
//
//	bestX, bestY, _ := result.Best()
//
// How it works:
// 1. Evaluates InitialSamples points from the Sampler strategy
// 2. For each iteration:
//   - Refits the surrogate on every sample so far
//   - Predicts mean and standard deviation over the whole grid
//   - Scores every grid point with the acquisition strategy
//   - Evaluates the BatchSize best-scoring points
//   - Appends the new observations
//
// 3. Returns the sample set and the last iteration's arrays
func Optimize(cfg Config, objective Evaluator) (*Result, error) {
	o, err := New(cfg, objective)
	if err != nil {
		return nil, err
	}

	return o.Run()
}

// Run evaluates the initial design if needed and then every remaining
// iteration. There is no early stopping. An error terminates the run; the
// samples gathered before it stay available through Samples.
func (o *Optimizer) Run() (*Result, error) {
	o.logger.Info("starting optimization",
		zap.Int("dimensions", o.grid.Dimensions()),
		zap.Int("candidates", o.grid.Len()),
		zap.Int("iterations", o.cfg.Iterations),
		zap.Int("batch_size", o.cfg.BatchSize),
		zap.String("acquisition", string(o.acquisition)),
	)

	if err := o.initialize(); err != nil {
		return nil, err
	}

	for o.iteration < o.cfg.Iterations {
		if err := o.Step(); err != nil {
			return nil, err
		}
	}

	result := o.Result()

	_, best, _ := result.Best()
	o.logger.Info("optimization finished",
		zap.Int("samples", result.Samples.Len()),
		zap.Float64("best", best),
	)

	return result, nil
}

// Step runs one iteration, evaluating the initial design first if that has
// not happened yet. It returns ErrBudgetExhausted once Iterations steps have
// run.
func (o *Optimizer) Step() error {
	if err := o.initialize(); err != nil {
		return err
	}

	if o.iteration >= o.cfg.Iterations {
		return ErrBudgetExhausted
	}

	// 1. Refit from scratch on the full sample set.
	if err := o.model.Fit(o.samples.Inputs, o.samples.Outputs); err != nil {
		return &FitError{Model: o.modelKind(), Err: err}
	}

	// 2. Predict over every candidate.
	mean, stddev, err := o.model.Predict(o.grid.Points())
	if err != nil {
		return &FitError{Model: o.modelKind(), Err: err}
	}

	if len(mean) != o.grid.Len() || len(stddev) != o.grid.Len() {
		return &FitError{Model: o.modelKind(), Err: ErrLengthMismatch}
	}

	// 3. Score.
	params := o.cfg.AcqParams
	params.RandomState = o.rng

	scores, err := Score(o.acquisition, mean, stddev, o.samples.Outputs, params)
	if err != nil {
		return fmt.Errorf("bayesopt: scoring failed: %w", err)
	}

	// 4. Select the batch.
	selected, err := TopK(scores, o.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("bayesopt: batch selection failed: %w", err)
	}

	points := make([][]float64, len(selected))
	for i, idx := range selected {
		points[i] = o.grid.Point(idx)
	}

	// 5. Evaluate the true objective.
	outputs, err := o.evaluate(points)
	if err != nil {
		return err
	}

	// 6. Append.
	o.samples.append(points, outputs)
	o.mean, o.stddev, o.scores, o.selected = mean, stddev, scores, selected
	o.history = append(o.history, selected)
	o.iteration++

	bestX, best, _ := o.samples.Best()

	o.logger.Debug("iteration complete",
		zap.Int("iteration", o.iteration),
		zap.Int("samples", o.samples.Len()),
		zap.Ints("selected", selected),
		zap.Float64s("outputs", outputs),
		zap.Float64("best", best),
	)

	o.sendProgress(ProgressUpdate{
		Phase:             PhaseOptimization,
		CurrentIteration:  o.iteration,
		TotalIterations:   o.cfg.Iterations,
		CurrentParams:     clonePoints(points),
		CurrentOutputs:    append([]float64(nil), outputs...),
		Selected:          append([]int(nil), selected...),
		CurrentBestParams: bestX,
		CurrentBestValue:  best,
		SampleCount:       o.samples.Len(),
	})

	return nil
}

// Samples returns a copy of the current sample set.
func (o *Optimizer) Samples() Samples { return o.samples.clone() }

// Grid returns the candidate grid.
func (o *Optimizer) Grid() *Grid { return o.grid }

// RunID returns the identifier attached to every log entry of the run.
func (o *Optimizer) RunID() string { return o.runID.String() }

// Iteration returns the number of completed iterations.
func (o *Optimizer) Iteration() int { return o.iteration }

// Result returns a snapshot of the run so far.
func (o *Optimizer) Result() *Result {
	history := make([][]int, len(o.history))
	for i, h := range o.history {
		history[i] = append([]int(nil), h...)
	}

	return &Result{
		RunID:    o.runID.String(),
		Samples:  o.samples.clone(),
		Mean:     append([]float64(nil), o.mean...),
		StdDev:   append([]float64(nil), o.stddev...),
		Scores:   append([]float64(nil), o.scores...),
		Selected: append([]int(nil), o.selected...),
		History:  history,
	}
}

// initialize evaluates the initial design once.
func (o *Optimizer) initialize() error {
	if o.initialized {
		return nil
	}

	points, err := InitialSamples(o.cfg.Sampler, o.cfg.InitialSamples, o.grid.Axes(), o.rng)
	if err != nil {
		return configError("initial_samples", err)
	}

	outputs, err := o.evaluate(points)
	if err != nil {
		return err
	}

	o.samples.append(points, outputs)
	o.initialized = true

	o.logger.Debug("initial design evaluated",
		zap.String("sampler", string(o.cfg.Sampler)),
		zap.Int("samples", o.samples.Len()),
	)

	bestX, best, _ := o.samples.Best()

	for i := range points {
		o.sendProgress(ProgressUpdate{
			Phase:             PhaseInitialSampling,
			CurrentIteration:  i + 1,
			TotalIterations:   len(points),
			CurrentParams:     [][]float64{append([]float64(nil), points[i]...)},
			CurrentOutputs:    []float64{outputs[i]},
			CurrentBestParams: bestX,
			CurrentBestValue:  best,
			SampleCount:       o.samples.Len(),
		})
	}

	return nil
}

// evaluate calls the objective and checks its output before anything is
// appended.
func (o *Optimizer) evaluate(points [][]float64) ([]float64, error) {
	outputs, err := o.objective.Evaluate(clonePoints(points))
	if err != nil {
		return nil, &EvaluationError{Err: err}
	}

	if len(outputs) != len(points) {
		return nil, &EvaluationError{Err: fmt.Errorf("%w: %d outputs for %d points", ErrLengthMismatch, len(outputs), len(points))}
	}

	for i, v := range outputs {
		if !isFinite(v) {
			return nil, &EvaluationError{Err: fmt.Errorf("%w: output %d is %v", ErrNonFinite, i, v)}
		}
	}

	return outputs, nil
}

// sendProgress performs a non-blocking send.
func (o *Optimizer) sendProgress(update ProgressUpdate) {
	if o.cfg.ProgressChan == nil {
		return
	}

	select {
	case o.cfg.ProgressChan <- update:
	default:
		// Skip update if channel is full.
	}
}

func (o *Optimizer) modelKind() SurrogateKind {
	if o.cfg.Model != nil {
		return SurrogateKind(fmt.Sprintf("%T", o.cfg.Model))
	}

	kind, _ := o.cfg.Surrogate.Kind.resolve()

	return kind
}
