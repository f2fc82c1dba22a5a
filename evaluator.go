package bayesopt

import (
	"fmt"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Evaluator is the true objective. Evaluate returns one output per point,
// in the same order. The optimizer treats it as opaque and side-effect-free.
type Evaluator interface {
	Evaluate(points [][]float64) ([]float64, error)
}

// ObjectiveFunc adapts a single-point function to Evaluator. Points are
// evaluated one at a time in order.
//
// Usage example:
//
//	objective := ObjectiveFunc(func(x []float64) (float64, error) {
//	    return -(x[0] * x[0]), nil
//	})
type ObjectiveFunc func(x []float64) (float64, error)

// Evaluate implements Evaluator. A nil function returns ErrNilObjective.
func (f ObjectiveFunc) Evaluate(points [][]float64) ([]float64, error) {
	if f == nil {
		return nil, ErrNilObjective
	}

	out := make([]float64, len(points))

	for i, x := range points {
		v, err := f(x)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}

		out[i] = v
	}

	return out, nil
}

// ParallelObjective evaluates a batch with up to Workers concurrent calls
// of Func. Each result is stored at the index of its point, so output order
// always matches input order. Workers < 1 uses GOMAXPROCS.
//
// Func must be safe for concurrent use.
type ParallelObjective struct {
	Func    ObjectiveFunc
	Workers int
}

// Evaluate implements Evaluator. A nil Func returns ErrNilObjective. The
// first error of the batch is returned
// after all started calls finish.
func (p ParallelObjective) Evaluate(points [][]float64) ([]float64, error) {
	if p.Func == nil {
		return nil, ErrNilObjective
	}

	workers := p.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]float64, len(points))

	wp := pool.New().WithErrors().WithFirstError().WithMaxGoroutines(workers)
	for i, x := range points {
		wp.Go(func() error {
			v, err := p.Func(x)
			if err != nil {
				return fmt.Errorf("point %d: %w", i, err)
			}

			out[i] = v

			return nil
		})
	}

	if err := wp.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// isNilObjective reports whether e is nil or wraps a nil function.
func isNilObjective(e Evaluator) bool {
	switch o := e.(type) {
	case nil:
		return true
	case ObjectiveFunc:
		return o == nil
	case ParallelObjective:
		return o.Func == nil
	case *ParallelObjective:
		return o == nil || o.Func == nil
	}

	return false
}
