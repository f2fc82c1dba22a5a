package bayesopt

import "math"

// Hyperparameter bounds applied during marginal-likelihood tuning.
const (
	minKernelParam = 1e-5
	maxKernelParam = 1e5
)

// kernel is a stationary covariance function.
//
// Fields:
// - kind: covariance shape
// - lengthScale: distance over which correlation decays
// - variance: prior signal variance, k(x, x)
// - alpha: rational quadratic scale mixture (ignored by other shapes)
type kernel struct {
	kind        KernelKind
	lengthScale float64
	variance    float64
	alpha       float64
}

func newKernel(cfg SurrogateConfig) kernel {
	kind, _ := cfg.Kernel.resolve()

	return kernel{
		kind:        kind,
		lengthScale: cfg.LengthScale,
		variance:    cfg.SignalVariance,
		alpha:       cfg.Alpha,
	}
}

// Eval returns k(x1, x2).
//
// Mathematical formulas, with r = |x1 - x2| / lengthScale:
//
//	rbf:                variance * exp(-r^2 / 2)
//	matern32:           variance * (1 + sqrt(3) r) exp(-sqrt(3) r)
//	matern52:           variance * (1 + sqrt(5) r + 5 r^2 / 3) exp(-sqrt(5) r)
//	rational_quadratic: variance * (1 + r^2 / (2 alpha))^-alpha
//
// Panics if the input vectors have different lengths.
func (k kernel) Eval(x1, x2 []float64) float64 {
	if len(x1) != len(x2) {
		panic("input vectors must have the same length")
	}

	var sum float64

	for i := range x1 {
		diff := x1[i] - x2[i]

		sum += diff * diff
	}

	r2 := sum / (k.lengthScale * k.lengthScale)

	switch k.kind {
	case KernelMatern32:
		r := math.Sqrt(3 * r2)

		return k.variance * (1 + r) * math.Exp(-r)
	case KernelMatern52:
		r := math.Sqrt(5 * r2)

		return k.variance * (1 + r + r*r/3) * math.Exp(-r)
	case KernelRationalQuadratic:
		return k.variance * math.Pow(1+r2/(2*k.alpha), -k.alpha)
	default:
		return k.variance * math.Exp(-r2/2)
	}
}

// logParams returns the tunable parameters in log space.
func (k kernel) logParams() []float64 {
	return []float64{math.Log(k.lengthScale), math.Log(k.variance)}
}

// withLogParams returns a copy with parameters taken from log space,
// clamped to [minKernelParam, maxKernelParam].
func (k kernel) withLogParams(theta []float64) kernel {
	clamp := func(v float64) float64 {
		return math.Min(maxKernelParam, math.Max(minKernelParam, math.Exp(v)))
	}

	k.lengthScale = clamp(theta[0])
	k.variance = clamp(theta[1])

	return k
}
