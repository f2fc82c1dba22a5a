package bayesopt

import (
	"math"
	"math/rand/v2"

	"go.uber.org/zap"
)

// mcDropoutNetwork is a one-hidden-layer ReLU network with dropout on the
// hidden units. Dropout stays active at prediction time; the spread of
// repeated forward passes is the uncertainty estimate.
//
// Inputs and targets are standardized with statistics taken from the sample
// set of the current Fit only. Nothing carries over between fits, so the
// transform shifts as the sample set grows.
//
// Parameters are stored flat:
//
//	[ w1 (hidden x d) | b1 (hidden) | w2 (hidden) | b2 ]
type mcDropoutNetwork struct {
	hidden       int
	dropout      float64
	learningRate float64
	epochs       int
	passes       int
	rng          *rand.Rand
	logger       *zap.Logger

	d       int
	theta   []float64
	inputs  []standardization
	targets standardization
	fitted  bool
}

// Adam hyperparameters.
const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8
)

func (n *mcDropoutNetwork) w1(k, j int) int { return k*n.d + j }
func (n *mcDropoutNetwork) b1(k int) int    { return n.hidden*n.d + k }
func (n *mcDropoutNetwork) w2(k int) int    { return n.hidden*n.d + n.hidden + k }
func (n *mcDropoutNetwork) b2() int         { return n.hidden*n.d + 2*n.hidden }

// Fit re-derives the normalization, re-initializes the weights from the run
// generator and trains with full-batch Adam on mean squared error.
func (n *mcDropoutNetwork) Fit(inputs [][]float64, outputs []float64) error {
	if err := validateSamples(inputs, outputs); err != nil {
		return err
	}

	n.fitted = false
	n.d = len(inputs[0])
	n.inputs = columnStandardizations(inputs)
	n.targets = standardizationOf(outputs)

	x := make([][]float64, len(inputs))
	for i, row := range inputs {
		x[i] = n.standardize(row)
	}

	y := make([]float64, len(outputs))
	for i, v := range outputs {
		y[i] = n.targets.apply(v)
	}

	n.initWeights()

	size := len(n.theta)
	grad := make([]float64, size)
	m := make([]float64, size)
	v := make([]float64, size)

	hPre := make([]float64, n.hidden)
	mask := make([]float64, n.hidden)

	var loss float64

	for epoch := 1; epoch <= n.epochs; epoch++ {
		clear(grad)
		loss = 0

		for i, xi := range x {
			n.sampleMask(mask)
			out := n.forward(xi, mask, hPre)

			diff := out - y[i]
			loss += diff * diff

			g := 2 * diff / float64(len(x))

			grad[n.b2()] += g

			for k := 0; k < n.hidden; k++ {
				if hPre[k] <= 0 || mask[k] == 0 {
					continue
				}

				grad[n.w2(k)] += g * hPre[k] * mask[k]

				dh := g * n.theta[n.w2(k)] * mask[k]
				grad[n.b1(k)] += dh

				for j, xj := range xi {
					grad[n.w1(k, j)] += dh * xj
				}
			}
		}

		c1 := 1 - math.Pow(adamBeta1, float64(epoch))
		c2 := 1 - math.Pow(adamBeta2, float64(epoch))

		for p := range n.theta {
			m[p] = adamBeta1*m[p] + (1-adamBeta1)*grad[p]
			v[p] = adamBeta2*v[p] + (1-adamBeta2)*grad[p]*grad[p]
			n.theta[p] -= n.learningRate * (m[p] / c1) / (math.Sqrt(v[p]/c2) + adamEpsilon)
		}
	}

	n.fitted = true

	n.logger.Debug("fitted dropout network",
		zap.Int("samples", len(x)),
		zap.Int("epochs", n.epochs),
		zap.Float64("final_loss", loss/float64(len(x))),
	)

	return nil
}

// Predict runs passes stochastic forward evaluations per point and returns
// their mean and population standard deviation in output units.
func (n *mcDropoutNetwork) Predict(points [][]float64) (mean, stddev []float64, err error) {
	if !n.fitted {
		return nil, nil, ErrNotFitted
	}

	mean = make([]float64, len(points))
	stddev = make([]float64, len(points))

	hPre := make([]float64, n.hidden)
	mask := make([]float64, n.hidden)
	outs := make([]float64, n.passes)

	for j, p := range points {
		if len(p) != n.d {
			return nil, nil, ErrLengthMismatch
		}

		xs := n.standardize(p)

		for pass := range outs {
			n.sampleMask(mask)
			outs[pass] = n.forward(xs, mask, hPre)
		}

		mu, sd := popMeanStdDev(outs)
		mean[j] = n.targets.invert(mu)
		stddev[j] = sd * n.targets.scale
	}

	return mean, stddev, nil
}

// forward writes the hidden pre-activations into hPre and returns the
// network output for one standardized input.
func (n *mcDropoutNetwork) forward(x, mask, hPre []float64) float64 {
	out := n.theta[n.b2()]

	for k := 0; k < n.hidden; k++ {
		a := n.theta[n.b1(k)]
		for j, xj := range x {
			a += n.theta[n.w1(k, j)] * xj
		}

		hPre[k] = a

		if a > 0 {
			out += n.theta[n.w2(k)] * a * mask[k]
		}
	}

	return out
}

// sampleMask draws an inverted-dropout mask: 0 with probability dropout,
// 1/(1-dropout) otherwise. No draws are made when dropout is 0.
func (n *mcDropoutNetwork) sampleMask(mask []float64) {
	if n.dropout == 0 {
		for k := range mask {
			mask[k] = 1
		}

		return
	}

	keep := 1 / (1 - n.dropout)
	for k := range mask {
		if n.rng.Float64() < n.dropout {
			mask[k] = 0
		} else {
			mask[k] = keep
		}
	}
}

// initWeights draws He-initialized weights; biases start at zero.
func (n *mcDropoutNetwork) initWeights() {
	n.theta = make([]float64, n.hidden*n.d+2*n.hidden+1)

	s1 := math.Sqrt(2 / float64(n.d))
	s2 := math.Sqrt(1 / float64(n.hidden))

	for k := 0; k < n.hidden; k++ {
		for j := 0; j < n.d; j++ {
			n.theta[n.w1(k, j)] = n.rng.NormFloat64() * s1
		}

		n.theta[n.w2(k)] = n.rng.NormFloat64() * s2
	}
}

func (n *mcDropoutNetwork) standardize(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = n.inputs[j].apply(v)
	}

	return out
}

func newMCDropoutNetwork(cfg SurrogateConfig, rng *rand.Rand, logger *zap.Logger) *mcDropoutNetwork {
	return &mcDropoutNetwork{
		hidden:       cfg.Hidden,
		dropout:      cfg.DropoutRate,
		learningRate: cfg.LearningRate,
		epochs:       cfg.Epochs,
		passes:       cfg.Passes,
		rng:          rng,
		logger:       logger,
	}
}
