package bayesopt

import (
	"math/rand/v2"
	"slices"

	"go.uber.org/zap"
)

// randomForest is an ensemble of CART regression trees, each trained on a
// bootstrap resample. The spread of the member predictions stands in for
// predictive uncertainty.
type randomForest struct {
	trees       int
	maxDepth    int
	minLeaf     int
	maxFeatures int
	rng         *rand.Rand
	logger      *zap.Logger

	d       int
	members []regressionTree
}

// treeNode is a split node, or a leaf when left < 0.
type treeNode struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
}

type regressionTree struct {
	nodes []treeNode
}

func (t *regressionTree) predict(x []float64) float64 {
	n := &t.nodes[0]
	for n.left >= 0 {
		if x[n.feature] <= n.threshold {
			n = &t.nodes[n.left]
		} else {
			n = &t.nodes[n.right]
		}
	}

	return n.value
}

// Fit trains every tree from scratch. Bootstrap indices and split feature
// subsets are drawn from the run generator, tree by tree.
func (f *randomForest) Fit(inputs [][]float64, outputs []float64) error {
	if err := validateSamples(inputs, outputs); err != nil {
		return err
	}

	f.members = nil

	n, d := len(inputs), len(inputs[0])
	f.d = d

	maxFeatures := f.maxFeatures
	if maxFeatures == 0 || maxFeatures > d {
		maxFeatures = d
	}

	members := make([]regressionTree, f.trees)
	for t := range members {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = f.rng.IntN(n)
		}

		b := treeBuilder{
			x:           inputs,
			y:           outputs,
			maxDepth:    f.maxDepth,
			minLeaf:     f.minLeaf,
			maxFeatures: maxFeatures,
			rng:         f.rng,
		}
		b.build(idx, 0)

		members[t] = regressionTree{nodes: b.nodes}
	}

	f.members = members

	f.logger.Debug("fitted random forest",
		zap.Int("samples", n),
		zap.Int("trees", len(members)),
	)

	return nil
}

// Predict returns the cross-tree mean and population standard deviation.
func (f *randomForest) Predict(points [][]float64) (mean, stddev []float64, err error) {
	if f.members == nil {
		return nil, nil, ErrNotFitted
	}

	for _, p := range points {
		if len(p) != f.d {
			return nil, nil, ErrLengthMismatch
		}
	}

	mean = make([]float64, len(points))
	stddev = make([]float64, len(points))
	preds := make([]float64, len(f.members))

	for j, p := range points {
		for t := range f.members {
			preds[t] = f.members[t].predict(p)
		}

		mean[j], stddev[j] = popMeanStdDev(preds)
	}

	return mean, stddev, nil
}

// treeBuilder grows one tree depth-first into nodes.
type treeBuilder struct {
	x           [][]float64
	y           []float64
	maxDepth    int
	minLeaf     int
	maxFeatures int
	rng         *rand.Rand

	nodes []treeNode
}

// build appends the subtree for idx and returns its node index.
func (b *treeBuilder) build(idx []int, depth int) int {
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}

	node := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{left: -1, right: -1, value: sum / float64(len(idx))})

	if len(idx) < 2*b.minLeaf || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return node
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)

	b.nodes[node].feature = feature
	b.nodes[node].threshold = threshold
	b.nodes[node].left = l
	b.nodes[node].right = r

	return node
}

// bestSplit searches a random subset of features for the threshold with the
// lowest summed squared error. ok is false when no split reduces the error.
func (b *treeBuilder) bestSplit(idx []int) (feature int, threshold float64, ok bool) {
	n := float64(len(idx))

	var total, totalSq float64
	for _, i := range idx {
		total += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}

	bestErr := totalSq - total*total/n
	if !(bestErr > 1e-12) {
		// Pure node.
		return 0, 0, false
	}

	sorted := append([]int(nil), idx...)
	features := b.rng.Perm(len(b.x[0]))[:b.maxFeatures]

	for _, f := range features {
		slices.SortStableFunc(sorted, func(i, j int) int {
			switch {
			case b.x[i][f] < b.x[j][f]:
				return -1
			case b.x[i][f] > b.x[j][f]:
				return 1
			}

			return 0
		})

		var leftSum, leftSq float64

		for k := 0; k < len(sorted)-1; k++ {
			yi := b.y[sorted[k]]
			leftSum += yi
			leftSq += yi * yi

			nl := float64(k + 1)
			nr := n - nl

			if k+1 < b.minLeaf || len(sorted)-k-1 < b.minLeaf {
				continue
			}

			lo, hi := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if lo == hi {
				continue
			}

			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)

			if sse < bestErr-1e-12 {
				bestErr = sse
				feature = f
				threshold = lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				ok = true
			}
		}
	}

	return feature, threshold, ok
}

func newRandomForest(cfg SurrogateConfig, rng *rand.Rand, logger *zap.Logger) *randomForest {
	return &randomForest{
		trees:       cfg.Trees,
		maxDepth:    cfg.MaxDepth,
		minLeaf:     cfg.MinLeafSize,
		maxFeatures: cfg.MaxFeatures,
		rng:         rng,
		logger:      logger,
	}
}
