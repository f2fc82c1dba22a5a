package bayesopt

import (
	"fmt"
	"slices"
)

// TopK returns the indices of the k highest scores, best first. Equal
// scores keep index order and NaN ranks below every number, so the result
// is deterministic and free of duplicates.
//
// Errors:
// - ErrInvalidBatch when k < 1
// - ErrBatchTooLarge when k > len(scores)
func TopK(scores []float64, k int) ([]int, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatch, k)
	}

	if k > len(scores) {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, k, len(scores))
	}

	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}

	slices.SortStableFunc(idx, func(a, b int) int {
		return descending(scores[a], scores[b])
	})

	return slices.Clip(idx[:k]), nil
}
