// Package card generates tombola cards and draw pools.
package card

import (
	"fmt"
	"math/rand"
	"slices"
)

// Card returns size distinct numbers from [min, max] in ascending order.
func Card(min, max, size int) ([]int, error) {
	span := max - min + 1
	if size < 1 || span < size {
		return nil, fmt.Errorf("card of %d numbers does not fit range %d..%d", size, min, max)
	}

	// first size entries of a permutation are a uniform sample without replacement
	nums := rand.Perm(span)[:size]
	for i := range nums {
		nums[i] += min
	}
	slices.Sort(nums)
	return nums, nil
}

// Pool returns every number in [min, max] in random order. The draw engine
// consumes it from the end.
func Pool(min, max int) []int {
	if max < min {
		return nil
	}
	deck := rand.Perm(max - min + 1)
	for i := range deck {
		deck[i] += min
	}
	return deck
}
