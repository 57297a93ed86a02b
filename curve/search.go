package curve

import "sort"

// bracket returns i such that xs[i] < t <= xs[i+1].
//
// xs must be sorted with at least two points and xs[0] < t <= xs[len(xs)-1];
// callers handle extrapolation first. Binary search keeps lookups O(log n).
func bracket(xs []float64, t float64) int {
	idx := sort.SearchFloat64s(xs, t)
	if idx <= 0 {
		return 0
	}
	if idx >= len(xs) {
		return len(xs) - 2
	}
	return idx - 1
}
