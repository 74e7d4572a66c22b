package summary

import "math"

// Quantile returns the p-quantile of sorted by linear interpolation between
// order statistics: with h = (n-1)p, the result is
// sorted[⌊h⌋] + (h-⌊h⌋)(sorted[⌊h⌋+1] - sorted[⌊h⌋]).
//
// sorted must be in ascending order. Quantile returns NaN for empty input or
// p outside [0, 1].
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 || !(p >= 0 && p <= 1) {
		return math.NaN()
	}

	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)

	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
