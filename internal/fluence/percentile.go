package fluence

// computePercentile uses linear interpolation between order statistics.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
//
// The interpolation is evaluated from the nearer order statistic, matching
// numpy's default "linear" method bit for bit.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	// Index for percentile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	a, b := sorted[lower], sorted[upper]
	diff := b - a
	if frac >= 0.5 {
		return b - diff*(1-frac)
	}
	return a + diff*frac
}
