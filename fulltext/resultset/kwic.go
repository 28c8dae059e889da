package resultset

// CoarseKWIC computes a rough keyword-in-context window position for a
// hit, per spec.md §4.9: find the window (of size kwicSize, scaled by
// the ratio between normalized and original document length) containing
// the most distinct query-term hit positions, then map back to original
// coordinates and expand by the scale factor.
func CoarseKWIC(hitPositions []int, normalizedLen, originalLen, kwicSize int, scaleFactor float64) (seedPos int, windowStart int, windowEnd int) {
	if originalLen == 0 || len(hitPositions) == 0 {
		return 0, 0, 0
	}
	adjust := float64(normalizedLen) / float64(originalLen)
	window := int(float64(kwicSize) * adjust)
	if window <= 0 {
		window = 1
	}

	bestStart := hitPositions[0]
	bestCount := 0
	for _, start := range hitPositions {
		count := countDistinctInWindow(hitPositions, start, start+window)
		if count > bestCount || (count == bestCount && start < bestStart) {
			bestCount = count
			bestStart = start
		}
	}

	seed := int(float64(bestStart) / adjustOrOne(adjust))
	expand := int((scaleFactor - 1) * float64(kwicSize) / 2)
	start := seed - expand
	end := seed + kwicSize + expand
	if start < 0 {
		start = 0
	}
	if end > originalLen {
		end = originalLen
	}
	return seed, start, end
}

func adjustOrOne(adjust float64) float64 {
	if adjust == 0 {
		return 1
	}
	return adjust
}

func countDistinctInWindow(positions []int, start, end int) int {
	seen := make(map[int]struct{})
	for _, p := range positions {
		if p >= start && p < end {
			seen[p] = struct{}{}
		}
	}
	return len(seen)
}
