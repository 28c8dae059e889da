// Package parallel implements the parallel orchestrator (C12, spec.md
// §4.12): partitioning the doc-id space into cost-balanced bands,
// running one Executor per band concurrently, and merging their
// per-band result sets back into one ordered result.
package parallel

// Band is a doc-id interval [Lower, Upper] assigned to one worker.
type Band struct {
	Lower uint32
	Upper uint32
}

// Partition splits [0, totalDocs) into k bands of approximately equal
// expected cost, where cost is the sum over terms of their posting
// count — a dense run of high-frequency terms gets a narrower doc-id
// range than a sparse one, per spec.md §4.12 step 1.
//
// termPostingCountByBand supplies, for each of its len() equal-width
// doc-id slices of [0, totalDocs), the total posting count falling in
// that slice (the caller derives this from its posting lists' doc-id
// distributions). Buckets are then greedily grouped into k bands so each
// band's cumulative cost is close to totalCost/k.
func Partition(totalDocs uint32, termPostingCountByBand []int, k int) []Band {
	if k <= 0 {
		k = 1
	}
	if totalDocs == 0 {
		return nil
	}
	if len(termPostingCountByBand) == 0 {
		return evenSplit(totalDocs, k)
	}

	totalCost := 0
	for _, c := range termPostingCountByBand {
		totalCost += c
	}
	if totalCost == 0 {
		return evenSplit(totalDocs, k)
	}
	targetPerBand := totalCost / k
	if targetPerBand == 0 {
		targetPerBand = 1
	}

	numBuckets := len(termPostingCountByBand)
	bucketWidth := totalDocs / uint32(numBuckets)
	if bucketWidth == 0 {
		bucketWidth = 1
	}

	var bands []Band
	running := 0
	bandStart := uint32(0)
	for i, cost := range termPostingCountByBand {
		running += cost
		isLastBucket := i == numBuckets-1
		if running >= targetPerBand && len(bands) < k-1 || isLastBucket {
			end := uint32(i+1) * bucketWidth
			if isLastBucket || end > totalDocs {
				end = totalDocs
			}
			bands = append(bands, Band{Lower: bandStart, Upper: end - 1})
			bandStart = end
			running = 0
		}
	}
	if bandStart < totalDocs {
		bands = append(bands, Band{Lower: bandStart, Upper: totalDocs - 1})
	}
	return bands
}

func evenSplit(totalDocs uint32, k int) []Band {
	width := totalDocs / uint32(k)
	if width == 0 {
		width = 1
	}
	var bands []Band
	start := uint32(0)
	for start < totalDocs {
		end := start + width
		if end > totalDocs {
			end = totalDocs
		}
		bands = append(bands, Band{Lower: start, Upper: end - 1})
		start = end
	}
	return bands
}
