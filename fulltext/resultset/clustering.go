package resultset

import "math"

// representative is a detail-cluster's seed row, carried into the final
// cross-boundary merge pass.
type representative struct {
	rowIdx int
	vec    []WordData
}

// Clustering runs the three-stage clustering pipeline described in
// spec.md §4.9: rough clusters by score-gap detection, detail clusters
// within each rough cluster by feature-vector similarity, then a final
// merge of detail-cluster representatives across rough-cluster
// boundaries. Rows must already be sorted by descending score (callers
// typically call Sort(BySortScore, Desc) first).
func (rs *ResultSet) Clustering() {
	if len(rs.rows) == 0 {
		return
	}
	roughBounds := rs.roughClusterBounds()
	nextID := 0
	var reps []representative

	start := 0
	for _, end := range roughBounds {
		localIDs := rs.detailCluster(start, end, &nextID)
		for i := start; i < end; i++ {
			rs.rows[i].ClusterID = localIDs[i-start]
		}
		for id := range distinctInts(localIDs) {
			firstIdx := start + firstIndexOf(localIDs, id)
			reps = append(reps, representative{rowIdx: firstIdx, vec: rs.rows[firstIdx].Features})
		}
		start = end
	}

	rs.mergeRepresentatives(reps)
	rs.clustered = true
}

// roughClusterBounds scans rows in windows of up to MaxRoughClusterSize,
// marking a new rough-cluster boundary wherever the score drop between
// adjacent rows exceeds the window's mean drop — spec.md §4.9's
// score-gap detection. Returns exclusive end indices.
func (rs *ResultSet) roughClusterBounds() []int {
	window := rs.cluster.MaxRoughClusterSize
	if window <= 0 {
		window = 1024
	}
	var bounds []int
	n := len(rs.rows)
	for winStart := 0; winStart < n; {
		winEnd := winStart + window
		if winEnd > n {
			winEnd = n
		}
		meanDrop := 0.0
		count := 0
		for i := winStart; i < winEnd-1; i++ {
			meanDrop += rs.rows[i].Score - rs.rows[i+1].Score
			count++
		}
		if count > 0 {
			meanDrop /= float64(count)
		}
		boundary := winEnd
		for i := winStart; i < winEnd-1; i++ {
			if rs.rows[i].Score-rs.rows[i+1].Score > meanDrop {
				boundary = i + 1
				break
			}
		}
		bounds = append(bounds, boundary)
		winStart = boundary
	}
	if len(bounds) == 0 || bounds[len(bounds)-1] != n {
		bounds = append(bounds, n)
	}
	return bounds
}

// localClusteredLimit resolves the configured similarity threshold,
// applying spec.md §6's documented default: an empty/zero
// Inverted_LocalClusteredLimit falls back to the midpoint between 1.0
// (perfect similarity) and the configured GlobalLimit.
func (rs *ResultSet) localClusteredLimit() float64 {
	if rs.cluster.LocalClusteredLimit > 0 {
		return rs.cluster.LocalClusteredLimit
	}
	return (1.0 + float64(rs.cluster.GlobalLimit)) / 2
}

// detailCluster groups rows[start:end) by feature-vector similarity
// against each cluster's running centroid, assigning local (0-based,
// reset per call) cluster ids.
func (rs *ResultSet) detailCluster(start, end int, nextID *int) []int {
	limit := rs.localClusteredLimit()
	ids := make([]int, end-start)
	type centroid struct {
		id   int
		vec  map[string]float64
		size int
	}
	var centroids []centroid

	for i := start; i < end; i++ {
		vec := featureMap(rs.rows[i].Features)
		best := -1
		bestSim := -1.0
		for ci, c := range centroids {
			sim := innerProduct(vec, c.vec)
			if sim > bestSim {
				bestSim, best = sim, ci
			}
		}
		if best >= 0 && bestSim >= limit {
			ids[i-start] = centroids[best].id
			mergeFeature(centroids[best].vec, vec, rs.cluster.Combiner, centroids[best].size)
			centroids[best].size++
			continue
		}
		id := *nextID
		*nextID++
		ids[i-start] = id
		centroids = append(centroids, centroid{id: id, vec: vec, size: 1})
	}
	return ids
}

// mergeRepresentatives re-clusters detail-cluster representatives across
// rough-cluster boundaries, considering only a neighbor window
// (MergeWindow, default 10) around each representative — spec.md §4.9's
// final merge pass.
func (rs *ResultSet) mergeRepresentatives(reps []representative) {
	window := rs.cluster.MergeWindow
	if window <= 0 {
		window = 10
	}
	limit := rs.localClusteredLimit()
	for i := range reps {
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		for j := lo; j < i; j++ {
			sim := innerProduct(featureMap(reps[i].vec), featureMap(reps[j].vec))
			if sim >= limit {
				oldID := rs.rows[reps[i].rowIdx].ClusterID
				newID := rs.rows[reps[j].rowIdx].ClusterID
				rs.relabelCluster(oldID, newID)
				break
			}
		}
	}
}

func (rs *ResultSet) relabelCluster(from, to int) {
	if from == to {
		return
	}
	for i := range rs.rows {
		if rs.rows[i].ClusterID == from {
			rs.rows[i].ClusterID = to
		}
	}
}

func featureMap(features []WordData) map[string]float64 {
	m := make(map[string]float64, len(features))
	for _, f := range features {
		m[f.Term] += f.Weight
	}
	return m
}

func mergeFeature(centroid, incoming map[string]float64, combiner Combiner, priorSize int) {
	for term, w := range incoming {
		switch combiner {
		case CombineMax:
			if w > centroid[term] {
				centroid[term] = w
			}
		default: // CombineAvg
			centroid[term] = (centroid[term]*float64(priorSize) + w) / float64(priorSize+1)
		}
	}
}

func innerProduct(a, b map[string]float64) float64 {
	var dot, na, nb float64
	for term, w := range a {
		dot += w * b[term]
		na += w * w
	}
	for _, w := range b {
		nb += w * w
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func distinctInts(xs []int) map[int]struct{} {
	m := make(map[int]struct{})
	for _, x := range xs {
		m[x] = struct{}{}
	}
	return m
}

func firstIndexOf(xs []int, v int) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return 0
}
