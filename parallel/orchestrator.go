package parallel

import (
	"container/heap"
	"context"
	"sync"

	"dbengine/fulltext/query"
	"dbengine/fulltext/resultset"
)

// NodeFactory builds one independent evaluation of a query plan. Every
// call must return a Node backed by its own ListIterator state (fresh
// simpleListIterator positions, fresh pooled location iterators) but may
// share read-only inputs (posting lists, corpus statistics) across
// calls — the Go equivalent of the original's per-worker `copy()` deep
// clone, since this module's nodes hold no other mutable state to
// duplicate (see DESIGN.md).
type NodeFactory func() query.Node

// Orchestrator runs a query plan over K cost-balanced doc-id bands in
// parallel and merges the results, per spec.md §4.12.
type Orchestrator struct {
	newNode      NodeFactory
	collectScore bool
}

// New builds an orchestrator over newNode, collecting scores per hit
// when collectScore is set.
func New(newNode NodeFactory, collectScore bool) *Orchestrator {
	return &Orchestrator{newNode: newNode, collectScore: collectScore}
}

// bandResult is one worker's output, tagged with its band so errors and
// cancellation can be attributed and results merged in band order.
type bandResult struct {
	band      Band
	hits      []resultset.Hit
	cancelled bool
}

// Run partitions [0,totalDocs) via Partition, executes one Executor per
// band concurrently, and merges all K result sets by the requested sort
// key via a K-way merge.
func (o *Orchestrator) Run(ctx context.Context, totalDocs uint32, termPostingCountByBand []int, k int, key resultset.SortKey, order resultset.SortOrder) ([]resultset.Hit, bool) {
	bands := Partition(totalDocs, termPostingCountByBand, k)
	results := make([]bandResult, len(bands))

	var wg sync.WaitGroup
	for i, b := range bands {
		wg.Add(1)
		go func(i int, b Band) {
			defer wg.Done()
			node := o.newNode()
			defer node.Close()
			exec := resultset.NewExecutor(node, o.collectScore)
			hits, cancelled := exec.RunRange(ctx, b.Lower, b.Upper)
			results[i] = bandResult{band: b, hits: hits, cancelled: cancelled}
		}(i, b)
	}
	wg.Wait()

	anyCancelled := false
	sorted := make([][]resultset.Hit, len(results))
	for i, r := range results {
		if r.cancelled {
			anyCancelled = true
		}
		sorted[i] = sortedHits(r.hits, key, order)
	}
	return kWayMerge(sorted, key, order), anyCancelled
}

// sortedHits orders one band's raw (ascending-docID) hits by the
// requested merge key before they enter the K-way merge, which assumes
// each lane already obeys that order.
func sortedHits(hits []resultset.Hit, key resultset.SortKey, order resultset.SortOrder) []resultset.Hit {
	if key == resultset.BySortDocID && order == resultset.Asc {
		return hits // RunRange already yields ascending doc ids
	}
	rs := resultset.New(hits)
	rs.Sort(key, order)
	rows := rs.Rows()
	out := make([]resultset.Hit, len(rows))
	for i, row := range rows {
		out[i] = resultset.Hit{DocID: row.DocID, Score: row.Score}
	}
	return out
}

// mergeEntry is one lane's current head, tracked in the merge heap.
type mergeEntry struct {
	hit     resultset.Hit
	laneIdx int
	elemIdx int
}

type mergeHeap struct {
	entries []mergeEntry
	key     resultset.SortKey
	order   resultset.SortOrder
}

func (h mergeHeap) Len() int { return len(h.entries) }
func (h mergeHeap) Less(i, j int) bool {
	a, b := h.entries[i].hit, h.entries[j].hit
	less := false
	switch h.key {
	case resultset.BySortScore:
		less = a.Score < b.Score
	case resultset.BySortDocID:
		less = a.DocID < b.DocID
	}
	if h.order == resultset.Desc {
		return !less
	}
	return less
}
func (h mergeHeap) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }
func (h *mergeHeap) Push(x interface{}) {
	h.entries = append(h.entries, x.(mergeEntry))
}
func (h *mergeHeap) Pop() interface{} {
	old := h.entries
	n := len(old)
	e := old[n-1]
	h.entries = old[:n-1]
	return e
}

// kWayMerge merges already per-lane-sorted (by key/order) hit slices
// into one globally ordered slice, spec.md §4.12 step 4.
func kWayMerge(lanes [][]resultset.Hit, key resultset.SortKey, order resultset.SortOrder) []resultset.Hit {
	h := &mergeHeap{key: key, order: order}
	for laneIdx, lane := range lanes {
		if len(lane) > 0 {
			heap.Push(h, mergeEntry{hit: lane[0], laneIdx: laneIdx, elemIdx: 0})
		}
	}
	heap.Init(h)

	var merged []resultset.Hit
	for h.Len() > 0 {
		top := heap.Pop(h).(mergeEntry)
		merged = append(merged, top.hit)
		nextIdx := top.elemIdx + 1
		if nextIdx < len(lanes[top.laneIdx]) {
			heap.Push(h, mergeEntry{hit: lanes[top.laneIdx][nextIdx], laneIdx: top.laneIdx, elemIdx: nextIdx})
		}
	}
	return merged
}
