// Package resultset implements the query executor (C8) and the result
// set's post-processing operations (C9): score adjustment, clustering,
// cursoring, projections and coarse-KWIC extraction (spec.md §4.8-4.9).
package resultset

import (
	"context"

	"dbengine/fulltext/invertedlist"
	"dbengine/fulltext/query"
)

// checkCancelEvery is how often, in processed doc ids, the executor polls
// ctx for cancellation — the Go idiom for spec.md §4.8's "every N
// iterations, check a shared atomic flag" (a context.Context's Done
// channel is exactly that shared cancellation signal without a
// hand-rolled flag).
const checkCancelEvery = 256

// Hit is one matched document carried out of an Executor run.
type Hit struct {
	DocID uint32
	Score float64
}

// Executor walks a query.Node over a doc-id range or a narrowing vector,
// single-threaded and document-at-a-time.
type Executor struct {
	node         query.Node
	collectScore bool
}

// NewExecutor wraps a query plan for execution. collectScore controls
// whether Score() is called per hit (skipped when the caller only wants
// a rowid set, e.g. the narrowing-bitset path of spec.md §4.9).
func NewExecutor(node query.Node, collectScore bool) *Executor {
	return &Executor{node: node, collectScore: collectScore}
}

// RunRange executes over the closed interval [lower, upper], advancing by
// the node's own lower_bound contract, and returns the partial result and
// whether the run was cancelled.
func (e *Executor) RunRange(ctx context.Context, lower, upper uint32) ([]Hit, bool) {
	var hits []Hit
	id := lower
	count := 0
	for id != invertedlist.DocIDNone && id <= upper {
		if count > 0 && count%checkCancelEvery == 0 {
			select {
			case <-ctx.Done():
				return hits, true
			default:
			}
		}
		count++
		if !e.node.SkipTo(id) {
			break
		}
		matched := e.node.DocID()
		if matched == invertedlist.DocIDNone || matched > upper {
			break
		}
		hits = append(hits, e.hitAt(matched))
		id = matched + 1
	}
	return hits, false
}

// RunNarrowing executes only over the document ids present in narrowing
// (already sorted ascending), the narrowing-bitset search mode of
// spec.md §4.9/§6. When the plan's root node carries a Roaring bitmap
// (query.Bitmapped), each candidate is first rejected with an O(1)
// membership test before paying for a SkipTo seek.
func (e *Executor) RunNarrowing(ctx context.Context, narrowing []uint32) ([]Hit, bool) {
	bitmapped, hasBitmap := e.node.(query.Bitmapped)

	var hits []Hit
	for i, target := range narrowing {
		if i > 0 && i%checkCancelEvery == 0 {
			select {
			case <-ctx.Done():
				return hits, true
			default:
			}
		}
		if hasBitmap && !bitmapped.Bitmap().Contains(target) {
			continue
		}
		if !e.node.SkipTo(target) {
			break
		}
		if e.node.DocID() == target {
			hits = append(hits, e.hitAt(target))
		}
	}
	return hits, false
}

func (e *Executor) hitAt(docID uint32) Hit {
	score := 0.0
	if e.collectScore {
		score = e.node.Score()
	}
	return Hit{DocID: docID, Score: score}
}
