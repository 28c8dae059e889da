package invertedlist

import "container/heap"

// DocIDNone is returned by DocID once an iterator is exhausted.
const DocIDNone = ^uint32(0)

// ListIterator walks one posting source in ascending document-id order.
// Implementations must tolerate repeated Next calls past exhaustion.
type ListIterator interface {
	// DocID returns the current document id, or DocIDNone when exhausted.
	DocID() uint32
	Frequency() uint16
	Locations() []uint32
	// Next advances to the next document and reports whether the
	// iterator is still live.
	Next() bool
	// SkipTo advances to the first document id >= target and reports
	// whether the iterator is still live.
	SkipTo(target uint32) bool
}

// DummyListIterator is a permanently exhausted iterator: an operand that
// matches nothing. (An empty-query ShortLeafNode expansion matches nothing
// through an AtomicOrLeafNode with no variants, not through this type.)
type DummyListIterator struct{}

func (DummyListIterator) DocID() uint32       { return DocIDNone }
func (DummyListIterator) Frequency() uint16   { return 0 }
func (DummyListIterator) Locations() []uint32 { return nil }
func (DummyListIterator) Next() bool          { return false }
func (DummyListIterator) SkipTo(uint32) bool  { return false }

// simpleListIterator walks a single PostingList's parallel arrays.
type simpleListIterator struct {
	pl  *PostingList
	pos int
}

// NewSimpleListIterator returns a ListIterator over one posting list,
// positioned before the first entry; call Next to begin iteration.
func NewSimpleListIterator(pl *PostingList) ListIterator {
	return &simpleListIterator{pl: pl, pos: -1}
}

func (it *simpleListIterator) DocID() uint32 {
	if it.pos < 0 || it.pos >= len(it.pl.DocIDs) {
		return DocIDNone
	}
	return it.pl.DocIDs[it.pos]
}

func (it *simpleListIterator) Frequency() uint16 {
	if it.pos < 0 || it.pos >= len(it.pl.Freqs) {
		return 0
	}
	return it.pl.Freqs[it.pos]
}

func (it *simpleListIterator) Locations() []uint32 {
	if it.pos < 0 || it.pos >= len(it.pl.Locations) {
		return nil
	}
	return it.pl.Locations[it.pos]
}

func (it *simpleListIterator) Next() bool {
	it.pos++
	return it.pos < len(it.pl.DocIDs)
}

func (it *simpleListIterator) SkipTo(target uint32) bool {
	from := it.pos
	if from < 0 {
		from = 0
	}
	it.pos = it.pl.seekOffset(from, target)
	return it.pos < len(it.pl.DocIDs)
}

// MultiListIterator merges several ListIterators in ascending document-id
// order (logical OR). The teacher's original design cached each child
// iterator's current position in hand-maintained m_b/m_e/m_i fields and
// re-scanned them linearly to find the minimum; this module replaces that
// with a container/heap min-heap, per the REDESIGN FLAGS directive to
// prefer stdlib heap machinery over deep manual iterator bookkeeping.
type MultiListIterator struct {
	h *iterHeap
}

type heapEntry struct {
	it  ListIterator
	idx int // position among the constructor's children, the tie-break
}

type iterHeap []heapEntry

func (h iterHeap) Len() int { return len(h) }
func (h iterHeap) Less(i, j int) bool {
	di, dj := h[i].it.DocID(), h[j].it.DocID()
	if di != dj {
		return di < dj
	}
	return h[i].idx < h[j].idx
}
func (h iterHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *iterHeap) Push(x interface{}) { *h = append(*h, x.(heapEntry)) }
func (h *iterHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// NewMultiListIterator merges children into one ascending-docID iterator.
func NewMultiListIterator(children ...ListIterator) *MultiListIterator {
	h := make(iterHeap, 0, len(children))
	for i, c := range children {
		if c.Next() {
			h = append(h, heapEntry{it: c, idx: i})
		}
	}
	heap.Init(&h)
	return &MultiListIterator{h: &h}
}

// DocID returns the smallest current document id among live children.
func (m *MultiListIterator) DocID() uint32 {
	if m.h.Len() == 0 {
		return DocIDNone
	}
	return (*m.h)[0].it.DocID()
}

// Current returns every child iterator currently positioned at DocID(),
// letting an OperatorNode accumulate a combined frequency/score.
func (m *MultiListIterator) Current() []ListIterator {
	if m.h.Len() == 0 {
		return nil
	}
	doc := m.DocID()
	var matches []ListIterator
	for _, e := range *m.h {
		if e.it.DocID() == doc {
			matches = append(matches, e.it)
		}
	}
	return matches
}

// Next advances every child currently at the minimum document id and
// reports whether any child remains live.
func (m *MultiListIterator) Next() bool {
	if m.h.Len() == 0 {
		return false
	}
	doc := m.DocID()
	for m.h.Len() > 0 && (*m.h)[0].it.DocID() == doc {
		top := heap.Pop(m.h).(heapEntry)
		if top.it.Next() {
			heap.Push(m.h, top)
		}
	}
	return m.h.Len() > 0
}

// SkipTo advances every live child to the first document id >= target.
func (m *MultiListIterator) SkipTo(target uint32) bool {
	var remaining iterHeap
	for m.h.Len() > 0 {
		top := heap.Pop(m.h).(heapEntry)
		if top.it.SkipTo(target) {
			remaining = append(remaining, top)
		}
	}
	*m.h = remaining
	heap.Init(m.h)
	return m.h.Len() > 0
}
