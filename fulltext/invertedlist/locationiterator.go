package invertedlist

import "sync"

// LocationListIterator walks one document's term-offset list in ascending
// order, used by proximity operators to test whether two terms occur
// within a bounded distance of each other (spec.md §4.6).
type LocationListIterator interface {
	Location() uint32
	IsEnd() bool
	Next()
	Reset()
	// Release returns the iterator (and, for composite iterators, every
	// child iterator it holds) to its owning pool. The iterator must not
	// be used again afterward — the same AutoPointer::release() contract
	// as the original driver's location iterators.
	Release()
}

// simpleLocationIterator walks a single document's location slice.
type simpleLocationIterator struct {
	pool *LocationIteratorPool
	locs []uint32
	pos  int
}

func (it *simpleLocationIterator) Location() uint32 {
	if it.IsEnd() {
		return 0
	}
	return it.locs[it.pos]
}

func (it *simpleLocationIterator) IsEnd() bool { return it.pos >= len(it.locs) }

func (it *simpleLocationIterator) Next() { it.pos++ }

func (it *simpleLocationIterator) Reset() { it.pos = 0 }

func (it *simpleLocationIterator) Release() {
	it.locs = nil
	it.pos = 0
	if it.pool != nil {
		it.pool.put(it)
	}
}

// LocationIteratorPool recycles simpleLocationIterator instances so a
// proximity search over many documents doesn't allocate a fresh iterator
// per document. Get/put mirror the original driver's manual free-list.
type LocationIteratorPool struct {
	pool sync.Pool
}

// NewLocationIteratorPool creates an empty pool.
func NewLocationIteratorPool() *LocationIteratorPool {
	p := &LocationIteratorPool{}
	p.pool.New = func() interface{} { return &simpleLocationIterator{} }
	return p
}

// Get returns a LocationListIterator positioned at the start of locs,
// reusing a pooled instance when one is available.
func (p *LocationIteratorPool) Get(locs []uint32) LocationListIterator {
	it := p.pool.Get().(*simpleLocationIterator)
	it.pool = p
	it.locs = locs
	it.pos = 0
	return it
}

func (p *LocationIteratorPool) put(it *simpleLocationIterator) {
	p.pool.Put(it)
}

// OrderedDistanceLocationIterator walks several child location iterators in
// lockstep, advancing the one furthest behind (by phrase-relative position)
// until every child's location, once shifted back by its index in the
// phrase, falls within maxDistance of the others, AND the children's raw
// locations occur in the order they were pushed. Child i is treated as
// occupying phrase-relative offset i, so maxDistance 0 requires the exact
// adjacent run pos, pos+1, pos+2, ... — the generalized form of
// ModInvertedWordOrderedDistanceNode's word order/proximity matching
// (original_source grounding; see DESIGN.md).
type OrderedDistanceLocationIterator struct {
	children    []LocationListIterator
	maxDistance uint32
	first       uint32
	ended       bool
}

// NewOrderedDistanceLocationIterator builds an iterator that reports a
// match wherever, after normalizing each child's location by its index in
// the phrase, all children fall within maxDistance of each other and occur
// in ascending raw-location order.
func NewOrderedDistanceLocationIterator(maxDistance uint32, children ...LocationListIterator) *OrderedDistanceLocationIterator {
	it := &OrderedDistanceLocationIterator{children: children, maxDistance: maxDistance}
	it.seekMatch()
	return it
}

func (it *OrderedDistanceLocationIterator) seekMatch() {
	for {
		for _, c := range it.children {
			if c.IsEnd() {
				it.ended = true
				return
			}
		}
		rawMin := it.children[0].Location()
		normMin, normMax := int64(rawMin), int64(rawMin)
		furthestBehind := 0
		ordered := true
		for i, c := range it.children {
			loc := c.Location()
			if loc < rawMin {
				rawMin = loc
			}
			norm := int64(loc) - int64(i)
			if norm < normMin {
				normMin, furthestBehind = norm, i
			}
			if norm > normMax {
				normMax = norm
			}
			if i > 0 && c.Location() <= it.children[i-1].Location() {
				ordered = false
			}
		}
		if ordered && normMax-normMin <= int64(it.maxDistance) {
			it.first = rawMin
			return
		}
		it.children[furthestBehind].Next()
	}
}

func (it *OrderedDistanceLocationIterator) Location() uint32 { return it.first }

func (it *OrderedDistanceLocationIterator) IsEnd() bool { return it.ended }

func (it *OrderedDistanceLocationIterator) Next() {
	it.children[0].Next()
	it.seekMatch()
}

func (it *OrderedDistanceLocationIterator) Reset() {
	for _, c := range it.children {
		c.Reset()
	}
	it.ended = false
	it.seekMatch()
}

// Release releases every child iterator, then forgets them — the
// composite-iterator half of the AutoPointer::release() contract
// (ModInvertedOrderedDistanceLocationListIterator::release()).
func (it *OrderedDistanceLocationIterator) Release() {
	for _, c := range it.children {
		c.Release()
	}
	it.children = nil
}
