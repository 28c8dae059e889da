package query

import "dbengine/fulltext/invertedlist"

// NormalLeafNode matches a sequence of terms that must all occur in a
// document within maxDistance token positions of each other, in order
// (a phrase or loose-proximity match) — the general case a plain
// SimpleLeafNode doesn't cover.
type NormalLeafNode struct {
	pls         []*invertedlist.PostingList
	its         []invertedlist.ListIterator
	corpus      Corpus
	pool        *invertedlist.LocationIteratorPool
	maxDistance uint32
	docID       uint32
	started     bool
	matched     bool
}

// NewNormalLeafNode builds a proximity match over pls, each term required
// to appear within maxDistance token positions of its neighbors.
func NewNormalLeafNode(pls []*invertedlist.PostingList, maxDistance int, corpus Corpus) *NormalLeafNode {
	its := make([]invertedlist.ListIterator, len(pls))
	for i, pl := range pls {
		its[i] = invertedlist.NewSimpleListIterator(pl)
	}
	return &NormalLeafNode{
		pls:         pls,
		its:         its,
		corpus:      corpus,
		pool:        invertedlist.NewLocationIteratorPool(),
		maxDistance: clampDistance(maxDistance),
		docID:       invertedlist.DocIDNone,
	}
}

// advance moves every child iterator to the next document id at which
// all children are present and the proximity constraint is satisfied,
// starting the search from (and including) `from`.
func (n *NormalLeafNode) advance(from uint32) bool {
	for {
		target := from
		for _, it := range n.its {
			if it.DocID() == invertedlist.DocIDNone || it.DocID() < target {
				if !it.SkipTo(target) {
					n.docID = invertedlist.DocIDNone
					return false
				}
			}
			if it.DocID() > target {
				target = it.DocID()
			}
		}
		allAligned := true
		for _, it := range n.its {
			if it.DocID() != target {
				allAligned = false
				break
			}
		}
		if !allAligned {
			from = target
			continue
		}
		if n.proximityHolds() {
			n.docID = target
			n.matched = true
			return true
		}
		from = target + 1
	}
}

func (n *NormalLeafNode) proximityHolds() bool {
	if len(n.its) == 1 {
		return true
	}
	locIts := make([]invertedlist.LocationListIterator, len(n.its))
	for i, it := range n.its {
		locIts[i] = n.pool.Get(it.Locations())
	}
	od := invertedlist.NewOrderedDistanceLocationIterator(n.maxDistance, locIts...)
	ok := !od.IsEnd()
	od.Release()
	return ok
}

func (n *NormalLeafNode) DocID() uint32 {
	if !n.started {
		return invertedlist.DocIDNone
	}
	return n.docID
}

func (n *NormalLeafNode) Frequency() uint16 {
	if n.docID == invertedlist.DocIDNone || len(n.its) == 0 {
		return 0
	}
	return n.its[0].Frequency()
}

func (n *NormalLeafNode) Locations() []uint32 {
	if n.docID == invertedlist.DocIDNone || len(n.its) == 0 {
		return nil
	}
	return n.its[0].Locations()
}

func (n *NormalLeafNode) Next() bool {
	n.started = true
	if n.docID == invertedlist.DocIDNone && n.matched {
		return false
	}
	return n.advance(n.docID + 1)
}

func (n *NormalLeafNode) SkipTo(target uint32) bool {
	n.started = true
	return n.advance(target)
}

func (n *NormalLeafNode) Score() float64 {
	if n.DocID() == invertedlist.DocIDNone {
		return 0
	}
	docLen := 0
	avg := 1.0
	if n.corpus != nil {
		docLen = n.corpus.DocLen(n.DocID())
		avg = n.corpus.AvgDocLen()
	}
	total := 0.0
	for i, pl := range n.pls {
		total += bm25TermScore(pl.IDF, n.its[i].Frequency(), docLen, avg)
	}
	return total
}

func (n *NormalLeafNode) UpperBound() float64 {
	total := 0.0
	for _, pl := range n.pls {
		total += pl.MaxScore
	}
	return total
}

func (n *NormalLeafNode) Close() {}
