package query

import (
	"github.com/RoaringBitmap/roaring"

	"dbengine/fulltext/invertedlist"
)

// SimpleLeafNode matches a single term exactly, with no proximity
// constraint — the base case every other leaf variant builds on.
type SimpleLeafNode struct {
	pl      *invertedlist.PostingList
	it      invertedlist.ListIterator
	corpus  Corpus
	started bool
}

// NewSimpleLeafNode wraps one term's posting list as a query Node.
func NewSimpleLeafNode(pl *invertedlist.PostingList, corpus Corpus) *SimpleLeafNode {
	return &SimpleLeafNode{pl: pl, it: invertedlist.NewSimpleListIterator(pl), corpus: corpus}
}

func (n *SimpleLeafNode) DocID() uint32 {
	if !n.started {
		return invertedlist.DocIDNone
	}
	return n.it.DocID()
}

func (n *SimpleLeafNode) Frequency() uint16   { return n.it.Frequency() }
func (n *SimpleLeafNode) Locations() []uint32 { return n.it.Locations() }

func (n *SimpleLeafNode) Next() bool {
	n.started = true
	return n.it.Next()
}

func (n *SimpleLeafNode) SkipTo(target uint32) bool {
	n.started = true
	return n.it.SkipTo(target)
}

func (n *SimpleLeafNode) Score() float64 {
	if n.DocID() == invertedlist.DocIDNone {
		return 0
	}
	docLen := 0
	if n.corpus != nil {
		docLen = n.corpus.DocLen(n.DocID())
	}
	avg := 1.0
	if n.corpus != nil {
		avg = n.corpus.AvgDocLen()
	}
	return bm25TermScore(n.pl.IDF, n.Frequency(), docLen, avg)
}

func (n *SimpleLeafNode) UpperBound() float64 { return n.pl.MaxScore }

// Bitmap exposes the underlying posting list's Roaring bitmap for O(1)
// membership tests, satisfying Bitmapped.
func (n *SimpleLeafNode) Bitmap() *roaring.Bitmap { return n.pl.Bitmap }

func (n *SimpleLeafNode) Close() {}

// OperatorTermNode adapts a LeafNode-shaped term match into the uniform
// Node slot an OperatorNode's children occupy — the "term leaf" case of
// the operator tree, as distinct from a nested And/Or/AndNot subtree.
type OperatorTermNode struct {
	*SimpleLeafNode
}

// NewOperatorTermNode builds the term-leaf case of an operator tree node.
func NewOperatorTermNode(pl *invertedlist.PostingList, corpus Corpus) *OperatorTermNode {
	return &OperatorTermNode{SimpleLeafNode: NewSimpleLeafNode(pl, corpus)}
}
