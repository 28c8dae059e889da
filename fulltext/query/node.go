// Package query implements the LeafNode and OperatorNode trees (C6+C7):
// a document-at-a-time query plan, document ids flowing bottom-up through
// leaf term matches and operator combinators, with BM25 scoring and WAND
// upper bounds for early termination (spec.md §4.6/§4.7).
package query

import (
	"github.com/RoaringBitmap/roaring"

	"dbengine/fulltext/invertedlist"
)

// Corpus supplies the document statistics BM25 needs: a document's length
// in tokens, the corpus average, and the total document count.
type Corpus interface {
	DocLen(docID uint32) int
	AvgDocLen() float64
	NumDocs() int
}

// bm25K1 and bm25B are the standard Okapi BM25 tuning constants, matching
// the values the production FTS driver this package is enriched from uses.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

func bm25TermScore(idf float64, tf uint16, docLen int, avgDocLen float64) float64 {
	if avgDocLen == 0 {
		avgDocLen = 1
	}
	f := float64(tf)
	dl := float64(docLen)
	norm := (f * (bm25K1 + 1)) / (f + bm25K1*(1-bm25B+bm25B*dl/avgDocLen))
	return idf * norm
}

// Node is a document-at-a-time evaluation step: a leaf term match or an
// operator combining several subtrees. Every Node is itself a ListIterator
// so operators compose uniformly regardless of depth.
type Node interface {
	invertedlist.ListIterator
	// Score returns this node's contribution to the document currently
	// pointed at. Meaningless when the node is exhausted.
	Score() float64
	// UpperBound returns the maximum score this node could ever
	// contribute to any document, used by OrNode's WAND pivot selection.
	UpperBound() float64
	// Close releases any pooled resources (location iterators) the node
	// holds, per the location-iterator release contract.
	Close()
}

// Bitmapped is implemented by leaf nodes backed by one or more Roaring
// bitmaps, letting a caller (e.g. the narrowing-bitset executor path) run
// an O(1) membership test against a candidate doc id before paying for a
// SkipTo seek through the node's iterators.
type Bitmapped interface {
	Bitmap() *roaring.Bitmap
}

func clampDistance(d int) uint32 {
	if d < 0 {
		return 0
	}
	return uint32(d)
}
