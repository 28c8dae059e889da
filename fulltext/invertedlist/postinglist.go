// Package invertedlist implements the per-term posting store (C5): a
// Roaring-bitmap-backed posting list with skip pointers and score upper
// bounds for WAND, plus the ListIterator family used to walk one or more
// posting lists in document-id order.
package invertedlist

import (
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// skipStride is the number of postings between consecutive skip-pointer
// entries, trading skip-table size against seek speed.
const skipStride = 128

// PostingList is the in-memory unit for one indexed term: every document
// containing the term, its term frequency, and the per-document location
// list needed for proximity search (spec.md §4.5).
type PostingList struct {
	Term string

	// Bitmap mirrors DocIDs as a Roaring bitmap for fast membership tests
	// and set operations (union/intersection) independent of position.
	Bitmap *roaring.Bitmap

	DocIDs    []uint32
	Freqs     []uint16
	Locations [][]uint32 // per-document term offsets, ascending

	SkipDocs   []uint32 // doc id at each skip point
	SkipOffset []int    // offset into DocIDs at each skip point

	MaxScore float64 // upper bound on this term's contribution to any document's score
	IDF      float64
}

// NewPostingList builds a PostingList from parallel (docID, freq, locations)
// entries which must already be sorted by ascending docID.
func NewPostingList(term string, docIDs []uint32, freqs []uint16, locations [][]uint32) *PostingList {
	pl := &PostingList{
		Term:      term,
		Bitmap:    roaring.New(),
		DocIDs:    docIDs,
		Freqs:     freqs,
		Locations: locations,
	}
	pl.Bitmap.AddMany(docIDs)
	pl.buildSkipPointers()
	return pl
}

func (pl *PostingList) buildSkipPointers() {
	for i := 0; i < len(pl.DocIDs); i += skipStride {
		pl.SkipDocs = append(pl.SkipDocs, pl.DocIDs[i])
		pl.SkipOffset = append(pl.SkipOffset, i)
	}
}

// DocFrequency is the number of documents this term appears in.
func (pl *PostingList) DocFrequency() int { return len(pl.DocIDs) }

// Contains is an O(1) membership test against the Roaring bitmap, used to
// reject a candidate document before paying for a skip-pointer seek.
func (pl *PostingList) Contains(docID uint32) bool { return pl.Bitmap.Contains(docID) }

// SetIDF computes and stores this term's inverse document frequency using
// the BM25 IDF formula, and refreshes MaxScore from the highest
// frequency-normalized score any single document could contribute.
func (pl *PostingList) SetIDF(totalDocs int) {
	n := float64(totalDocs)
	df := float64(pl.DocFrequency())
	pl.IDF = math.Log(1 + (n-df+0.5)/(df+0.5))

	// The BM25 term score (k1=1.2, b=0.75) is largest at the highest term
	// frequency and a zero document length.
	const k1, b = 1.2, 0.75
	maxFreq := uint16(0)
	for _, f := range pl.Freqs {
		if f > maxFreq {
			maxFreq = f
		}
	}
	f := float64(maxFreq)
	pl.MaxScore = pl.IDF * (f * (k1 + 1)) / (f + k1*(1-b))
}

// seekOffset returns the smallest DocIDs index i with DocIDs[i] >= target,
// using the skip table to jump near the answer before a linear scan.
func (pl *PostingList) seekOffset(from int, target uint32) int {
	start := from
	for i := len(pl.SkipDocs) - 1; i >= 0; i-- {
		if pl.SkipDocs[i] <= target && pl.SkipOffset[i] >= from {
			start = pl.SkipOffset[i]
			break
		}
	}
	idx := sort.Search(len(pl.DocIDs)-start, func(i int) bool {
		return pl.DocIDs[start+i] >= target
	})
	return start + idx
}
