package query

import (
	"github.com/RoaringBitmap/roaring"

	"dbengine/fulltext/invertedlist"
)

// AtomicOrLeafNode treats several posting lists as interchangeable
// surface forms of the same query atom (e.g. term variants produced by
// normalization or stemming): a document matches if any of them do, and
// the atom's score is the best-scoring variant present in that document.
type AtomicOrLeafNode struct {
	pls     []*invertedlist.PostingList
	its     []invertedlist.ListIterator // its[i] walks pls[i]
	merged  *invertedlist.MultiListIterator
	bitmap  *roaring.Bitmap
	corpus  Corpus
	started bool
}

// NewAtomicOrLeafNode unions pls into a single query atom.
func NewAtomicOrLeafNode(pls []*invertedlist.PostingList, corpus Corpus) *AtomicOrLeafNode {
	its := make([]invertedlist.ListIterator, len(pls))
	bitmap := roaring.New()
	for i, pl := range pls {
		its[i] = invertedlist.NewSimpleListIterator(pl)
		bitmap.Or(pl.Bitmap)
	}
	return &AtomicOrLeafNode{pls: pls, its: its, merged: invertedlist.NewMultiListIterator(its...), bitmap: bitmap, corpus: corpus}
}

func (n *AtomicOrLeafNode) DocID() uint32 {
	if !n.started {
		return invertedlist.DocIDNone
	}
	return n.merged.DocID()
}

func (n *AtomicOrLeafNode) Frequency() uint16 {
	best := n.bestVariant()
	if best == nil {
		return 0
	}
	return best.Frequency()
}

func (n *AtomicOrLeafNode) Locations() []uint32 {
	best := n.bestVariant()
	if best == nil {
		return nil
	}
	return best.Locations()
}

func (n *AtomicOrLeafNode) bestVariant() invertedlist.ListIterator {
	current := n.merged.Current()
	if len(current) == 0 {
		return nil
	}
	best := current[0]
	bestScore := n.variantScore(best)
	for _, it := range current[1:] {
		if s := n.variantScore(it); s > bestScore {
			best, bestScore = it, s
		}
	}
	return best
}

// variantScore scores it with the IDF of the posting list it walks.
func (n *AtomicOrLeafNode) variantScore(it invertedlist.ListIterator) float64 {
	docLen := 0
	avg := 1.0
	if n.corpus != nil {
		docLen = n.corpus.DocLen(it.DocID())
		avg = n.corpus.AvgDocLen()
	}
	idf := 0.0
	for i, own := range n.its {
		if own == it {
			idf = n.pls[i].IDF
			break
		}
	}
	return bm25TermScore(idf, it.Frequency(), docLen, avg)
}

func (n *AtomicOrLeafNode) Next() bool {
	n.started = true
	return n.merged.Next()
}

func (n *AtomicOrLeafNode) SkipTo(target uint32) bool {
	n.started = true
	return n.merged.SkipTo(target)
}

func (n *AtomicOrLeafNode) Score() float64 {
	best := n.bestVariant()
	if best == nil {
		return 0
	}
	return n.variantScore(best)
}

func (n *AtomicOrLeafNode) UpperBound() float64 {
	max := 0.0
	for _, pl := range n.pls {
		if pl.MaxScore > max {
			max = pl.MaxScore
		}
	}
	return max
}

// Bitmap exposes the union of every variant's Roaring bitmap, satisfying
// Bitmapped for the merged atom as a whole.
func (n *AtomicOrLeafNode) Bitmap() *roaring.Bitmap { return n.bitmap }

func (n *AtomicOrLeafNode) Close() {}

// ShortLeafNode handles a short or very common term that would produce
// an unusably long posting list on its own: it is indexed only as part
// of bigrams with its neighbors, so matching it standalone means
// unioning every bigram posting list that contains it as one atom.
type ShortLeafNode struct {
	*AtomicOrLeafNode
}

// NewShortLeafNode builds a short-word match from its candidate bigram
// posting lists.
func NewShortLeafNode(bigramLists []*invertedlist.PostingList, corpus Corpus) *ShortLeafNode {
	return &ShortLeafNode{AtomicOrLeafNode: NewAtomicOrLeafNode(bigramLists, corpus)}
}

// ShortLeafNodeCompatible behaves like ShortLeafNode when bigram
// expansion produced more than one candidate, but degrades to a plain
// SimpleLeafNode when the short word was actually indexed standalone
// (e.g. because it also occurs as a normal-length token elsewhere),
// avoiding a spurious OR-of-one.
type ShortLeafNodeCompatible struct {
	Node
}

// NewShortLeafNodeCompatible picks the cheaper representation depending
// on how many candidate lists were found.
func NewShortLeafNodeCompatible(lists []*invertedlist.PostingList, corpus Corpus) *ShortLeafNodeCompatible {
	if len(lists) == 1 {
		return &ShortLeafNodeCompatible{Node: NewSimpleLeafNode(lists[0], corpus)}
	}
	return &ShortLeafNodeCompatible{Node: NewShortLeafNode(lists, corpus)}
}

// NormalShortLeafNode extends NormalLeafNode's proximity matching to a
// phrase containing one or more short/expanded terms: each position in
// the phrase is itself an atom (a ShortLeafNode union or a single term),
// and the phrase matches where every position's atom is present within
// maxDistance of its neighbors.
type NormalShortLeafNode struct {
	atoms       []Node
	pool        *invertedlist.LocationIteratorPool
	maxDistance uint32
	docID       uint32
	started     bool
	matched     bool
}

// NewNormalShortLeafNode builds a proximity match across atoms, where
// each atom may itself be a ShortLeafNode union rather than a bare term.
func NewNormalShortLeafNode(atoms []Node, maxDistance int) *NormalShortLeafNode {
	return &NormalShortLeafNode{
		atoms:       atoms,
		pool:        invertedlist.NewLocationIteratorPool(),
		maxDistance: clampDistance(maxDistance),
		docID:       invertedlist.DocIDNone,
	}
}

func (n *NormalShortLeafNode) advance(from uint32) bool {
	for {
		target := from
		for _, a := range n.atoms {
			if a.DocID() == invertedlist.DocIDNone || a.DocID() < target {
				if !a.SkipTo(target) {
					n.docID = invertedlist.DocIDNone
					return false
				}
			}
			if a.DocID() > target {
				target = a.DocID()
			}
		}
		allAligned := true
		for _, a := range n.atoms {
			if a.DocID() != target {
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

func (n *NormalShortLeafNode) proximityHolds() bool {
	if len(n.atoms) == 1 {
		return true
	}
	locIts := make([]invertedlist.LocationListIterator, len(n.atoms))
	for i, a := range n.atoms {
		locIts[i] = n.pool.Get(a.Locations())
	}
	od := invertedlist.NewOrderedDistanceLocationIterator(n.maxDistance, locIts...)
	ok := !od.IsEnd()
	od.Release()
	return ok
}

func (n *NormalShortLeafNode) DocID() uint32 {
	if !n.started {
		return invertedlist.DocIDNone
	}
	return n.docID
}

func (n *NormalShortLeafNode) Frequency() uint16 {
	if n.docID == invertedlist.DocIDNone || len(n.atoms) == 0 {
		return 0
	}
	return n.atoms[0].Frequency()
}

func (n *NormalShortLeafNode) Locations() []uint32 {
	if n.docID == invertedlist.DocIDNone || len(n.atoms) == 0 {
		return nil
	}
	return n.atoms[0].Locations()
}

func (n *NormalShortLeafNode) Next() bool {
	n.started = true
	if n.docID == invertedlist.DocIDNone && n.matched {
		return false
	}
	return n.advance(n.docID + 1)
}

func (n *NormalShortLeafNode) SkipTo(target uint32) bool {
	n.started = true
	return n.advance(target)
}

func (n *NormalShortLeafNode) Score() float64 {
	if n.DocID() == invertedlist.DocIDNone {
		return 0
	}
	total := 0.0
	for _, a := range n.atoms {
		total += a.Score()
	}
	return total
}

func (n *NormalShortLeafNode) UpperBound() float64 {
	total := 0.0
	for _, a := range n.atoms {
		total += a.UpperBound()
	}
	return total
}

func (n *NormalShortLeafNode) Close() {
	for _, a := range n.atoms {
		a.Close()
	}
}
