package query

import (
	"testing"

	"dbengine/fulltext/invertedlist"
)

type fakeCorpus struct {
	lens map[uint32]int
	avg  float64
	n    int
}

func (c fakeCorpus) DocLen(docID uint32) int { return c.lens[docID] }
func (c fakeCorpus) AvgDocLen() float64      { return c.avg }
func (c fakeCorpus) NumDocs() int            { return c.n }

func drain(n Node) []uint32 {
	var docs []uint32
	if n.DocID() == invertedlist.DocIDNone {
		if !n.Next() {
			return nil
		}
	}
	for n.DocID() != invertedlist.DocIDNone {
		docs = append(docs, n.DocID())
		if !n.Next() {
			break
		}
	}
	return docs
}

func corpus() fakeCorpus {
	return fakeCorpus{lens: map[uint32]int{1: 10, 2: 10, 3: 10, 4: 10, 5: 10}, avg: 10, n: 5}
}

func Test_simpleLeafNodeScoresPresentDocs(t *testing.T) {
	pl := invertedlist.NewPostingList("cat", []uint32{1, 3}, []uint16{2, 5}, nil)
	pl.SetIDF(5)
	n := NewSimpleLeafNode(pl, corpus())

	docs := drain(n)
	if len(docs) != 2 || docs[0] != 1 || docs[1] != 3 {
		t.Fatalf("unexpected docs: %v", docs)
	}
}

func Test_andNodeRequiresAllChildrenPresent(t *testing.T) {
	a := invertedlist.NewPostingList("a", []uint32{1, 2, 3}, []uint16{1, 1, 1}, nil)
	b := invertedlist.NewPostingList("b", []uint32{2, 3, 4}, []uint16{1, 1, 1}, nil)
	a.SetIDF(5)
	b.SetIDF(5)

	and := NewAndNode(NewSimpleLeafNode(a, corpus()), NewSimpleLeafNode(b, corpus()))
	docs := drain(and)
	if len(docs) != 2 || docs[0] != 2 || docs[1] != 3 {
		t.Fatalf("expected intersection {2,3}, got %v", docs)
	}
}

func Test_andNotNodeExcludesNegativeMatches(t *testing.T) {
	pos := invertedlist.NewPostingList("p", []uint32{1, 2, 3}, []uint16{1, 1, 1}, nil)
	neg := invertedlist.NewPostingList("n", []uint32{2}, []uint16{1}, nil)
	pos.SetIDF(5)
	neg.SetIDF(5)

	andnot := NewAndNotNode(NewSimpleLeafNode(pos, corpus()), NewSimpleLeafNode(neg, corpus()))
	docs := drain(andnot)
	if len(docs) != 2 || docs[0] != 1 || docs[1] != 3 {
		t.Fatalf("expected {1,3}, got %v", docs)
	}
}

func Test_orNodeUnionsChildrenWithoutThreshold(t *testing.T) {
	a := invertedlist.NewPostingList("a", []uint32{1, 4}, []uint16{1, 1}, nil)
	b := invertedlist.NewPostingList("b", []uint32{2, 4}, []uint16{1, 1}, nil)
	a.SetIDF(5)
	b.SetIDF(5)

	or := NewOrNode(NewSimpleLeafNode(a, corpus()), NewSimpleLeafNode(b, corpus()))
	docs := drain(or)
	if len(docs) != 3 || docs[0] != 1 || docs[1] != 2 || docs[2] != 4 {
		t.Fatalf("expected {1,2,4}, got %v", docs)
	}
}

func Test_orNodeScoresSumAcrossMatchingChildrenAtSameDoc(t *testing.T) {
	a := invertedlist.NewPostingList("a", []uint32{4}, []uint16{3}, nil)
	b := invertedlist.NewPostingList("b", []uint32{4}, []uint16{2}, nil)
	a.SetIDF(2)
	b.SetIDF(2)

	or := NewOrNode(NewSimpleLeafNode(a, corpus()), NewSimpleLeafNode(b, corpus()))
	if !or.Next() {
		t.Fatalf("expected a match")
	}
	if or.DocID() != 4 {
		t.Fatalf("expected doc 4, got %d", or.DocID())
	}
	singleA := NewSimpleLeafNode(a, corpus())
	singleA.Next()
	singleB := NewSimpleLeafNode(b, corpus())
	singleB.Next()
	want := singleA.Score() + singleB.Score()
	if got := or.Score(); got != want {
		t.Errorf("expected combined score %f, got %f", want, got)
	}
}

func Test_orNodeWandPruningSkipsBelowThresholdDocs(t *testing.T) {
	low := invertedlist.NewPostingList("low", []uint32{1}, []uint16{1}, nil)
	high := invertedlist.NewPostingList("high", []uint32{5}, []uint16{10}, nil)
	low.SetIDF(1)
	high.SetIDF(1)
	low.MaxScore = 0.1
	high.MaxScore = 100

	or := NewOrNode(NewSimpleLeafNode(low, corpus()), NewSimpleLeafNode(high, corpus()))
	or.SetThreshold(1.0)
	docs := drain(or)
	if len(docs) != 1 || docs[0] != 5 {
		t.Fatalf("expected WAND to surface only doc 5, got %v", docs)
	}
}

func Test_atomicOrLeafNodePicksBestScoringVariant(t *testing.T) {
	weak := invertedlist.NewPostingList("weak", []uint32{7}, []uint16{1}, nil)
	strong := invertedlist.NewPostingList("strong", []uint32{7}, []uint16{9}, nil)
	weak.SetIDF(1)
	strong.SetIDF(1)

	atom := NewAtomicOrLeafNode([]*invertedlist.PostingList{weak, strong}, corpus())
	if !atom.Next() {
		t.Fatalf("expected a match")
	}
	if atom.Frequency() != 9 {
		t.Errorf("expected the stronger variant's frequency to win, got %d", atom.Frequency())
	}
}

func Test_normalLeafNodeRequiresProximity(t *testing.T) {
	a := invertedlist.NewPostingList("a", []uint32{1, 2}, []uint16{1, 1}, [][]uint32{{0}, {0}})
	b := invertedlist.NewPostingList("b", []uint32{1, 2}, []uint16{1, 1}, [][]uint32{{1}, {50}})
	a.SetIDF(1)
	b.SetIDF(1)

	n := NewNormalLeafNode([]*invertedlist.PostingList{a, b}, 3, corpus())
	docs := drain(n)
	if len(docs) != 1 || docs[0] != 1 {
		t.Fatalf("expected only doc 1 to satisfy proximity, got %v", docs)
	}
}

func Test_shortLeafNodeCompatibleDegradesToSimpleForSingleCandidate(t *testing.T) {
	pl := invertedlist.NewPostingList("solo", []uint32{3}, []uint16{1}, nil)
	n := NewShortLeafNodeCompatible([]*invertedlist.PostingList{pl}, corpus())
	if _, ok := n.Node.(*SimpleLeafNode); !ok {
		t.Errorf("expected a single candidate to degrade to SimpleLeafNode")
	}
}

func Test_simpleLeafNodeBitmapReflectsPostingList(t *testing.T) {
	pl := invertedlist.NewPostingList("cat", []uint32{1, 3}, []uint16{2, 5}, nil)
	n := NewSimpleLeafNode(pl, corpus())
	if !n.Bitmap().Contains(3) || n.Bitmap().Contains(2) {
		t.Errorf("expected leaf bitmap to mirror posting list membership")
	}
}

func Test_atomicOrLeafNodeBitmapUnionsVariants(t *testing.T) {
	weak := invertedlist.NewPostingList("weak", []uint32{7}, []uint16{1}, nil)
	strong := invertedlist.NewPostingList("strong", []uint32{9}, []uint16{9}, nil)
	atom := NewAtomicOrLeafNode([]*invertedlist.PostingList{weak, strong}, corpus())
	if !atom.Bitmap().Contains(7) || !atom.Bitmap().Contains(9) || atom.Bitmap().Contains(8) {
		t.Errorf("expected atom bitmap to union both variants' doc ids")
	}
}

func Test_weightedOrNodeAppliesPerChildWeight(t *testing.T) {
	a := invertedlist.NewPostingList("a", []uint32{1}, []uint16{4}, nil)
	a.SetIDF(1)

	children := []Node{NewSimpleLeafNode(a, corpus())}
	w := NewWeightedOrNode(children, []float64{2.0})
	if !w.Next() {
		t.Fatalf("expected a match")
	}
	single := NewSimpleLeafNode(a, corpus())
	single.Next()
	if got, want := w.Score(), single.Score()*2.0; got != want {
		t.Errorf("expected weighted score %f, got %f", want, got)
	}
}
