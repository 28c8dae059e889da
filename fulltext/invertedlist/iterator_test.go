package invertedlist

import "testing"

func Test_simpleListIteratorWalksInOrder(t *testing.T) {
	pl := NewPostingList("t", []uint32{1, 3, 5}, []uint16{2, 1, 3}, nil)
	it := NewSimpleListIterator(pl)

	var got []uint32
	for it.Next() {
		got = append(got, it.DocID())
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 3 || got[2] != 5 {
		t.Fatalf("unexpected walk order: %v", got)
	}
}

func Test_simpleListIteratorSkipTo(t *testing.T) {
	pl := NewPostingList("t", []uint32{1, 3, 5, 7, 9}, make([]uint16, 5), nil)
	it := NewSimpleListIterator(pl)
	it.Next()
	if ok := it.SkipTo(6); !ok || it.DocID() != 7 {
		t.Fatalf("expected SkipTo(6) to land on doc 7, got %d ok=%v", it.DocID(), ok)
	}
}

func Test_dummyListIteratorIsAlwaysExhausted(t *testing.T) {
	var d DummyListIterator
	if d.Next() || d.DocID() != DocIDNone {
		t.Errorf("expected DummyListIterator to report exhausted")
	}
}

func Test_multiListIteratorMergesAscendingAndDedupsDocs(t *testing.T) {
	a := NewPostingList("a", []uint32{1, 4, 6}, []uint16{1, 1, 1}, nil)
	b := NewPostingList("b", []uint32{2, 4, 8}, []uint16{1, 1, 1}, nil)

	m := NewMultiListIterator(NewSimpleListIterator(a), NewSimpleListIterator(b))
	var docs []uint32
	for {
		docs = append(docs, m.DocID())
		if !m.Next() {
			break
		}
	}
	want := []uint32{1, 2, 4, 6, 8}
	if len(docs) != len(want) {
		t.Fatalf("got %v, want %v", docs, want)
	}
	for i := range want {
		if docs[i] != want[i] {
			t.Fatalf("got %v, want %v", docs, want)
		}
	}
}

func Test_multiListIteratorCurrentReturnsAllMatchesAtPivot(t *testing.T) {
	a := NewPostingList("a", []uint32{4}, []uint16{1}, nil)
	b := NewPostingList("b", []uint32{4}, []uint16{1}, nil)
	m := NewMultiListIterator(NewSimpleListIterator(a), NewSimpleListIterator(b))
	if len(m.Current()) != 2 {
		t.Errorf("expected both iterators to be present at the shared doc id 4")
	}
}

func Test_multiListIteratorSkipTo(t *testing.T) {
	a := NewPostingList("a", []uint32{1, 2, 10}, []uint16{1, 1, 1}, nil)
	b := NewPostingList("b", []uint32{1, 5, 10}, []uint16{1, 1, 1}, nil)
	m := NewMultiListIterator(NewSimpleListIterator(a), NewSimpleListIterator(b))
	if ok := m.SkipTo(6); !ok || m.DocID() != 10 {
		t.Fatalf("expected SkipTo(6) to land on doc 10, got %d ok=%v", m.DocID(), ok)
	}
}
