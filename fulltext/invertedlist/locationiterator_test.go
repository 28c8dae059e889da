package invertedlist

import "testing"

func Test_locationIteratorPoolReusesInstances(t *testing.T) {
	pool := NewLocationIteratorPool()
	it := pool.Get([]uint32{1, 5, 9})
	if it.IsEnd() || it.Location() != 1 {
		t.Fatalf("expected iterator to start at first location")
	}
	it.Next()
	if it.Location() != 5 {
		t.Fatalf("expected second location 5, got %d", it.Location())
	}
	it.Release()

	it2 := pool.Get([]uint32{7})
	if it2.Location() != 7 {
		t.Fatalf("expected reused iterator reset to new locations")
	}
}

func Test_orderedDistanceLocationIteratorFindsWithinDistance(t *testing.T) {
	pool := NewLocationIteratorPool()
	a := pool.Get([]uint32{0, 10})
	b := pool.Get([]uint32{2, 12})

	it := NewOrderedDistanceLocationIterator(3, a, b)
	if it.IsEnd() {
		t.Fatalf("expected a match within distance 3")
	}
	if it.Location() != 0 {
		t.Errorf("expected first match to anchor at location 0, got %d", it.Location())
	}
	it.Next()
	if it.IsEnd() {
		t.Fatalf("expected a second match at (10,12)")
	}
	if it.Location() != 10 {
		t.Errorf("expected second match to anchor at location 10, got %d", it.Location())
	}
	it.Next()
	if !it.IsEnd() {
		t.Errorf("expected iterator to be exhausted after both matches consumed")
	}
}

func Test_orderedDistanceLocationIteratorNoMatchWhenTooFarApart(t *testing.T) {
	pool := NewLocationIteratorPool()
	a := pool.Get([]uint32{0})
	b := pool.Get([]uint32{100})

	it := NewOrderedDistanceLocationIterator(3, a, b)
	if !it.IsEnd() {
		t.Errorf("expected no match when locations are far apart")
	}
}

func Test_orderedDistanceLocationIteratorMatchesExactAdjacentPhrase(t *testing.T) {
	pool := NewLocationIteratorPool()
	// "the quick brown fox": quick=1, brown=2, fox=3.
	quick := pool.Get([]uint32{1})
	brown := pool.Get([]uint32{2})
	fox := pool.Get([]uint32{3})

	it := NewOrderedDistanceLocationIterator(0, quick, brown, fox)
	if it.IsEnd() {
		t.Fatalf("expected an exact phrase match at adjacent positions")
	}
	if it.Location() != 1 {
		t.Errorf("expected phrase anchor at 1, got %d", it.Location())
	}
}

func Test_orderedDistanceLocationIteratorRejectsReversedOrder(t *testing.T) {
	pool := NewLocationIteratorPool()
	// "brown fox quick": quick=2, brown=0, fox=1 — same term set, wrong order.
	quick := pool.Get([]uint32{2})
	brown := pool.Get([]uint32{0})
	fox := pool.Get([]uint32{1})

	it := NewOrderedDistanceLocationIterator(0, quick, brown, fox)
	if !it.IsEnd() {
		t.Errorf("expected no match when terms occur out of phrase order")
	}
}
