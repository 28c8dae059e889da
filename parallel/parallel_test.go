package parallel

import (
	"context"
	"testing"

	"dbengine/fulltext/invertedlist"
	"dbengine/fulltext/query"
	"dbengine/fulltext/resultset"
)

func Test_partitionCoversWholeRangeContiguously(t *testing.T) {
	bands := Partition(1000, nil, 4)
	if len(bands) == 0 {
		t.Fatalf("expected at least one band")
	}
	if bands[0].Lower != 0 {
		t.Errorf("expected first band to start at 0, got %d", bands[0].Lower)
	}
	if bands[len(bands)-1].Upper != 999 {
		t.Errorf("expected last band to end at 999, got %d", bands[len(bands)-1].Upper)
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].Lower != bands[i-1].Upper+1 {
			t.Errorf("expected contiguous bands, got gap between %+v and %+v", bands[i-1], bands[i])
		}
	}
}

func Test_partitionWeightsBandsByCost(t *testing.T) {
	// All the cost concentrated in the first half: expect it split into
	// narrower bands than the sparse second half.
	costs := []int{100, 100, 100, 100, 1, 1, 1, 1}
	bands := Partition(800, costs, 4)
	if len(bands) < 2 {
		t.Fatalf("expected multiple bands, got %+v", bands)
	}
	firstWidth := bands[0].Upper - bands[0].Lower
	lastWidth := bands[len(bands)-1].Upper - bands[len(bands)-1].Lower
	if firstWidth >= lastWidth {
		t.Errorf("expected a narrower first band for the cost-dense region, got first=%d last=%d", firstWidth, lastWidth)
	}
}

func Test_orchestratorMergesBandsInDocIDOrder(t *testing.T) {
	docIDs := []uint32{1, 50, 100, 400, 700, 999}
	freqs := make([]uint16, len(docIDs))
	for i := range freqs {
		freqs[i] = 1
	}

	newNode := func() query.Node {
		pl := invertedlist.NewPostingList("t", docIDs, freqs, nil)
		pl.SetIDF(len(docIDs))
		return query.NewSimpleLeafNode(pl, nil)
	}

	orch := New(newNode, true)
	hits, cancelled := orch.Run(context.Background(), 1000, nil, 4, resultset.BySortDocID, resultset.Asc)
	if cancelled {
		t.Fatalf("did not expect cancellation")
	}
	if len(hits) != len(docIDs) {
		t.Fatalf("expected %d hits, got %d: %+v", len(docIDs), len(hits), hits)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].DocID <= hits[i-1].DocID {
			t.Fatalf("expected ascending doc ids in merged result, got %+v", hits)
		}
	}
}

func Test_kWayMergeOrdersByScoreDescending(t *testing.T) {
	lanes := [][]resultset.Hit{
		{{DocID: 1, Score: 5}, {DocID: 2, Score: 1}},
		{{DocID: 3, Score: 9}, {DocID: 4, Score: 2}},
	}
	merged := kWayMerge(lanes, resultset.BySortScore, resultset.Desc)
	if merged[0].DocID != 3 || merged[0].Score != 9 {
		t.Fatalf("expected highest score first, got %+v", merged)
	}
	for i := 1; i < len(merged); i++ {
		if merged[i].Score > merged[i-1].Score {
			t.Fatalf("expected descending score order, got %+v", merged)
		}
	}
}
