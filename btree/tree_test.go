package btree

import (
	"path/filepath"
	"testing"

	"dbengine/buffer"
	"dbengine/codec"
	"dbengine/page"
	"dbengine/storage"
)

func newTestTree(t *testing.T, pageSize int, unique bool) *Tree {
	t.Helper()
	dsm, err := storage.NewDiskManager(filepath.Join(t.TempDir(), "idx"), pageSize)
	if err != nil {
		t.Fatalf("creating disk manager: %v", err)
	}
	t.Cleanup(func() { dsm.Close() })
	bpm := buffer.NewBufferPoolManager(dsm, 16, pageSize)

	schema, err := NewSchema(unique, codec.FieldSpec{Name: "id", Type: codec.Int32, Direction: codec.Ascending})
	if err != nil {
		t.Fatalf("building schema: %v", err)
	}
	tree, err := NewTree("idx", bpm, schema, InvalidPageId)
	if err != nil {
		t.Fatalf("creating tree: %v", err)
	}
	return tree
}

func intKey(v int64) Key { return Key{codec.Value{Int: v}} }

func rid(p uint32, a uint16) RecordID { return page.ObjectID{Page: page.PageID(p), Area: page.AreaID(a)} }

func Test_insertAndSearchSingleEntry(t *testing.T) {
	tree := newTestTree(t, 1024, true)
	if err := tree.Insert(intKey(7), rid(1, 0)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, ok, err := tree.Search(intKey(7))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !ok || got != rid(1, 0) {
		t.Errorf("expected to find key 7 -> (1,0), got %+v, ok=%v", got, ok)
	}
	if _, ok, _ := tree.Search(intKey(8)); ok {
		t.Errorf("expected key 8 to be absent")
	}
}

func Test_uniqueIndexRejectsDuplicateKey(t *testing.T) {
	tree := newTestTree(t, 1024, true)
	if err := tree.Insert(intKey(1), rid(1, 0)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tree.Insert(intKey(1), rid(2, 0)); err == nil {
		t.Errorf("expected uniqueness violation on duplicate key")
	}
}

func Test_nonUniqueIndexAllowsDuplicateKeyDifferentRecord(t *testing.T) {
	tree := newTestTree(t, 1024, false)
	if err := tree.Insert(intKey(1), rid(1, 0)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tree.Insert(intKey(1), rid(2, 0)); err != nil {
		t.Fatalf("insert second entry under same key: %v", err)
	}
	cur, err := tree.Scan(nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	defer cur.Close()
	count := 0
	for {
		_, _, ok, err := cur.Next()
		if err != nil {
			t.Fatalf("cursor.Next: %v", err)
		}
		if !ok {
			break
		}
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 entries under duplicate key, got %d", count)
	}
}

func Test_insertManyTriggersSplitAndScanStaysOrdered(t *testing.T) {
	tree := newTestTree(t, 256, true)
	const n = 200
	for i := 0; i < n; i++ {
		if err := tree.Insert(intKey(int64(i)), rid(uint32(i), 0)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	cur, err := tree.Scan(nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	defer cur.Close()

	var prev int64 = -1
	count := 0
	for {
		k, _, ok, err := cur.Next()
		if err != nil {
			t.Fatalf("cursor.Next: %v", err)
		}
		if !ok {
			break
		}
		if k[0].Int <= prev {
			t.Fatalf("scan not in ascending order: %d after %d", k[0].Int, prev)
		}
		prev = k[0].Int
		count++
	}
	if count != n {
		t.Errorf("expected %d entries from scan, got %d", n, count)
	}
}

func Test_scanFromMidpoint(t *testing.T) {
	tree := newTestTree(t, 256, true)
	for i := 0; i < 50; i++ {
		if err := tree.Insert(intKey(int64(i)), rid(uint32(i), 0)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	cur, err := tree.Scan(intKey(25))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	defer cur.Close()
	k, _, ok, err := cur.Next()
	if err != nil {
		t.Fatalf("cursor.Next: %v", err)
	}
	if !ok || k[0].Int != 25 {
		t.Errorf("expected scan from 25 to yield 25 first, got %+v ok=%v", k, ok)
	}
}

func Test_deleteRemovesEntry(t *testing.T) {
	tree := newTestTree(t, 1024, true)
	if err := tree.Insert(intKey(3), rid(1, 0)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	found, err := tree.Delete(intKey(3), rid(1, 0))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !found {
		t.Errorf("expected delete to report found=true")
	}
	if _, ok, _ := tree.Search(intKey(3)); ok {
		t.Errorf("expected key 3 to be gone after delete")
	}
}

func Test_updateMovesEntryToNewKey(t *testing.T) {
	tree := newTestTree(t, 1024, true)
	r := rid(9, 0)
	if err := tree.Insert(intKey(1), r); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tree.Update(intKey(1), intKey(2), r); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, ok, _ := tree.Search(intKey(1)); ok {
		t.Errorf("expected old key to be gone")
	}
	got, ok, err := tree.Search(intKey(2))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !ok || got != r {
		t.Errorf("expected new key to map to original record id, got %+v ok=%v", got, ok)
	}
}

func Test_outsideVariableFieldRejectedInSchema(t *testing.T) {
	_, err := NewSchema(true, codec.FieldSpec{Name: "blob", Type: codec.StringOutside})
	if err == nil {
		t.Errorf("expected NewSchema to reject an outside-variable field")
	}
}

func Test_scanReverseFromNilWalksLastLeafBackward(t *testing.T) {
	tree := newTestTree(t, 256, true)
	const n = 200
	for i := 0; i < n; i++ {
		if err := tree.Insert(intKey(int64(i)), rid(uint32(i), 0)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	cur, err := tree.ScanReverse(nil)
	if err != nil {
		t.Fatalf("scan reverse: %v", err)
	}
	defer cur.Close()

	var prev int64 = n
	count := 0
	for {
		k, _, ok, err := cur.Next()
		if err != nil {
			t.Fatalf("cursor.Next: %v", err)
		}
		if !ok {
			break
		}
		if k[0].Int >= prev {
			t.Fatalf("expected strictly descending keys, got %d after %d", k[0].Int, prev)
		}
		prev = k[0].Int
		count++
	}
	if count != n {
		t.Errorf("expected %d entries, got %d", n, count)
	}
}

func Test_scanReverseFromMidpointStartsAtOrBelowFrom(t *testing.T) {
	tree := newTestTree(t, 256, true)
	for i := 0; i < 50; i++ {
		if err := tree.Insert(intKey(int64(i)), rid(uint32(i), 0)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	cur, err := tree.ScanReverse(intKey(25))
	if err != nil {
		t.Fatalf("scan reverse: %v", err)
	}
	defer cur.Close()
	k, _, ok, err := cur.Next()
	if err != nil {
		t.Fatalf("cursor.Next: %v", err)
	}
	if !ok || k[0].Int != 25 {
		t.Errorf("expected reverse scan from 25 to yield 25 first, got %+v ok=%v", k, ok)
	}
	k, _, ok, err = cur.Next()
	if err != nil {
		t.Fatalf("cursor.Next: %v", err)
	}
	if !ok || k[0].Int != 24 {
		t.Errorf("expected the entry after 25 to be 24, got %+v ok=%v", k, ok)
	}
}

func Test_rangeHonorsInclusiveAndExclusiveBounds(t *testing.T) {
	tree := newTestTree(t, 1024, true)
	for i := 0; i < 10; i++ {
		if err := tree.Insert(intKey(int64(i)), rid(uint32(i), 0)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	cur, err := tree.Range(&RangeBound{Key: intKey(3), Inclusive: false}, &RangeBound{Key: intKey(7), Inclusive: true})
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	defer cur.Close()

	var got []int64
	for {
		k, _, ok, err := cur.Next()
		if err != nil {
			t.Fatalf("cursor.Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, k[0].Int)
	}
	want := []int64{4, 5, 6, 7}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func newStringTestTree(t *testing.T, unique bool) *Tree {
	t.Helper()
	dsm, err := storage.NewDiskManager(filepath.Join(t.TempDir(), "idx"), 1024)
	if err != nil {
		t.Fatalf("creating disk manager: %v", err)
	}
	t.Cleanup(func() { dsm.Close() })
	bpm := buffer.NewBufferPoolManager(dsm, 16, 1024)

	schema, err := NewSchema(unique, codec.FieldSpec{Name: "name", Type: codec.StringInline, MaxLength: 32, Direction: codec.Ascending})
	if err != nil {
		t.Fatalf("building schema: %v", err)
	}
	tree, err := NewTree("idx", bpm, schema, InvalidPageId)
	if err != nil {
		t.Fatalf("creating tree: %v", err)
	}
	return tree
}

func strKey(s string) Key { return Key{codec.Value{Str: s}} }

func Test_likeMatchesPrefixAndStopsAtDivergence(t *testing.T) {
	tree := newStringTestTree(t, true)
	for i, name := range []string{"alpha", "alphabet", "alphorn", "beta"} {
		if err := tree.Insert(strKey(name), rid(uint32(i), 0)); err != nil {
			t.Fatalf("insert %q: %v", name, err)
		}
	}

	cur, err := tree.Like("alpha")
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	defer cur.Close()

	var got []string
	for {
		k, _, ok, err := cur.Next()
		if err != nil {
			t.Fatalf("cursor.Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, k[0].Str)
	}
	want := []string{"alpha", "alphabet"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func Test_equalsToNullFindsOnlyNullKeys(t *testing.T) {
	tree := newStringTestTree(t, false)
	if err := tree.Insert(Key{codec.Value{Null: true}}, rid(1, 0)); err != nil {
		t.Fatalf("insert null: %v", err)
	}
	if err := tree.Insert(strKey("zzz"), rid(2, 0)); err != nil {
		t.Fatalf("insert zzz: %v", err)
	}

	cur, err := tree.EqualsToNull(0)
	if err != nil {
		t.Fatalf("equals to null: %v", err)
	}
	defer cur.Close()

	_, v, ok, err := cur.Next()
	if err != nil {
		t.Fatalf("cursor.Next: %v", err)
	}
	if !ok || v != rid(1, 0) {
		t.Errorf("expected the null-keyed row, got %+v ok=%v", v, ok)
	}
	if _, _, ok, _ := cur.Next(); ok {
		t.Errorf("expected exactly one null-keyed row")
	}
}

func Test_compoundFiltersOnExtraEqualityField(t *testing.T) {
	dsm, err := storage.NewDiskManager(filepath.Join(t.TempDir(), "idx"), 1024)
	if err != nil {
		t.Fatalf("creating disk manager: %v", err)
	}
	t.Cleanup(func() { dsm.Close() })
	bpm := buffer.NewBufferPoolManager(dsm, 16, 1024)
	schema, err := NewSchema(false,
		codec.FieldSpec{Name: "category", Type: codec.Int32, Direction: codec.Ascending},
		codec.FieldSpec{Name: "priority", Type: codec.Int32, Direction: codec.Ascending},
	)
	if err != nil {
		t.Fatalf("building schema: %v", err)
	}
	tree, err := NewTree("idx", bpm, schema, InvalidPageId)
	if err != nil {
		t.Fatalf("creating tree: %v", err)
	}

	rows := []struct {
		category, priority int64
		recID              uint32
	}{
		{1, 1, 10}, {1, 2, 11}, {1, 3, 12}, {2, 1, 20},
	}
	for _, r := range rows {
		k := Key{codec.Value{Int: r.category}, codec.Value{Int: r.priority}}
		if err := tree.Insert(k, rid(r.recID, 0)); err != nil {
			t.Fatalf("insert %+v: %v", r, err)
		}
	}

	cur, err := tree.Compound(CompoundCondition{
		PrefixKey:  Key{codec.Value{Int: 1}},
		ExtraEqual: map[int]codec.Value{1: {Int: 2}},
	})
	if err != nil {
		t.Fatalf("compound: %v", err)
	}
	defer cur.Close()

	_, v, ok, err := cur.Next()
	if err != nil {
		t.Fatalf("cursor.Next: %v", err)
	}
	if !ok || v != rid(11, 0) {
		t.Errorf("expected only the category=1,priority=2 row, got %+v ok=%v", v, ok)
	}
	if _, _, ok, _ := cur.Next(); ok {
		t.Errorf("expected exactly one matching row")
	}
}
