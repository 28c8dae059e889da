package btree

import (
	"path/filepath"
	"strings"
	"testing"

	"dbengine/buffer"
	"dbengine/codec"
	"dbengine/storage"
)

var testRowFields = []codec.FieldSpec{
	{Name: "title", Type: codec.StringInline, MaxLength: 32, Direction: codec.Ascending},
	{Name: "body", Type: codec.StringOutside},
}

func newTestRowStore(t *testing.T, pageSize int) *RowStore {
	t.Helper()
	dsm, err := storage.NewDiskManager(filepath.Join(t.TempDir(), "rows"), pageSize)
	if err != nil {
		t.Fatalf("creating disk manager: %v", err)
	}
	t.Cleanup(func() { dsm.Close() })
	bpm := buffer.NewBufferPoolManager(dsm, 16, pageSize)
	return NewRowStore(bpm, testRowFields)
}

func Test_rowStorePutGetRoundTripsOutsideField(t *testing.T) {
	rs := newTestRowStore(t, 4096)
	body := strings.Repeat("x", 5000)
	id, err := rs.Put([]codec.Value{{Str: "a title"}, {Str: body}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	row, err := rs.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row[0].Str != "a title" {
		t.Errorf("expected title to round-trip, got %q", row[0].Str)
	}
	if row[1].Str != body {
		t.Errorf("expected body to round-trip at %d bytes, got %d", len(body), len(row[1].Str))
	}
}

func Test_rowStoreRejectsEncodingWithoutOutsideStore(t *testing.T) {
	_, err := codec.Encode([]codec.Value{{Str: "t"}, {Str: "body"}}, testRowFields, nil)
	if err == nil {
		t.Fatalf("expected encoding a StringOutside field with a nil store to fail")
	}
}

func Test_rowStoreDeleteFreesArea(t *testing.T) {
	rs := newTestRowStore(t, 4096)
	id, err := rs.Put([]codec.Value{{Str: "t"}, {Str: "short body"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := rs.Delete(id); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
