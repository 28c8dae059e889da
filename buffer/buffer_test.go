package buffer

import (
	"path/filepath"
	"testing"

	"dbengine/storage"
)

func newTestPool(t *testing.T, size int) *BufferPoolManager {
	t.Helper()
	dsm, err := storage.NewDiskManager(filepath.Join(t.TempDir(), "pool"), 256)
	if err != nil {
		t.Fatalf("creating disk manager: %v", err)
	}
	t.Cleanup(func() { dsm.Close() })
	return NewBufferPoolManager(dsm, size, 256)
}

func Test_newPageFrameIsPinned(t *testing.T) {
	bpm := newTestPool(t, 2)
	f, err := bpm.GetNewPageFrame(Write)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.IsPinned() {
		t.Errorf("expected newly fixed page to be pinned")
	}
}

func Test_evictsWhenPoolFull(t *testing.T) {
	bpm := newTestPool(t, 1)
	f1, err := bpm.GetNewPageFrame(Write)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstPageId := f1.PageId
	bpm.Unpin(f1)

	f2, err := bpm.GetNewPageFrame(Write)
	if err != nil {
		t.Fatalf("unexpected error allocating second page after eviction: %v", err)
	}
	if f2.PageId == firstPageId {
		t.Errorf("expected a distinct page id after eviction")
	}
}

func Test_flushWritesDirtyPage(t *testing.T) {
	bpm := newTestPool(t, 2)
	f, err := bpm.GetNewPageFrame(Write)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	copy(f.Data, []byte("hello"))
	f.IsDirty = true
	bpm.Unpin(f)

	if !bpm.FlushPage(f.PageId) {
		t.Errorf("expected flush to succeed")
	}
	if f.IsDirty {
		t.Errorf("expected frame to be clean after flush")
	}
}
