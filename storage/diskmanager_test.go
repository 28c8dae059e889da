package storage

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
)

func setup(t *testing.T) *FileDiskManager {
	t.Helper()
	dir := t.TempDir()
	d, err := NewDiskManager(filepath.Join(dir, "dbtest_1"), DefaultPageSize)
	if err != nil {
		t.Fatalf("setting up disk manager: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func Test_writeThenReadRoundTrips(t *testing.T) {
	d := setup(t)

	data := make([]byte, DefaultPageSize)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("generating random page: %v", err)
	}

	if err := d.WritePage(0, data); err != nil {
		t.Fatalf("writing page: %v", err)
	}

	got := make([]byte, DefaultPageSize)
	if err := d.ReadPage(0, got); err != nil {
		t.Fatalf("reading page: %v", err)
	}
	if !bytes.Equal(data, got) {
		t.Errorf("round-tripped page does not match")
	}
}

func Test_readUnwrittenPageIsZeroed(t *testing.T) {
	d := setup(t)

	got := make([]byte, DefaultPageSize)
	for i := range got {
		got[i] = 0xFF
	}
	if err := d.ReadPage(5, got); err != nil {
		t.Fatalf("reading page: %v", err)
	}
	for i, b := range got {
		if b != 0 {
			t.Fatalf("expected zero-filled page, byte %d = %d", i, b)
		}
	}
}

func Test_openFailureSurfaces(t *testing.T) {
	if _, err := NewDiskManager(string([]byte{0}), DefaultPageSize); err == nil {
		os.Remove(string([]byte{0}))
		t.Errorf("expected error opening an invalid path")
	}
}
