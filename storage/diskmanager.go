// Package storage implements the on-disk half of the pager: a file-backed
// DiskManager that reads and writes fixed-size pages by page number.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// DefaultPageSize is a common physical page size for the db file. Page size
// is configurable per file in the real system (spec.md §6 PageSize option);
// NewDiskManager takes it as a constructor parameter rather than a
// compile-time constant so callers can size each file.
const DefaultPageSize = 4 * 1024

// DiskManager moves page-sized byte buffers to and from persistent storage.
type DiskManager interface {
	WritePage(pageNumber int, contents []byte) error
	ReadPage(pageNumber int, buf []byte) error
	Close() error
}

// FileDiskManager persists pages to a single backing file, one pageSize
// slice per page number (page n lives at byte offset n*pageSize).
type FileDiskManager struct {
	mu       sync.Mutex
	file     *os.File
	pageSize int
}

// NewDiskManager opens (creating if absent) the backing file at path.
func NewDiskManager(path string, pageSize int) (*FileDiskManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0664)
	if err != nil {
		return nil, fmt.Errorf("opening database file: %w", err)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &FileDiskManager{file: f, pageSize: pageSize}, nil
}

// WritePage writes contents (must be exactly pageSize bytes) at the page's
// offset and flushes it to disk.
func (d *FileDiskManager) WritePage(pageNumber int, contents []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(contents) != d.pageSize {
		return fmt.Errorf("write page %d: expected %d bytes, got %d", pageNumber, d.pageSize, len(contents))
	}
	offset := int64(pageNumber) * int64(d.pageSize)
	if _, err := d.file.WriteAt(contents, offset); err != nil {
		return fmt.Errorf("writing page %d: %w", pageNumber, err)
	}
	return d.file.Sync()
}

// ReadPage reads pageSize bytes for pageNumber into buf. Reading a page
// number beyond the current file extent zero-fills buf (an unwritten page
// reads as all-zero, matching a freshly allocated page).
func (d *FileDiskManager) ReadPage(pageNumber int, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(buf) != d.pageSize {
		return fmt.Errorf("read page %d: expected %d byte buffer, got %d", pageNumber, d.pageSize, len(buf))
	}
	offset := int64(pageNumber) * int64(d.pageSize)
	n, err := d.file.ReadAt(buf, offset)
	if n == len(buf) {
		return nil
	}
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading page %d: %w", pageNumber, err)
	}
	return nil
}

// Close flushes and closes the backing file.
func (d *FileDiskManager) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.Close()
}
