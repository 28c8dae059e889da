// Package buffer implements the buffer pool manager: the in-memory half of
// the pager (C1). It moves physical pages between disk and memory, fixing
// pages into frames under a transaction's fix-mode and evicting cold pages
// via LRU-K when the pool is full.
package buffer

import (
	"fmt"
	"log"
	"slices"
	"sync"

	"dbengine/dberrors"
	"dbengine/storage"
)

// InvalidPageId mirrors page.InvalidPageID for code that only depends on
// this package (the teacher's memory package predates the page package and
// used its own sentinel the same way).
const InvalidPageId = -1

// FixMode controls how a fixed page may be used and what happens to it
// when the pool is under memory pressure (spec.md §3.1).
type FixMode int

const (
	ReadOnly FixMode = iota
	Write
	Allocate
	Discardable
)

// FrameMetadata describes one buffer frame's bookkeeping state.
type FrameMetadata struct {
	Id       int
	PageId   int
	IsDirty  bool
	Mode     FixMode
	pinCount int
}

// Frame stores metadata and the page payload for one buffer pool slot.
type Frame struct {
	FrameMetadata
	Data []byte
}

func newFrame(i, pageSize int) *Frame {
	return &Frame{
		FrameMetadata: FrameMetadata{Id: i, PageId: InvalidPageId},
		Data:          make([]byte, pageSize),
	}
}

// IsPinned reports whether the frame's page is currently fixed by anyone.
func (f *Frame) IsPinned() bool { return f.pinCount > 0 }

// ZeroBuffer clears the frame's page bytes.
func (f *Frame) ZeroBuffer() {
	for i := range f.Data {
		f.Data[i] = 0
	}
}

// BufferPoolManager fixes/unfixes pages under a caller-supplied fix-mode,
// reading through to storage.DiskManager on a miss and evicting the
// least-valuable unpinned frame (LRU-K) to make room.
type BufferPoolManager struct {
	mu           sync.Mutex
	frames       []*Frame
	pageToFrame  map[int]int
	nextPageId   int
	freeFrames   []int
	size         int
	pageSize     int
	diskManager  storage.DiskManager
	lrukreplacer *LruKReplacer
}

// NewBufferPoolManager creates a pool of `size` frames, each pageSize
// bytes, backed by dsm.
func NewBufferPoolManager(dsm storage.DiskManager, size, pageSize int) *BufferPoolManager {
	freeFrames := make([]int, size)
	frames := make([]*Frame, size)
	for i := 0; i < size; i++ {
		freeFrames[i] = i
		frames[i] = newFrame(i, pageSize)
	}
	return &BufferPoolManager{
		frames:       frames,
		freeFrames:   freeFrames,
		pageToFrame:  make(map[int]int),
		diskManager:  dsm,
		lrukreplacer: NewLruKReplacer(size*2, 2),
		size:         size,
		pageSize:     pageSize,
	}
}

// Pin marks a frame's page as in use; it cannot be evicted while pinned.
func (m *BufferPoolManager) Pin(f *Frame) {
	f.pinCount++
	m.lrukreplacer.recordAccess(f.Id)
	m.lrukreplacer.setEvictable(f.Id, false)
}

// Unpin releases one reference to a fixed page; once the pin count drops
// to zero the frame becomes eligible for eviction.
func (m *BufferPoolManager) Unpin(f *Frame) {
	if f.pinCount <= 0 {
		return
	}
	f.pinCount--
	m.lrukreplacer.setEvictable(f.Id, f.pinCount == 0)
}

// GetNewPageFrame allocates a new page and returns it pinned.
func (m *BufferPoolManager) GetNewPageFrame(mode FixMode) (*Frame, error) {
	m.mu.Lock()
	id := m.newPageLocked()
	m.mu.Unlock()
	if id == InvalidPageId {
		return nil, dberrors.ErrMemoryExhaust
	}
	return m.Fix(id, mode)
}

func (m *BufferPoolManager) newPageLocked() int {
	newPageId := m.nextPageId
	m.nextPageId++

	if len(m.freeFrames) > 0 {
		frameIdx := m.freeFrames[0]
		m.freeFrames = slices.Delete(m.freeFrames, 0, 1)
		m.pageToFrame[newPageId] = frameIdx
		m.frames[frameIdx].PageId = newPageId
		return newPageId
	}

	isEvicted, i := m.evictLocked()
	if !isEvicted {
		return InvalidPageId
	}
	m.frames[i].FrameMetadata = FrameMetadata{Id: i, PageId: newPageId}
	m.pageToFrame[newPageId] = i
	return newPageId
}

// Fix returns the frame holding pageId, loading it from disk if needed, and
// pins it under the given fix-mode. This is the pager contract's `fix`
// (spec.md §4.1); callers must call Unpin on every exit path.
func (m *BufferPoolManager) Fix(pageId int, mode FixMode) (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.getPageFrameLocked(pageId)
	if err != nil {
		return nil, err
	}
	f.Mode = mode
	m.Pin(f)
	return f, nil
}

// GetPage is a ReadOnly-mode convenience wrapper around Fix, kept for
// parity with the teacher's original accessor name.
func (m *BufferPoolManager) GetPage(pageId int) (*Frame, error) {
	return m.Fix(pageId, ReadOnly)
}

func (m *BufferPoolManager) getPageFrameLocked(pageId int) (*Frame, error) {
	if i, ok := m.pageToFrame[pageId]; ok {
		return m.frames[i], nil
	}

	if len(m.freeFrames) > 0 {
		i := m.freeFrames[0]
		m.freeFrames = slices.Delete(m.freeFrames, 0, 1)
		frame := m.frames[i]
		m.pageToFrame[pageId] = i
		frame.PageId = pageId
		if err := m.diskManager.ReadPage(pageId, frame.Data); err != nil {
			return nil, fmt.Errorf("reading page %d: %w", pageId, err)
		}
		return frame, nil
	}

	evicted, i := m.evictLocked()
	if !evicted {
		return nil, dberrors.ErrMemoryExhaust
	}
	frame := m.frames[i]
	frame.FrameMetadata = FrameMetadata{Id: i, PageId: pageId}
	m.pageToFrame[pageId] = i
	if err := m.diskManager.ReadPage(pageId, frame.Data); err != nil {
		return nil, fmt.Errorf("reading page %d: %w", pageId, err)
	}
	return frame, nil
}

func (m *BufferPoolManager) evictLocked() (bool, int) {
	i, err := m.lrukreplacer.evict()
	if err != nil {
		log.Printf("buffer pool: cannot evict: %v", err)
		return false, -1
	}
	frame := m.frames[i]
	if !m.flushPageLocked(frame.PageId) {
		log.Printf("buffer pool: unable to flush page %d, retry", frame.PageId)
		return false, -1
	}
	delete(m.pageToFrame, frame.PageId)
	return true, i
}

// FlushPage writes a page's data to disk if it has been modified.
func (m *BufferPoolManager) FlushPage(pageId int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushPageLocked(pageId)
}

func (m *BufferPoolManager) flushPageLocked(pageId int) bool {
	frameId, ok := m.pageToFrame[pageId]
	if !ok {
		return true
	}
	f := m.frames[frameId]
	if !f.IsDirty {
		return true
	}
	if err := m.diskManager.WritePage(pageId, f.Data); err != nil {
		log.Printf("buffer pool: error flushing page %d: %v", pageId, err)
		return false
	}
	f.IsDirty = false
	return true
}

// FlushAllPages flushes every resident page currently tracked by the pool.
func (m *BufferPoolManager) FlushAllPages() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	allFlushed := true
	for pageId := range m.pageToFrame {
		allFlushed = allFlushed && m.flushPageLocked(pageId)
	}
	return allFlushed
}

// DeletePage evicts a page from the pool without writing it back,
// releasing its frame to the free list. Fails if the page is pinned.
func (m *BufferPoolManager) DeletePage(pageId int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.pageToFrame[pageId]
	if !ok {
		return true, nil
	}
	f := m.frames[i]
	if f.IsPinned() {
		return false, fmt.Errorf("cannot delete pinned page %d", pageId)
	}
	delete(m.pageToFrame, pageId)
	m.lrukreplacer.remove(i)
	f.FrameMetadata = FrameMetadata{Id: i, PageId: InvalidPageId}
	f.ZeroBuffer()
	m.freeFrames = append(m.freeFrames, i)
	return true, nil
}

// PageSize returns the page size this pool was constructed with.
func (m *BufferPoolManager) PageSize() int { return m.pageSize }
