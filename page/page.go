// Package page implements the page/area substrate (C1): typed accessors to
// fixed-size blobs addressed by page-id and area-id, with free-area
// compaction.
package page

import (
	"encoding/binary"
	"fmt"

	"dbengine/dberrors"
)

// PageID addresses a page within a file. A 32-bit id, per spec.md §3.1.
type PageID uint32

// InvalidPageID marks the absence of a page.
const InvalidPageID PageID = 0xFFFFFFFF

// AreaID addresses a variable-length slot inside a page. A 16-bit id.
type AreaID uint16

// InvalidAreaID marks the absence of an area.
const InvalidAreaID AreaID = 0xFFFF

// ObjectID is the pair (PageID, AreaID) addressing any persistent object.
type ObjectID struct {
	Page PageID
	Area AreaID
}

// IsInvalid reports whether this object id refers to nothing.
func (o ObjectID) IsInvalid() bool { return o.Page == InvalidPageID }

func (o ObjectID) String() string { return fmt.Sprintf("(%d,%d)", o.Page, o.Area) }

// areaDirEntry is one entry of the page-local area directory: an area's
// byte offset and length within the page. Freed areas have Length 0.
type areaDirEntry struct {
	Offset uint32
	Length uint32
}

const areaDirEntrySize = 8

// dirHeaderSize precedes the area directory: area count (4 bytes) and the
// byte offset of the first free byte past the last allocated area (4 bytes).
const dirHeaderSize = 8

// Page is an ordered sequence of bytes of a fixed size, holding a dense
// area directory (grown from the tail) and area payloads (grown from the
// head), matching the typical slotted-page layout the teacher's node pages
// assume implicitly (KeyTable starting right after the header).
type Page struct {
	ID   PageID
	Size int
	Data []byte
}

// New creates a zeroed page of the given size.
func New(id PageID, size int) *Page {
	p := &Page{ID: id, Size: size, Data: make([]byte, size)}
	binary.LittleEndian.PutUint32(p.Data[0:], 0)
	binary.LittleEndian.PutUint32(p.Data[4:], uint32(dirHeaderSize))
	return p
}

func (p *Page) areaCount() int {
	return int(binary.LittleEndian.Uint32(p.Data[0:]))
}

func (p *Page) setAreaCount(n int) {
	binary.LittleEndian.PutUint32(p.Data[0:], uint32(n))
}

func (p *Page) freeTop() uint32 {
	return binary.LittleEndian.Uint32(p.Data[4:])
}

func (p *Page) setFreeTop(v uint32) {
	binary.LittleEndian.PutUint32(p.Data[4:], v)
}

func (p *Page) dirEntryOffset(area AreaID) int {
	return p.Size - (int(area)+1)*areaDirEntrySize
}

func (p *Page) readDirEntry(area AreaID) areaDirEntry {
	off := p.dirEntryOffset(area)
	return areaDirEntry{
		Offset: binary.LittleEndian.Uint32(p.Data[off:]),
		Length: binary.LittleEndian.Uint32(p.Data[off+4:]),
	}
}

func (p *Page) writeDirEntry(area AreaID, e areaDirEntry) {
	off := p.dirEntryOffset(area)
	binary.LittleEndian.PutUint32(p.Data[off:], e.Offset)
	binary.LittleEndian.PutUint32(p.Data[off+4:], e.Length)
}

// AllocateArea returns a new slot within the page sized for `size` bytes.
// Fails with ErrOutOfSpace if no compaction can make room.
func (p *Page) AllocateArea(size int) (AreaID, error) {
	count := p.areaCount()
	dirEnd := p.Size - (count+1)*areaDirEntrySize
	if int(p.freeTop())+size > dirEnd {
		p.Compaction()
		dirEnd = p.Size - (count+1)*areaDirEntrySize
		if int(p.freeTop())+size > dirEnd {
			return InvalidAreaID, dberrors.ErrOutOfSpace
		}
	}
	id := AreaID(count)
	entry := areaDirEntry{Offset: p.freeTop(), Length: uint32(size)}
	p.writeDirEntry(id, entry)
	p.setAreaCount(count + 1)
	p.setFreeTop(entry.Offset + uint32(size))
	return id, nil
}

// FreeArea marks an area's slot as free; its bytes are reclaimed on the
// next Compaction.
func (p *Page) FreeArea(area AreaID) error {
	if int(area) >= p.areaCount() {
		return dberrors.ErrPageCorrupt
	}
	e := p.readDirEntry(area)
	e.Length = 0
	p.writeDirEntry(area, e)
	return nil
}

// AreaSize returns the byte length of the given area.
func (p *Page) AreaSize(area AreaID) int {
	return int(p.readDirEntry(area).Length)
}

// AreaBytes returns a slice view over the area's payload bytes. Writes to
// the returned slice are writes to the page.
func (p *Page) AreaBytes(area AreaID) []byte {
	e := p.readDirEntry(area)
	return p.Data[e.Offset : e.Offset+e.Length]
}

// Compaction reclaims holes left by freed areas, sliding live area payloads
// down and rewriting their directory offsets. Area ids are stable across
// compaction; only their offsets move.
func (p *Page) Compaction() {
	count := p.areaCount()
	entries := make([]areaDirEntry, count)
	for i := 0; i < count; i++ {
		entries[i] = p.readDirEntry(AreaID(i))
	}
	// Order live areas by current offset so the copy-down is a single pass.
	order := make([]int, 0, count)
	for i, e := range entries {
		if e.Length > 0 {
			order = append(order, i)
		}
	}
	for a, b := range order {
		for c := a + 1; c < len(order); c++ {
			if entries[order[c]].Offset < entries[order[b]].Offset {
				order[b], order[c] = order[c], order[b]
			}
		}
	}
	cursor := uint32(dirHeaderSize)
	for _, idx := range order {
		e := entries[idx]
		if e.Offset != cursor {
			copy(p.Data[cursor:cursor+e.Length], p.Data[e.Offset:e.Offset+e.Length])
			e.Offset = cursor
			entries[idx] = e
			p.writeDirEntry(AreaID(idx), e)
		}
		cursor += e.Length
	}
	p.setFreeTop(cursor)
}

// ZeroBuffer clears the page's contents and re-initializes the directory
// header, matching memory.Frame.ZeroBuffer in the teacher.
func (p *Page) ZeroBuffer() {
	for i := range p.Data {
		p.Data[i] = 0
	}
	p.setFreeTop(dirHeaderSize)
	p.setAreaCount(0)
}
