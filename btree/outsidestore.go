package btree

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/snappy"

	"dbengine/buffer"
	"dbengine/codec"
	"dbengine/dberrors"
	"dbengine/page"
)

// outsideObjectHeaderSize is the per-object header written ahead of the
// payload: object type (1 byte) and uncompressed length (4 bytes), so a
// Compressed object can be snappy-decoded back to its exact original size.
const outsideObjectHeaderSize = 5

// largeDivideThreshold is the payload size above which WriteOutside chains
// the value across Divide (or DivideCompressed) objects instead of writing
// it into a single area, mirroring DoqueDB's Divide object family for
// values too large to fit in one page.
const largeDivideThreshold = 2048

// OutsideObjectStore implements codec.OutsideStore on top of the page/
// buffer substrate: each outside-variable field value lives in one area of
// one page, optionally snappy-compressed, and chained across several
// areas when it is longer than largeDivideThreshold bytes.
type OutsideObjectStore struct {
	bpm      *buffer.BufferPoolManager
	pageSize int
}

// NewOutsideObjectStore wraps bpm for outside-variable field storage.
func NewOutsideObjectStore(bpm *buffer.BufferPoolManager) *OutsideObjectStore {
	return &OutsideObjectStore{bpm: bpm, pageSize: bpm.PageSize()}
}

var _ codec.OutsideStore = (*OutsideObjectStore)(nil)

// WriteOutside stores payload as one or more chained objects and returns
// the (page, area) of the first chunk.
func (s *OutsideObjectStore) WriteOutside(payload []byte, compress bool) ([2]uint32, error) {
	if len(payload) <= largeDivideThreshold {
		return s.writeChunk(payload, compress, page.InvalidPageID, page.InvalidAreaID)
	}
	return s.writeDivided(payload, compress)
}

// writeDivided splits payload into chunks, writing them back-to-front so
// each chunk's header can point at the chunk that follows it (Divide /
// DivideCompressed chaining, spec.md §6).
func (s *OutsideObjectStore) writeDivided(payload []byte, compress bool) ([2]uint32, error) {
	var chunks [][]byte
	for off := 0; off < len(payload); off += largeDivideThreshold {
		end := off + largeDivideThreshold
		if end > len(payload) {
			end = len(payload)
		}
		chunks = append(chunks, payload[off:end])
	}

	nextPage, nextArea := page.InvalidPageID, page.InvalidAreaID
	for i := len(chunks) - 1; i >= 0; i-- {
		objType := codec.Divide
		if compress {
			objType = codec.DivideCompressed
		}
		objID, err := s.writeChunkTagged(chunks[i], objType, nextPage, nextArea)
		if err != nil {
			return [2]uint32{}, err
		}
		nextPage, nextArea = page.PageID(objID[0]), page.AreaID(objID[1])
	}
	return [2]uint32{uint32(nextPage), uint32(nextArea)}, nil
}

func (s *OutsideObjectStore) writeChunk(payload []byte, compress bool, chainPage page.PageID, chainArea page.AreaID) ([2]uint32, error) {
	objType := codec.Normal
	if compress {
		objType = codec.Compressed
	}
	return s.writeChunkTagged(payload, objType, chainPage, chainArea)
}

// writeChunkTagged writes one object (tagged with its type, original
// length, and — for Divide chunks — the next chunk's object-id) into a
// fresh page's area.
func (s *OutsideObjectStore) writeChunkTagged(payload []byte, objType codec.ObjectType, chainPage page.PageID, chainArea page.AreaID) ([2]uint32, error) {
	body := payload
	if objType == codec.Compressed || objType == codec.DivideCompressed {
		body = snappy.Encode(nil, payload)
	}

	chained := objType == codec.Divide || objType == codec.DivideCompressed
	extra := 0
	if chained {
		extra = 6 // chain page id (4) + chain area id (2)
	}
	total := outsideObjectHeaderSize + extra + len(body)

	f, err := s.bpm.GetNewPageFrame(buffer.Allocate)
	if err != nil {
		return [2]uint32{}, fmt.Errorf("btree: allocating outside-object page: %w", err)
	}
	defer s.bpm.Unpin(f)

	p := page.New(page.PageID(f.PageId), s.pageSize)
	if total > s.pageSize {
		return [2]uint32{}, fmt.Errorf("btree: outside-object chunk of %d bytes: %w", total, dberrors.ErrOutOfSpace)
	}
	areaID, err := p.AllocateArea(total)
	if err != nil {
		return [2]uint32{}, err
	}
	area := p.AreaBytes(areaID)
	area[0] = byte(objType)
	binary.LittleEndian.PutUint32(area[1:], uint32(len(payload)))
	off := outsideObjectHeaderSize
	if chained {
		binary.LittleEndian.PutUint32(area[off:], uint32(chainPage))
		binary.LittleEndian.PutUint16(area[off+4:], uint16(chainArea))
		off += 6
	}
	copy(area[off:], body)
	copy(f.Data, p.Data)
	f.IsDirty = true

	return [2]uint32{uint32(f.PageId), uint32(areaID)}, nil
}

// ReadOutside reassembles a (possibly chained, possibly compressed) object.
func (s *OutsideObjectStore) ReadOutside(objID [2]uint32) ([]byte, error) {
	var out []byte
	pageId, areaId := page.PageID(objID[0]), page.AreaID(objID[1])
	for {
		f, err := s.bpm.Fix(int(pageId), buffer.ReadOnly)
		if err != nil {
			return nil, fmt.Errorf("btree: reading outside-object page %d: %w", pageId, err)
		}
		p := &page.Page{ID: pageId, Size: s.pageSize, Data: f.Data}
		area := p.AreaBytes(areaId)
		objType := codec.ObjectType(area[0])
		origLen := binary.LittleEndian.Uint32(area[1:])
		off := outsideObjectHeaderSize
		chained := objType == codec.Divide || objType == codec.DivideCompressed
		var nextPage page.PageID
		var nextArea page.AreaID
		if chained {
			nextPage = page.PageID(binary.LittleEndian.Uint32(area[off:]))
			nextArea = page.AreaID(binary.LittleEndian.Uint16(area[off+4:]))
			off += 6
		}
		body := area[off:]
		var chunk []byte
		if objType == codec.Compressed || objType == codec.DivideCompressed {
			chunk, err = snappy.Decode(nil, body)
			if err != nil {
				s.bpm.Unpin(f)
				return nil, fmt.Errorf("btree: decompressing outside object: %w", err)
			}
		} else {
			chunk = make([]byte, origLen)
			copy(chunk, body[:origLen])
		}
		out = append(out, chunk...)
		s.bpm.Unpin(f)

		if !chained || nextPage == page.InvalidPageID {
			break
		}
		pageId, areaId = nextPage, nextArea
	}
	return out, nil
}

// FreeOutside releases every chunk in a (possibly chained) object.
func (s *OutsideObjectStore) FreeOutside(objID [2]uint32) error {
	pageId, areaId := page.PageID(objID[0]), page.AreaID(objID[1])
	for {
		f, err := s.bpm.Fix(int(pageId), buffer.Write)
		if err != nil {
			return fmt.Errorf("btree: freeing outside-object page %d: %w", pageId, err)
		}
		p := &page.Page{ID: pageId, Size: s.pageSize, Data: f.Data}
		area := p.AreaBytes(areaId)
		objType := codec.ObjectType(area[0])
		off := outsideObjectHeaderSize
		chained := objType == codec.Divide || objType == codec.DivideCompressed
		var nextPage page.PageID
		var nextArea page.AreaID
		if chained {
			nextPage = page.PageID(binary.LittleEndian.Uint32(area[off:]))
			nextArea = page.AreaID(binary.LittleEndian.Uint16(area[off+4:]))
		}
		err = p.FreeArea(areaId)
		f.IsDirty = true
		s.bpm.Unpin(f)
		if err != nil {
			return err
		}
		if !chained || nextPage == page.InvalidPageID {
			return nil
		}
		pageId, areaId = nextPage, nextArea
	}
}
