package btree

import (
	"fmt"

	"dbengine/buffer"
	"dbengine/codec"
	"dbengine/page"
)

// RowStore holds whole row tuples, as distinct from the index keys a Tree
// holds: a row may freely contain StringOutside fields (spec.md §4.2's
// outside-variable fields), which NewSchema forbids in an index key because
// they cannot be compared without a side read. RowStore is what actually
// exercises OutsideObjectStore end to end — a row's long text field is
// written through it and referenced by an 8-byte object-id embedded in the
// row's own encoded bytes, exactly as codec.Encode/Decode expect.
type RowStore struct {
	bpm      *buffer.BufferPoolManager
	outside  *OutsideObjectStore
	fields   []codec.FieldSpec
	pageSize int
}

// NewRowStore opens a row store for rows shaped like fields, backed by bpm.
func NewRowStore(bpm *buffer.BufferPoolManager, fields []codec.FieldSpec) *RowStore {
	return &RowStore{
		bpm:      bpm,
		outside:  NewOutsideObjectStore(bpm),
		fields:   fields,
		pageSize: bpm.PageSize(),
	}
}

// Put encodes row and stores it in a fresh page area, writing any
// StringOutside field through the row store's OutsideObjectStore, and
// returns the RecordID a btree leaf entry (or any other caller) can use to
// fetch it back with Get.
func (s *RowStore) Put(row []codec.Value) (RecordID, error) {
	enc, err := codec.Encode(row, s.fields, s.outside)
	if err != nil {
		return RecordID{}, fmt.Errorf("btree: encoding row: %w", err)
	}

	f, err := s.bpm.GetNewPageFrame(buffer.Allocate)
	if err != nil {
		return RecordID{}, fmt.Errorf("btree: allocating row page: %w", err)
	}
	defer s.bpm.Unpin(f)

	p := page.New(page.PageID(f.PageId), s.pageSize)
	if len(enc) > s.pageSize {
		return RecordID{}, fmt.Errorf("btree: row of %d bytes exceeds page size %d", len(enc), s.pageSize)
	}
	areaID, err := p.AllocateArea(len(enc))
	if err != nil {
		return RecordID{}, err
	}
	copy(p.AreaBytes(areaID), enc)
	copy(f.Data, p.Data)
	f.IsDirty = true

	return RecordID{Page: page.PageID(f.PageId), Area: areaID}, nil
}

// Get reads and decodes the row at id, materializing any StringOutside
// field through the row store's OutsideObjectStore.
func (s *RowStore) Get(id RecordID) ([]codec.Value, error) {
	f, err := s.bpm.Fix(int(id.Page), buffer.ReadOnly)
	if err != nil {
		return nil, fmt.Errorf("btree: reading row page %d: %w", id.Page, err)
	}
	defer s.bpm.Unpin(f)

	p := &page.Page{ID: id.Page, Size: s.pageSize, Data: f.Data}
	area := p.AreaBytes(id.Area)
	row, err := codec.Decode(area, s.fields, s.outside)
	if err != nil {
		return nil, fmt.Errorf("btree: decoding row: %w", err)
	}
	return row, nil
}

// Delete frees the row's page area. Any StringOutside field's outside
// object is left in place — freeing it requires the raw object-id bytes,
// which Get already resolves away into a string, so a caller that tracks
// object-ids separately should free them via Outside() before calling
// Delete.
func (s *RowStore) Delete(id RecordID) error {
	f, err := s.bpm.Fix(int(id.Page), buffer.Write)
	if err != nil {
		return fmt.Errorf("btree: freeing row page %d: %w", id.Page, err)
	}
	p := &page.Page{ID: id.Page, Size: s.pageSize, Data: f.Data}
	err = p.FreeArea(id.Area)
	f.IsDirty = true
	s.bpm.Unpin(f)
	return err
}

// Outside exposes the row store's backing OutsideObjectStore, for callers
// that need to free or rewrite a StringOutside field's object directly
// (e.g. before overwriting a row with new outside content).
func (s *RowStore) Outside() *OutsideObjectStore { return s.outside }
