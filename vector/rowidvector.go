// Package vector implements the ROWID<->DocID vector (C10) and the
// generic LargeVector container (C11), spec.md §4.10-4.11.
package vector

import (
	"encoding/binary"
	"fmt"

	"dbengine/buffer"
	"dbengine/dberrors"
)

// slotSize is the fixed width of one entry: a 32-bit key, direct
// addressed by position (spec.md §4.10).
const slotSize = 4

// emptySlot marks a slot that has never been written.
const emptySlot = ^uint32(0)

// RowIDVector is a paged, direct-addressed 32-bit vector: lookup of
// entry i costs exactly one page fix.
type RowIDVector struct {
	bpm          *buffer.BufferPoolManager
	slotsPerPage int
	pages        []int // page id per vector page, index = page index
}

// NewRowIDVector creates an empty vector backed by bpm.
func NewRowIDVector(bpm *buffer.BufferPoolManager) *RowIDVector {
	slotsPerPage := bpm.PageSize() / slotSize
	if slotsPerPage < 1 {
		slotsPerPage = 1
	}
	return &RowIDVector{bpm: bpm, slotsPerPage: slotsPerPage}
}

func (v *RowIDVector) pageAndOffset(index int) (pageIdx, slotIdx int) {
	return index / v.slotsPerPage, (index % v.slotsPerPage) * slotSize
}

func (v *RowIDVector) ensurePage(pageIdx int) (int, error) {
	for len(v.pages) <= pageIdx {
		f, err := v.bpm.GetNewPageFrame(buffer.Allocate)
		if err != nil {
			return 0, fmt.Errorf("rowidvector: allocate page: %w", err)
		}
		for i := 0; i < v.slotsPerPage; i++ {
			binary.LittleEndian.PutUint32(f.Data[i*slotSize:], uint32(emptySlot))
		}
		v.bpm.Unpin(f)
		v.pages = append(v.pages, f.PageId)
	}
	return v.pages[pageIdx], nil
}

// Set writes value at index, paging in any pages between the vector's
// current end and index and filling their slots with the empty-slot marker.
func (v *RowIDVector) Set(index int, value uint32) error {
	if index < 0 {
		return fmt.Errorf("rowidvector: negative index %d: %w", index, dberrors.ErrBadArgument)
	}
	pageIdx, slotOff := v.pageAndOffset(index)
	pageId, err := v.ensurePage(pageIdx)
	if err != nil {
		return err
	}
	f, err := v.bpm.Fix(pageId, buffer.Write)
	if err != nil {
		return fmt.Errorf("rowidvector: fix page %d: %w", pageId, err)
	}
	binary.LittleEndian.PutUint32(f.Data[slotOff:], value)
	f.IsDirty = true
	v.bpm.Unpin(f)
	return nil
}

// Get reads the value at index. ok is false for an index never written
// (either past the vector's current extent, or an explicitly empty slot).
func (v *RowIDVector) Get(index int) (value uint32, ok bool, err error) {
	if index < 0 {
		return 0, false, fmt.Errorf("rowidvector: negative index %d: %w", index, dberrors.ErrBadArgument)
	}
	pageIdx, slotOff := v.pageAndOffset(index)
	if pageIdx >= len(v.pages) {
		return 0, false, nil
	}
	f, err := v.bpm.Fix(v.pages[pageIdx], buffer.ReadOnly)
	if err != nil {
		return 0, false, fmt.Errorf("rowidvector: fix page %d: %w", v.pages[pageIdx], err)
	}
	defer v.bpm.Unpin(f)
	value = binary.LittleEndian.Uint32(f.Data[slotOff:])
	if value == emptySlot {
		return 0, false, nil
	}
	return value, true, nil
}

// Len is the number of slots currently addressable (pages allocated x
// slots per page); slots within this range may still read back !ok if
// never written.
func (v *RowIDVector) Len() int { return len(v.pages) * v.slotsPerPage }

// VerificationReport describes the result of Verify.
type VerificationReport struct {
	Unreachable []int // slot indices containing a value with no matching entry elsewhere expected (caller-defined)
	Duplicated  map[uint32][]int
}

// Verify walks every page and reports duplicate values, per spec.md
// §4.10's "verification walks all pages and reports unreachable or
// duplicated entries." Reachability is a property of the caller's
// expected key set, supplied here as expectedKeys; nil skips that check.
func (v *RowIDVector) Verify(expectedKeys map[uint32]bool) (VerificationReport, error) {
	report := VerificationReport{Duplicated: map[uint32][]int{}}
	seen := map[uint32][]int{}
	for idx := 0; idx < v.Len(); idx++ {
		value, ok, err := v.Get(idx)
		if err != nil {
			return report, err
		}
		if !ok {
			continue
		}
		seen[value] = append(seen[value], idx)
		if expectedKeys != nil && !expectedKeys[value] {
			report.Unreachable = append(report.Unreachable, idx)
		}
	}
	for value, idxs := range seen {
		if len(idxs) > 1 {
			report.Duplicated[value] = idxs
		}
	}
	return report, nil
}
