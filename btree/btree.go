// Package btree implements the B+tree node/leaf layout (C3) and operations
// (C4): a perfectly balanced search tree in which inner pages direct the
// search and leaf pages hold the actual entries, generalized from the
// teacher's single-int-key tree to typed multi-field tuples via the codec
// package, and persisted through the buffer pool manager's frames instead
// of being held purely in memory.
//
// Only fixed-width and inline-variable fields may appear in an index key;
// outside-variable fields cannot be compared without materializing them,
// so they are rejected by NewSchema (see the btree entry of DESIGN.md).
package btree

import (
	"encoding/binary"
	"fmt"
	"sort"

	"dbengine/codec"
	"dbengine/page"
)

// NodeType distinguishes an inner (routing) page from a leaf (data) page.
type NodeType uint32

const (
	InnerNodeType NodeType = 0
	LeafNodeType  NodeType = 1
)

// HeaderSize is the fixed header every node page begins with: node type (4),
// entry count (4), right-sibling page id (4), left-sibling page id (4, leaf
// chain only — unused by inner nodes).
const HeaderSize = 16

// InvalidPageId marks the absence of a sibling or child page.
const InvalidPageId = -1

// NodeKeyDivideRate is the fraction of a node's entries that stay in the
// left node on split; the remainder move to the new right node, per
// spec.md §4.3's split-and-promote operation.
const NodeKeyDivideRate = 0.5

// maxFillRatio is the fraction of a page's capacity a node may occupy
// before a split is triggered on the next insert.
const maxFillRatio = 0.9

// Key is an ordered tuple of field values, one per schema field.
type Key []codec.Value

// RecordID addresses the row a leaf entry points to.
type RecordID = page.ObjectID

// Schema describes an index's key shape.
type Schema struct {
	Fields []codec.FieldSpec
	Unique bool
}

// NewSchema validates that every field is comparable without a side read
// (fixed-width or inline-variable) and returns a Schema.
func NewSchema(unique bool, fields ...codec.FieldSpec) (Schema, error) {
	for _, f := range fields {
		if f.Type == codec.StringOutside {
			return Schema{}, fmt.Errorf("btree: index key field %q cannot be an outside-variable field", f.Name)
		}
	}
	return Schema{Fields: fields, Unique: unique}, nil
}

// CompareKeys orders two keys according to the schema's per-field types and
// directions.
func CompareKeys(a, b Key, schema Schema) int {
	return codec.CompareTuples(a, b, schema.Fields)
}

// EncodeKey serializes a key tuple. Index keys never contain
// outside-variable fields, so no OutsideStore is required.
func EncodeKey(k Key, schema Schema) ([]byte, error) {
	return codec.Encode(k, schema.Fields, nil)
}

// DecodeKey parses bytes produced by EncodeKey.
func DecodeKey(data []byte, schema Schema) (Key, error) {
	v, err := codec.Decode(data, schema.Fields, nil)
	return Key(v), err
}

func putRecordID(buf []byte, r RecordID) {
	binary.LittleEndian.PutUint32(buf[0:], uint32(r.Page))
	binary.LittleEndian.PutUint16(buf[4:], uint16(r.Area))
}

func getRecordID(buf []byte) RecordID {
	return RecordID{Page: page.PageID(binary.LittleEndian.Uint32(buf[0:])), Area: page.AreaID(binary.LittleEndian.Uint16(buf[4:]))}
}

const recordIDSize = 6

// searchKeys returns the index of the first element of keys that is >= k,
// and whether an exact match was found at that index — the generalized
// replacement for the teacher's slices.BinarySearch over []int.
func searchKeys(keys []Key, k Key, schema Schema) (int, bool) {
	pos := sort.Search(len(keys), func(i int) bool {
		return CompareKeys(keys[i], k, schema) >= 0
	})
	found := pos < len(keys) && CompareKeys(keys[pos], k, schema) == 0
	return pos, found
}
