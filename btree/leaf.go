package btree

import (
	"encoding/binary"
	"fmt"

	"dbengine/buffer"
	"dbengine/dberrors"
)

// leafNode holds pairs of (key, recordID) that point at the rows a table
// actually stores, plus prev/next pointers chaining all leaves into one
// doubly-linked list for ordered scans in both directions (spec.md §4.3).
type leafNode struct {
	schema  Schema
	keys    []Key
	values  []RecordID
	next    int // page id of the right sibling, or InvalidPageId
	prev    int // page id of the left sibling, or InvalidPageId
	frame   *buffer.Frame
	pageCap int
}

func newLeafNode(bpm *buffer.BufferPoolManager, schema Schema) (*leafNode, error) {
	f, err := bpm.GetNewPageFrame(buffer.Allocate)
	if err != nil {
		return nil, fmt.Errorf("btree: allocating leaf page: %w", err)
	}
	return &leafNode{
		schema:  schema,
		next:    InvalidPageId,
		prev:    InvalidPageId,
		frame:   f,
		pageCap: bpm.PageSize(),
	}, nil
}

func loadLeafNode(bpm *buffer.BufferPoolManager, schema Schema, f *buffer.Frame) (*leafNode, error) {
	n := &leafNode{schema: schema, frame: f, pageCap: bpm.PageSize()}
	if err := n.fromBytes(f.Data); err != nil {
		return nil, err
	}
	return n, nil
}

func (l *leafNode) pageId() int { return l.frame.PageId }

func (l *leafNode) size() int { return len(l.keys) }

// search returns the record id for an exact key match.
func (l *leafNode) search(k Key) (RecordID, bool) {
	pos, found := searchKeys(l.keys, k, l.schema)
	if !found {
		return RecordID{}, false
	}
	return l.values[pos], true
}

// insert adds (k, v) in sorted position. Enforces uniqueness when the
// schema demands it; otherwise ties are broken by the record id, as
// spec.md §4.3 requires for duplicate-key ordering.
func (l *leafNode) insert(k Key, v RecordID) error {
	pos, found := searchKeys(l.keys, k, l.schema)
	if found {
		if l.schema.Unique {
			// checking this leaf alone is sufficient: a unique key can only
			// ever be found in the single leaf its own ordering descends to,
			// so an equal key here already proves a duplicate without
			// walking prev/next across the chain.
			return dberrors.Wrap(dberrors.ErrUniquenessViolation, "btree", "leaf.insert", 0, "duplicate key on unique index")
		}
		// advance pos past all entries equal to k that sort before v by
		// record id, so duplicates remain ordered by value-object-id.
		for pos < len(l.keys) && CompareKeys(l.keys[pos], k, l.schema) == 0 && compareRecordID(l.values[pos], v) < 0 {
			pos++
		}
	}
	l.keys = insertKeyAt(l.keys, pos, k)
	l.values = insertRecordIDAt(l.values, pos, v)
	return nil
}

// delete removes the first entry matching (k, v) exactly, since a
// non-unique index may hold several rows under the same key.
func (l *leafNode) delete(k Key, v RecordID) bool {
	pos, found := searchKeys(l.keys, k, l.schema)
	if !found {
		return false
	}
	for pos < len(l.keys) && CompareKeys(l.keys[pos], k, l.schema) == 0 {
		if l.values[pos] == v {
			l.keys = append(l.keys[:pos], l.keys[pos+1:]...)
			l.values = append(l.values[:pos], l.values[pos+1:]...)
			return true
		}
		pos++
	}
	return false
}

// estimatedSize returns the serialized footprint of the node so callers can
// decide whether an insert would overflow the backing page.
func (l *leafNode) estimatedSize() (int, error) {
	total := HeaderSize
	for _, k := range l.keys {
		enc, err := EncodeKey(k, l.schema)
		if err != nil {
			return 0, err
		}
		total += 4 + len(enc) + recordIDSize
	}
	return total, nil
}

// split keeps the lower NodeKeyDivideRate share of entries in l, moves the
// rest into a fresh right-sibling leaf, splices it into the leaf chain, and returns the new
// node and the separator key promoted to the parent.
func (l *leafNode) split(bpm *buffer.BufferPoolManager) (*leafNode, Key, error) {
	right, err := newLeafNode(bpm, l.schema)
	if err != nil {
		return nil, nil, err
	}
	mid := int(float64(len(l.keys)) * NodeKeyDivideRate)
	if mid == 0 {
		mid = 1
	}
	right.keys = append(right.keys, l.keys[mid:]...)
	right.values = append(right.values, l.values[mid:]...)
	l.keys = l.keys[:mid]
	l.values = l.values[:mid]

	right.next = l.next
	right.prev = l.pageId()
	l.next = right.pageId()
	if right.next != InvalidPageId {
		// caller (Tree.Insert) is responsible for relinking the old next
		// leaf's prev pointer, since it owns the page-fixing lifecycle.
	}
	return right, right.keys[0], nil
}

func (l *leafNode) toBytes() error {
	buf := l.frame.Data
	for i := range buf {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint32(buf[0:], uint32(LeafNodeType))
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(l.keys)))
	binary.LittleEndian.PutUint32(buf[8:], uint32(int32(l.next)))
	binary.LittleEndian.PutUint32(buf[12:], uint32(int32(l.prev)))

	off := HeaderSize
	for i, k := range l.keys {
		enc, err := EncodeKey(k, l.schema)
		if err != nil {
			return err
		}
		if off+4+len(enc)+recordIDSize > len(buf) {
			return fmt.Errorf("btree: leaf page %d: %w", l.pageId(), dberrors.ErrOutOfSpace)
		}
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(enc)))
		off += 4
		copy(buf[off:], enc)
		off += len(enc)
		putRecordID(buf[off:], l.values[i])
		off += recordIDSize
	}
	l.frame.IsDirty = true
	return nil
}

func (l *leafNode) fromBytes(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("btree: leaf page shorter than header: %w", dberrors.ErrPageCorrupt)
	}
	nodeType := NodeType(binary.LittleEndian.Uint32(data[0:]))
	if nodeType != LeafNodeType {
		return fmt.Errorf("btree: page %d is not a leaf page: %w", l.pageId(), dberrors.ErrPageCorrupt)
	}
	count := int(binary.LittleEndian.Uint32(data[4:]))
	l.next = int(int32(binary.LittleEndian.Uint32(data[8:])))
	l.prev = int(int32(binary.LittleEndian.Uint32(data[12:])))

	keys := make([]Key, 0, count)
	values := make([]RecordID, 0, count)
	off := HeaderSize
	for i := 0; i < count; i++ {
		if off+4 > len(data) {
			return fmt.Errorf("btree: leaf page %d truncated: %w", l.pageId(), dberrors.ErrPageCorrupt)
		}
		klen := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		if off+klen+recordIDSize > len(data) {
			return fmt.Errorf("btree: leaf page %d truncated: %w", l.pageId(), dberrors.ErrPageCorrupt)
		}
		k, err := DecodeKey(data[off:off+klen], l.schema)
		if err != nil {
			return err
		}
		off += klen
		keys = append(keys, k)
		values = append(values, getRecordID(data[off:]))
		off += recordIDSize
	}
	l.keys = keys
	l.values = values
	return nil
}

func insertKeyAt(keys []Key, pos int, k Key) []Key {
	keys = append(keys, nil)
	copy(keys[pos+1:], keys[pos:])
	keys[pos] = k
	return keys
}

func insertRecordIDAt(values []RecordID, pos int, v RecordID) []RecordID {
	values = append(values, RecordID{})
	copy(values[pos+1:], values[pos:])
	values[pos] = v
	return values
}

func compareRecordID(a, b RecordID) int {
	if a.Page != b.Page {
		if a.Page < b.Page {
			return -1
		}
		return 1
	}
	if a.Area != b.Area {
		if a.Area < b.Area {
			return -1
		}
		return 1
	}
	return 0
}
