package btree

import (
	"encoding/binary"
	"fmt"
	"sort"

	"dbengine/buffer"
	"dbengine/dberrors"
)

// innerNode routes searches toward the correct leaf. It holds n separator
// keys and n+1 child page pointers: child[0] covers keys < key[0], child[i]
// (0<i<n) covers key[i-1] <= k < key[i], and child[n] covers keys >= key[n-1].
// This normalizes the teacher's invalid-first-key-sentinel convention into
// the standard separator-key layout its own doc comment already describes.
type innerNode struct {
	schema   Schema
	keys     []Key
	children []int
	frame    *buffer.Frame
	pageCap  int
}

func newInnerNode(bpm *buffer.BufferPoolManager, schema Schema) (*innerNode, error) {
	f, err := bpm.GetNewPageFrame(buffer.Allocate)
	if err != nil {
		return nil, fmt.Errorf("btree: allocating inner page: %w", err)
	}
	return &innerNode{schema: schema, frame: f, pageCap: bpm.PageSize()}, nil
}

func loadInnerNode(bpm *buffer.BufferPoolManager, schema Schema, f *buffer.Frame) (*innerNode, error) {
	n := &innerNode{schema: schema, frame: f, pageCap: bpm.PageSize()}
	if err := n.fromBytes(f.Data); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *innerNode) pageId() int { return n.frame.PageId }

func (n *innerNode) size() int { return len(n.keys) }

// childFor returns the index of the child subtree that may contain k.
func (n *innerNode) childFor(k Key) int {
	i := sort.Search(len(n.keys), func(i int) bool {
		return CompareKeys(k, n.keys[i], n.schema) < 0
	})
	return i
}

// insertSeparator adds a (separator key, right child page id) pair produced
// by a child split. The new child always lands immediately to the right of
// the separator.
func (n *innerNode) insertSeparator(sep Key, rightChildPageId int) {
	pos := sort.Search(len(n.keys), func(i int) bool {
		return CompareKeys(sep, n.keys[i], n.schema) < 0
	})
	n.keys = insertKeyAt(n.keys, pos, sep)
	n.children = insertIntAt(n.children, pos+1, rightChildPageId)
}

func (n *innerNode) estimatedSize() (int, error) {
	total := HeaderSize + 4*len(n.children)
	for _, k := range n.keys {
		enc, err := EncodeKey(k, n.schema)
		if err != nil {
			return 0, err
		}
		total += 4 + len(enc)
	}
	return total, nil
}

// split moves the separators above the midpoint (len(keys)/2), with their
// right-hand children, into a new right sibling. The separator sitting
// between the two halves is promoted to the parent and removed from both
// children, per the standard B+tree inner-node split.
func (n *innerNode) split(bpm *buffer.BufferPoolManager) (*innerNode, Key, error) {
	right, err := newInnerNode(bpm, n.schema)
	if err != nil {
		return nil, nil, err
	}
	mid := len(n.keys) / 2
	promoted := n.keys[mid]

	right.keys = append(right.keys, n.keys[mid+1:]...)
	right.children = append(right.children, n.children[mid+1:]...)

	n.keys = n.keys[:mid]
	n.children = n.children[:mid+1]
	return right, promoted, nil
}

func (n *innerNode) toBytes() error {
	buf := n.frame.Data
	for i := range buf {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint32(buf[0:], uint32(InnerNodeType))
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(n.keys)))
	binary.LittleEndian.PutUint32(buf[8:], uint32(InvalidPageId))
	binary.LittleEndian.PutUint32(buf[12:], uint32(InvalidPageId))

	off := HeaderSize
	for _, k := range n.keys {
		enc, err := EncodeKey(k, n.schema)
		if err != nil {
			return err
		}
		if off+4+len(enc) > len(buf) {
			return fmt.Errorf("btree: inner page %d: %w", n.pageId(), dberrors.ErrOutOfSpace)
		}
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(enc)))
		off += 4
		copy(buf[off:], enc)
		off += len(enc)
	}
	for _, c := range n.children {
		if off+4 > len(buf) {
			return fmt.Errorf("btree: inner page %d: %w", n.pageId(), dberrors.ErrOutOfSpace)
		}
		binary.LittleEndian.PutUint32(buf[off:], uint32(int32(c)))
		off += 4
	}
	n.frame.IsDirty = true
	return nil
}

func (n *innerNode) fromBytes(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("btree: inner page shorter than header: %w", dberrors.ErrPageCorrupt)
	}
	nodeType := NodeType(binary.LittleEndian.Uint32(data[0:]))
	if nodeType != InnerNodeType {
		return fmt.Errorf("btree: page %d is not an inner page: %w", n.pageId(), dberrors.ErrPageCorrupt)
	}
	count := int(binary.LittleEndian.Uint32(data[4:]))

	keys := make([]Key, 0, count)
	off := HeaderSize
	for i := 0; i < count; i++ {
		if off+4 > len(data) {
			return fmt.Errorf("btree: inner page %d truncated: %w", n.pageId(), dberrors.ErrPageCorrupt)
		}
		klen := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		if off+klen > len(data) {
			return fmt.Errorf("btree: inner page %d truncated: %w", n.pageId(), dberrors.ErrPageCorrupt)
		}
		k, err := DecodeKey(data[off:off+klen], n.schema)
		if err != nil {
			return err
		}
		off += klen
		keys = append(keys, k)
	}
	children := make([]int, 0, count+1)
	for i := 0; i < count+1; i++ {
		if off+4 > len(data) {
			return fmt.Errorf("btree: inner page %d truncated: %w", n.pageId(), dberrors.ErrPageCorrupt)
		}
		children = append(children, int(int32(binary.LittleEndian.Uint32(data[off:]))))
		off += 4
	}
	n.keys = keys
	n.children = children
	return nil
}

func insertIntAt(vals []int, pos int, v int) []int {
	vals = append(vals, 0)
	copy(vals[pos+1:], vals[pos:])
	vals[pos] = v
	return vals
}
