package btree

import (
	"encoding/binary"
	"fmt"
	"sync"

	"dbengine/buffer"
	"dbengine/codec"
)

// Tree is a B+tree index: inner pages direct the search, leaf pages hold
// the (key, recordID) entries, and every leaf is chained to its neighbors
// for ordered forward/reverse scans (spec.md §4.3/§4.4).
type Tree struct {
	mu         sync.RWMutex
	bpm        *buffer.BufferPoolManager
	schema     Schema
	name       string
	rootPageId int
}

// NewTree opens an existing tree rooted at rootPageId, or — when
// rootPageId is InvalidPageId — creates a fresh tree with an empty leaf
// root.
func NewTree(name string, bpm *buffer.BufferPoolManager, schema Schema, rootPageId int) (*Tree, error) {
	t := &Tree{bpm: bpm, schema: schema, name: name, rootPageId: rootPageId}
	if rootPageId != InvalidPageId {
		return t, nil
	}
	leaf, err := newLeafNode(bpm, schema)
	if err != nil {
		return nil, err
	}
	if err := leaf.toBytes(); err != nil {
		return nil, err
	}
	t.rootPageId = leaf.pageId()
	bpm.Unpin(leaf.frame)
	return t, nil
}

// RootPageId returns the page id callers should persist as this tree's
// root, e.g. in a catalog row, so it can be reopened with NewTree.
func (t *Tree) RootPageId() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rootPageId
}

func readNodeType(data []byte) NodeType {
	return NodeType(binary.LittleEndian.Uint32(data[0:]))
}

// Search returns the record id stored under an exact key match.
func (t *Tree) Search(k Key) (RecordID, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	leaf, err := t.descendToLeaf(k, buffer.ReadOnly, nil)
	if err != nil {
		return RecordID{}, false, err
	}
	defer t.bpm.Unpin(leaf.frame)
	rid, ok := leaf.search(k)
	return rid, ok, nil
}

// descendToLeaf walks from the root to the leaf that may contain k. When
// path is non-nil, every inner node visited is fixed in Write mode and
// appended to *path so the caller can propagate a split back up; the
// caller owns unpinning every frame in *path plus the returned leaf.
func (t *Tree) descendToLeaf(k Key, leafMode buffer.FixMode, path *[]*innerNode) (*leafNode, error) {
	innerMode := leafMode
	if path != nil {
		innerMode = buffer.Write
	}
	pageId := t.rootPageId
	for {
		mode := innerMode
		f, err := t.bpm.Fix(pageId, mode)
		if err != nil {
			return nil, fmt.Errorf("btree: fixing page %d: %w", pageId, err)
		}
		if readNodeType(f.Data) == LeafNodeType {
			f.Mode = leafMode
			leaf, err := loadLeafNode(t.bpm, t.schema, f)
			if err != nil {
				t.bpm.Unpin(f)
				return nil, err
			}
			return leaf, nil
		}
		inner, err := loadInnerNode(t.bpm, t.schema, f)
		if err != nil {
			t.bpm.Unpin(f)
			return nil, err
		}
		if path != nil {
			*path = append(*path, inner)
		} else {
			t.bpm.Unpin(f)
		}
		pageId = inner.children[inner.childFor(k)]
	}
}

// Insert adds (k, v), splitting nodes bottom-up as needed and growing the
// tree by one level when the root itself splits.
func (t *Tree) Insert(k Key, v RecordID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var path []*innerNode
	leaf, err := t.descendToLeaf(k, buffer.Write, &path)
	if err != nil {
		return err
	}
	defer func() {
		for _, n := range path {
			t.bpm.Unpin(n.frame)
		}
	}()

	if err := leaf.insert(k, v); err != nil {
		t.bpm.Unpin(leaf.frame)
		return err
	}
	if err := leaf.toBytes(); err != nil {
		t.bpm.Unpin(leaf.frame)
		return err
	}

	sz, err := leaf.estimatedSize()
	if err != nil {
		t.bpm.Unpin(leaf.frame)
		return err
	}
	if sz <= int(float64(t.bpm.PageSize())*maxFillRatio) {
		t.bpm.Unpin(leaf.frame)
		return nil
	}

	right, sep, err := leaf.split(t.bpm)
	if err != nil {
		t.bpm.Unpin(leaf.frame)
		return err
	}
	if err := leaf.toBytes(); err != nil {
		return err
	}
	if err := right.toBytes(); err != nil {
		return err
	}
	if right.next != InvalidPageId {
		if err := t.relinkLeafPrev(right.next, right.pageId()); err != nil {
			return err
		}
	}
	rightPageId := right.pageId()
	t.bpm.Unpin(leaf.frame)
	t.bpm.Unpin(right.frame)

	return t.propagateSplit(path, sep, rightPageId)
}

func (t *Tree) relinkLeafPrev(pageId, newPrev int) error {
	f, err := t.bpm.Fix(pageId, buffer.Write)
	if err != nil {
		return fmt.Errorf("btree: relinking leaf chain at page %d: %w", pageId, err)
	}
	defer t.bpm.Unpin(f)
	n, err := loadLeafNode(t.bpm, t.schema, f)
	if err != nil {
		return err
	}
	n.prev = newPrev
	return n.toBytes()
}

// propagateSplit inserts (sep, rightPageId) into the deepest remaining
// ancestor, splitting it in turn if it overflows, until either an ancestor
// absorbs the split without overflowing or the stack is exhausted — in
// which case a brand new root is created, growing the tree by one level.
func (t *Tree) propagateSplit(path []*innerNode, sep Key, rightPageId int) error {
	if len(path) == 0 {
		return t.newRoot(sep, path, rightPageId)
	}
	parent := path[len(path)-1]
	rest := path[:len(path)-1]

	parent.insertSeparator(sep, rightPageId)
	if err := parent.toBytes(); err != nil {
		return err
	}
	sz, err := parent.estimatedSize()
	if err != nil {
		return err
	}
	if sz <= int(float64(t.bpm.PageSize())*maxFillRatio) {
		return nil
	}

	right, promoted, err := parent.split(t.bpm)
	if err != nil {
		return err
	}
	if err := parent.toBytes(); err != nil {
		return err
	}
	if err := right.toBytes(); err != nil {
		return err
	}
	rightPageId = right.pageId()
	t.bpm.Unpin(right.frame)
	return t.propagateSplit(rest, promoted, rightPageId)
}

func (t *Tree) newRoot(sep Key, _ []*innerNode, rightPageId int) error {
	newRoot, err := newInnerNode(t.bpm, t.schema)
	if err != nil {
		return err
	}
	newRoot.keys = []Key{sep}
	newRoot.children = []int{t.rootPageId, rightPageId}
	if err := newRoot.toBytes(); err != nil {
		return err
	}
	t.rootPageId = newRoot.pageId()
	t.bpm.Unpin(newRoot.frame)
	return nil
}

// Delete removes the entry for (k, v). spec.md's Open Question on merge
// policy is resolved as "no opportunistic merge": underfull leaves are left
// in place rather than redistributed or coalesced with a sibling.
func (t *Tree) Delete(k Key, v RecordID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	leaf, err := t.descendToLeaf(k, buffer.Write, nil)
	if err != nil {
		return false, err
	}
	defer t.bpm.Unpin(leaf.frame)

	if !leaf.delete(k, v) {
		return false, nil
	}
	if err := leaf.toBytes(); err != nil {
		return false, err
	}
	return true, nil
}

// Update removes (oldKey, v) and inserts (newKey, v), the generalized form
// of an index maintenance update when a row's indexed fields change.
func (t *Tree) Update(oldKey Key, newKey Key, v RecordID) error {
	if _, err := t.Delete(oldKey, v); err != nil {
		return err
	}
	return t.Insert(newKey, v)
}

// Cursor yields entries in ascending (or, in reverse mode, descending) key
// order starting at or after (resp. at or before) the position it was
// opened at. skipWhile and stopWhile, when set, let Like/EqualsToNull/Range
// dispatch a bounded walk over the same leaf-chain machinery a plain Scan
// uses (spec.md §4.4.2).
type Cursor struct {
	t        *Tree
	leaf     *leafNode
	idx      int
	reverse  bool
	finished bool

	// skipWhile, when non-nil, is checked before returning a candidate
	// entry; a true result skips that entry without ending the scan.
	skipWhile func(Key) bool
	// stopWhile, when non-nil, is checked before returning a candidate
	// entry; a false result ends the scan without returning that entry.
	stopWhile func(Key) bool
}

// Scan opens a forward cursor positioned at the first key >= from (or the
// very first entry when from is nil).
func (t *Tree) Scan(from Key) (*Cursor, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pageId := t.rootPageId
	if from == nil {
		for {
			f, err := t.bpm.Fix(pageId, buffer.ReadOnly)
			if err != nil {
				return nil, err
			}
			if readNodeType(f.Data) == LeafNodeType {
				leaf, err := loadLeafNode(t.bpm, t.schema, f)
				if err != nil {
					t.bpm.Unpin(f)
					return nil, err
				}
				return &Cursor{t: t, leaf: leaf, idx: 0}, nil
			}
			inner, err := loadInnerNode(t.bpm, t.schema, f)
			t.bpm.Unpin(f)
			if err != nil {
				return nil, err
			}
			pageId = inner.children[0]
		}
	}

	leaf, err := t.descendToLeaf(from, buffer.ReadOnly, nil)
	if err != nil {
		return nil, err
	}
	pos, _ := searchKeys(leaf.keys, from, t.schema)
	return &Cursor{t: t, leaf: leaf, idx: pos}, nil
}

// ScanReverse opens a reverse cursor positioned at the last key <= from (or
// the very last entry in the tree when from is nil), walking the leaf
// chain backwards via prev pointers — the reverse half of spec.md §4.4.2's
// Scan dispatch ("start at top-leaf, or last-leaf for reverse").
func (t *Tree) ScanReverse(from Key) (*Cursor, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if from == nil {
		pageId := t.rootPageId
		for {
			f, err := t.bpm.Fix(pageId, buffer.ReadOnly)
			if err != nil {
				return nil, err
			}
			if readNodeType(f.Data) == LeafNodeType {
				leaf, err := loadLeafNode(t.bpm, t.schema, f)
				if err != nil {
					t.bpm.Unpin(f)
					return nil, err
				}
				return &Cursor{t: t, leaf: leaf, idx: leaf.size() - 1, reverse: true}, nil
			}
			inner, err := loadInnerNode(t.bpm, t.schema, f)
			t.bpm.Unpin(f)
			if err != nil {
				return nil, err
			}
			pageId = inner.children[len(inner.children)-1]
		}
	}

	leaf, err := t.descendToLeaf(from, buffer.ReadOnly, nil)
	if err != nil {
		return nil, err
	}
	pos, found := searchKeys(leaf.keys, from, t.schema)
	if !found {
		pos--
	}
	return &Cursor{t: t, leaf: leaf, idx: pos, reverse: true}, nil
}

// RangeBound marks one endpoint of a Range search.
type RangeBound struct {
	Key       Key
	Inclusive bool
}

// Range returns a cursor over entries between lower and upper (either may
// be nil for an open-ended bound), combining the two endpoint searches and
// honoring inclusive/exclusive endpoints per the schema's per-field
// direction (spec.md §4.4.2's "search by range" dispatch).
func (t *Tree) Range(lower, upper *RangeBound) (*Cursor, error) {
	var from Key
	if lower != nil {
		from = lower.Key
	}
	cur, err := t.Scan(from)
	if err != nil {
		return nil, err
	}
	if lower != nil && !lower.Inclusive {
		lo := lower.Key
		cur.skipWhile = func(k Key) bool { return CompareKeys(k, lo, t.schema) == 0 }
	}
	if upper != nil {
		up := upper
		cur.stopWhile = func(k Key) bool {
			c := CompareKeys(k, up.Key, t.schema)
			if up.Inclusive {
				return c <= 0
			}
			return c < 0
		}
	}
	return cur, nil
}

// Like returns a cursor over entries whose first field starts with prefix:
// it descends directly to the first possible match (seeking (prefix,
// zero-valued...), which sorts at or before any key sharing that prefix)
// and halts the scan as soon as the prefix no longer matches (spec.md
// §4.4.2's Like dispatch).
func (t *Tree) Like(prefix string) (*Cursor, error) {
	seek := make(Key, len(t.schema.Fields))
	seek[0] = codec.Value{Str: prefix}

	cur, err := t.Scan(seek)
	if err != nil {
		return nil, err
	}
	cur.stopWhile = func(k Key) bool { return codec.HasPrefix(k[0], prefix) }
	return cur, nil
}

// EqualsToNull returns a cursor over entries where the field at fieldIndex
// is null. codec.CompareTuples sorts a null field as greater than any
// non-null value, so under an ascending direction the null cluster sits at
// the tail of forward order — ScanReverse finds it immediately instead of
// walking every non-null entry first. Under descending the field's
// multiplier flips that, putting nulls first in forward order, so a plain
// Scan finds them immediately instead. Either way the walk stops as soon
// as a non-null entry is reached (spec.md §4.4.2's EqualsToNull dispatch).
func (t *Tree) EqualsToNull(fieldIndex int) (*Cursor, error) {
	stop := func(k Key) bool { return k[fieldIndex].Null }
	if t.schema.Fields[fieldIndex].Direction == codec.Descending {
		cur, err := t.Scan(nil)
		if err != nil {
			return nil, err
		}
		cur.stopWhile = stop
		return cur, nil
	}
	cur, err := t.ScanReverse(nil)
	if err != nil {
		return nil, err
	}
	cur.stopWhile = stop
	return cur, nil
}

// CompoundCondition pins the contiguous key-field prefix a Compound search
// descends on, plus any additional equality conditions on fields outside
// that prefix that can only be checked row by row.
type CompoundCondition struct {
	// PrefixKey supplies values for the schema's leading len(PrefixKey)
	// fields; the btree's ordering lets these drive a binary-search descent.
	PrefixKey Key
	// ExtraEqual maps a field index outside the prefix to the value every
	// returned row must match, verified per candidate rather than by
	// ordering.
	ExtraEqual map[int]codec.Value
}

// Compound returns a cursor over entries matching cond: it descends using
// only the contiguous key-field prefix, then filters each candidate
// against any additional non-prefix field conditions before returning it,
// and halts once the prefix itself no longer matches (spec.md §4.4.2's
// Compound dispatch).
func (t *Tree) Compound(cond CompoundCondition) (*Cursor, error) {
	prefixLen := len(cond.PrefixKey)
	seek := make(Key, len(t.schema.Fields))
	copy(seek, cond.PrefixKey)

	cur, err := t.Scan(seek)
	if err != nil {
		return nil, err
	}
	prefixSpecs := t.schema.Fields[:prefixLen]
	cur.stopWhile = func(k Key) bool {
		return codec.CompareTuples(k[:prefixLen], cond.PrefixKey, prefixSpecs) == 0
	}
	if len(cond.ExtraEqual) > 0 {
		cur.skipWhile = func(k Key) bool {
			for idx, want := range cond.ExtraEqual {
				if codec.CompareTuples([]codec.Value{k[idx]}, []codec.Value{want}, []codec.FieldSpec{t.schema.Fields[idx]}) != 0 {
					return true
				}
			}
			return false
		}
	}
	return cur, nil
}

// Next advances the cursor and reports the entry it now points at, skipping
// any entries skipWhile rejects and ending the scan (without returning that
// entry) the first time stopWhile rejects one.
func (c *Cursor) Next() (Key, RecordID, bool, error) {
	for {
		k, v, ok, err := c.rawNext()
		if err != nil || !ok {
			return k, v, ok, err
		}
		if c.skipWhile != nil && c.skipWhile(k) {
			continue
		}
		if c.stopWhile != nil && !c.stopWhile(k) {
			c.finished = true
			if c.leaf != nil {
				c.t.bpm.Unpin(c.leaf.frame)
			}
			return nil, RecordID{}, false, nil
		}
		return k, v, true, nil
	}
}

// rawNext advances the cursor one entry in its scan direction, with no
// regard for skipWhile/stopWhile.
func (c *Cursor) rawNext() (Key, RecordID, bool, error) {
	if c.finished {
		return nil, RecordID{}, false, nil
	}
	if c.reverse {
		return c.rawNextReverse()
	}
	for c.idx >= len(c.leaf.keys) {
		if c.leaf.next == InvalidPageId {
			c.finished = true
			c.t.bpm.Unpin(c.leaf.frame)
			return nil, RecordID{}, false, nil
		}
		nextPageId := c.leaf.next
		c.t.bpm.Unpin(c.leaf.frame)
		f, err := c.t.bpm.Fix(nextPageId, buffer.ReadOnly)
		if err != nil {
			return nil, RecordID{}, false, fmt.Errorf("btree: scanning to page %d: %w", nextPageId, err)
		}
		leaf, err := loadLeafNode(c.t.bpm, c.t.schema, f)
		if err != nil {
			c.t.bpm.Unpin(f)
			return nil, RecordID{}, false, err
		}
		c.leaf = leaf
		c.idx = 0
	}
	k, v := c.leaf.keys[c.idx], c.leaf.values[c.idx]
	c.idx++
	return k, v, true, nil
}

func (c *Cursor) rawNextReverse() (Key, RecordID, bool, error) {
	for c.idx < 0 {
		if c.leaf.prev == InvalidPageId {
			c.finished = true
			c.t.bpm.Unpin(c.leaf.frame)
			return nil, RecordID{}, false, nil
		}
		prevPageId := c.leaf.prev
		c.t.bpm.Unpin(c.leaf.frame)
		f, err := c.t.bpm.Fix(prevPageId, buffer.ReadOnly)
		if err != nil {
			return nil, RecordID{}, false, fmt.Errorf("btree: scanning to page %d: %w", prevPageId, err)
		}
		leaf, err := loadLeafNode(c.t.bpm, c.t.schema, f)
		if err != nil {
			c.t.bpm.Unpin(f)
			return nil, RecordID{}, false, err
		}
		c.leaf = leaf
		c.idx = leaf.size() - 1
	}
	k, v := c.leaf.keys[c.idx], c.leaf.values[c.idx]
	c.idx--
	return k, v, true, nil
}

// Close releases the cursor's currently pinned leaf, if any.
func (c *Cursor) Close() {
	if !c.finished && c.leaf != nil {
		c.t.bpm.Unpin(c.leaf.frame)
		c.finished = true
	}
}
