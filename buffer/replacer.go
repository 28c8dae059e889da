package buffer

import (
	"container/list"
	"errors"
)

// ErrNoEvictableFrame is returned when every tracked frame is pinned.
var ErrNoEvictableFrame = errors.New("buffer: cannot evict, all frames are pinned")

// LruKFrameMetadata tracks the access history used by the LRU-K policy for
// a single frame.
type LruKFrameMetadata struct {
	history     []int // up to the last k access timestamps, oldest first
	isEvictable bool
	lruElem     *list.Element // non-nil while history has fewer than k entries
}

// LruKReplacer implements the LRU-K eviction policy: a frame's backward
// k-distance is the time since its k-th most recent access; frames with
// fewer than k accesses have an effectively infinite backward k-distance
// and are evicted in order of their first recorded access among
// themselves before any frame with full history is considered.
type LruKReplacer struct {
	k                int
	maxSize          int
	metadataStore    map[int]LruKFrameMetadata
	lru              *list.List // FIFO of frames with < k recorded accesses
	size             int        // number of evictable frames
	currentTimestamp int
}

// NewLruKReplacer creates a replacer tracking up to maxSize frames with a
// backward-distance lookback of k accesses.
func NewLruKReplacer(maxSize, k int) *LruKReplacer {
	return &LruKReplacer{
		k:             k,
		maxSize:       maxSize,
		metadataStore: make(map[int]LruKFrameMetadata),
		lru:           list.New(),
	}
}

// recordAccess records that frameId was referenced "now" (the replacer's
// own monotonically increasing logical clock).
func (r *LruKReplacer) recordAccess(frameId int) {
	r.currentTimestamp++
	m, ok := r.metadataStore[frameId]
	if !ok {
		m = LruKFrameMetadata{}
	}
	m.history = append(m.history, r.currentTimestamp)
	if len(m.history) > r.k {
		m.history = m.history[len(m.history)-r.k:]
	}
	if len(m.history) < r.k {
		if m.lruElem == nil {
			m.lruElem = r.lru.PushBack(frameId)
		}
	} else if m.lruElem != nil {
		r.lru.Remove(m.lruElem)
		m.lruElem = nil
	}
	r.metadataStore[frameId] = m
}

// setEvictable marks a frame eligible (or ineligible) for eviction.
func (r *LruKReplacer) setEvictable(frameId int, evictable bool) {
	m, ok := r.metadataStore[frameId]
	if !ok {
		m = LruKFrameMetadata{}
	}
	if m.isEvictable != evictable {
		if evictable {
			r.size++
		} else {
			r.size--
		}
	}
	m.isEvictable = evictable
	r.metadataStore[frameId] = m
}

// evict picks a victim frame id per the LRU-K policy, removes it from
// tracking, and returns it.
func (r *LruKReplacer) evict() (int, error) {
	for e := r.lru.Front(); e != nil; e = e.Next() {
		fid := e.Value.(int)
		if m := r.metadataStore[fid]; m.isEvictable {
			r.lru.Remove(e)
			delete(r.metadataStore, fid)
			r.size--
			return fid, nil
		}
	}

	bestFrame := -1
	bestDistance := -1
	for fid, m := range r.metadataStore {
		if !m.isEvictable || len(m.history) < r.k {
			continue
		}
		distance := r.currentTimestamp - m.history[0]
		if distance > bestDistance {
			bestDistance = distance
			bestFrame = fid
		}
	}
	if bestFrame == -1 {
		return 0, ErrNoEvictableFrame
	}
	delete(r.metadataStore, bestFrame)
	r.size--
	return bestFrame, nil
}

// remove stops tracking a frame entirely (used when a page is deleted).
func (r *LruKReplacer) remove(frameId int) {
	m, ok := r.metadataStore[frameId]
	if !ok {
		return
	}
	if m.lruElem != nil {
		r.lru.Remove(m.lruElem)
	}
	if m.isEvictable {
		r.size--
	}
	delete(r.metadataStore, frameId)
}
