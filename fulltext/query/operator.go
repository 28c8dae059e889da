package query

import (
	"sort"

	"dbengine/fulltext/invertedlist"
)

// AndNode requires every child to match the same document (a leapfrog
// join over document-at-a-time children), scoring as the sum of each
// child's contribution.
type AndNode struct {
	children []Node
	docID    uint32
	started  bool
	matched  bool
}

// NewAndNode intersects children.
func NewAndNode(children ...Node) *AndNode {
	return &AndNode{children: children, docID: invertedlist.DocIDNone}
}

func (n *AndNode) advance(from uint32) bool {
	if len(n.children) == 0 {
		n.docID = invertedlist.DocIDNone
		return false
	}
	target := from
	i := 0
	for i < len(n.children) {
		c := n.children[i]
		if c.DocID() == invertedlist.DocIDNone || c.DocID() < target {
			if !c.SkipTo(target) {
				n.docID = invertedlist.DocIDNone
				return false
			}
		}
		if c.DocID() > target {
			target = c.DocID()
			i = 0
			continue
		}
		i++
	}
	n.docID = target
	n.matched = true
	return true
}

func (n *AndNode) DocID() uint32 {
	if !n.started {
		return invertedlist.DocIDNone
	}
	return n.docID
}

func (n *AndNode) Frequency() uint16 {
	if len(n.children) == 0 {
		return 0
	}
	return n.children[0].Frequency()
}

func (n *AndNode) Locations() []uint32 {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[0].Locations()
}

func (n *AndNode) Next() bool {
	n.started = true
	if n.docID == invertedlist.DocIDNone && n.matched {
		return false
	}
	return n.advance(n.docID + 1)
}

func (n *AndNode) SkipTo(target uint32) bool {
	n.started = true
	return n.advance(target)
}

func (n *AndNode) Score() float64 {
	if n.DocID() == invertedlist.DocIDNone {
		return 0
	}
	total := 0.0
	for _, c := range n.children {
		total += c.Score()
	}
	return total
}

func (n *AndNode) UpperBound() float64 {
	total := 0.0
	for _, c := range n.children {
		total += c.UpperBound()
	}
	return total
}

func (n *AndNode) Close() {
	for _, c := range n.children {
		c.Close()
	}
}

// AndNotNode matches documents the positive child matches and the
// negative child does not.
type AndNotNode struct {
	positive Node
	negative Node
	docID    uint32
	started  bool
	matched  bool
}

// NewAndNotNode builds positive-minus-negative.
func NewAndNotNode(positive, negative Node) *AndNotNode {
	return &AndNotNode{positive: positive, negative: negative, docID: invertedlist.DocIDNone}
}

func (n *AndNotNode) advance(from uint32) bool {
	if !n.positive.SkipTo(from) {
		n.docID = invertedlist.DocIDNone
		return false
	}
	for {
		d := n.positive.DocID()
		if n.negative.DocID() == invertedlist.DocIDNone || n.negative.DocID() < d {
			if !n.negative.SkipTo(d) {
				n.docID = d
				n.matched = true
				return true
			}
		}
		if n.negative.DocID() != d {
			n.docID = d
			n.matched = true
			return true
		}
		if !n.positive.SkipTo(d + 1) {
			n.docID = invertedlist.DocIDNone
			return false
		}
	}
}

func (n *AndNotNode) DocID() uint32 {
	if !n.started {
		return invertedlist.DocIDNone
	}
	return n.docID
}

func (n *AndNotNode) Frequency() uint16   { return n.positive.Frequency() }
func (n *AndNotNode) Locations() []uint32 { return n.positive.Locations() }

func (n *AndNotNode) Next() bool {
	n.started = true
	if n.docID == invertedlist.DocIDNone && n.matched {
		return false
	}
	return n.advance(n.docID + 1)
}

func (n *AndNotNode) SkipTo(target uint32) bool {
	n.started = true
	return n.advance(target)
}

func (n *AndNotNode) Score() float64 {
	if n.DocID() == invertedlist.DocIDNone {
		return 0
	}
	return n.positive.Score()
}

func (n *AndNotNode) UpperBound() float64 { return n.positive.UpperBound() }

func (n *AndNotNode) Close() {
	n.positive.Close()
	n.negative.Close()
}

// OrNode matches a document if any child does, scoring as the sum of
// matching children's contributions. It supports WAND-style pivot
// selection: once a score threshold is set, children are sorted by
// current document id and advanced past the pivot implied by cumulative
// upper bounds, skipping documents that could never beat the threshold.
type OrNode struct {
	children  []Node
	threshold float64
	docID     uint32
	started   bool
	matched   bool
}

// NewOrNode unions children.
func NewOrNode(children ...Node) *OrNode {
	return &OrNode{children: children, docID: invertedlist.DocIDNone}
}

// SetThreshold enables WAND pruning: documents whose cumulative upper
// bound cannot reach threshold are skipped without being scored.
func (n *OrNode) SetThreshold(threshold float64) { n.threshold = threshold }

func (n *OrNode) sortByDocID() {
	sort.Slice(n.children, func(i, j int) bool {
		di, dj := n.children[i].DocID(), n.children[j].DocID()
		if di == invertedlist.DocIDNone {
			return false
		}
		if dj == invertedlist.DocIDNone {
			return true
		}
		return di < dj
	})
}

// pivot returns the index of the first child whose cumulative upper
// bound (over children[0..i]) reaches the threshold, the WAND condition
// for a document at children[i].DocID() to be worth fully evaluating.
func (n *OrNode) pivot() int {
	sum := 0.0
	for i, c := range n.children {
		if c.DocID() == invertedlist.DocIDNone {
			return -1
		}
		sum += c.UpperBound()
		if sum >= n.threshold {
			return i
		}
	}
	return -1
}

func (n *OrNode) advance(from uint32) bool {
	for _, c := range n.children {
		if c.DocID() == invertedlist.DocIDNone || c.DocID() < from {
			c.SkipTo(from)
		}
	}
	for {
		n.sortByDocID()
		if len(n.children) == 0 || n.children[0].DocID() == invertedlist.DocIDNone {
			n.docID = invertedlist.DocIDNone
			return false
		}
		if n.threshold <= 0 {
			n.docID = n.children[0].DocID()
			n.matched = true
			return true
		}
		p := n.pivot()
		if p < 0 {
			n.docID = invertedlist.DocIDNone
			return false
		}
		pivotDoc := n.children[p].DocID()
		if pivotDoc == n.children[0].DocID() {
			n.docID = pivotDoc
			n.matched = true
			return true
		}
		for i := 0; i < p; i++ {
			n.children[i].SkipTo(pivotDoc)
		}
	}
}

func (n *OrNode) DocID() uint32 {
	if !n.started {
		return invertedlist.DocIDNone
	}
	return n.docID
}

func (n *OrNode) matchingChildren() []Node {
	var out []Node
	for _, c := range n.children {
		if c.DocID() == n.docID {
			out = append(out, c)
		}
	}
	return out
}

func (n *OrNode) Frequency() uint16 {
	m := n.matchingChildren()
	if len(m) == 0 {
		return 0
	}
	return m[0].Frequency()
}

func (n *OrNode) Locations() []uint32 {
	m := n.matchingChildren()
	if len(m) == 0 {
		return nil
	}
	return m[0].Locations()
}

func (n *OrNode) Next() bool {
	n.started = true
	if n.docID == invertedlist.DocIDNone && n.matched {
		return false
	}
	return n.advance(n.docID + 1)
}

func (n *OrNode) SkipTo(target uint32) bool {
	n.started = true
	return n.advance(target)
}

func (n *OrNode) Score() float64 {
	if n.DocID() == invertedlist.DocIDNone {
		return 0
	}
	total := 0.0
	for _, c := range n.matchingChildren() {
		total += c.Score()
	}
	return total
}

func (n *OrNode) UpperBound() float64 {
	total := 0.0
	for _, c := range n.children {
		total += c.UpperBound()
	}
	return total
}

func (n *OrNode) Close() {
	for _, c := range n.children {
		c.Close()
	}
}

// WeightedOrNode is an OrNode whose children contribute a caller-supplied
// multiplier to their score, for queries that weight some clauses (e.g.
// a title match) more heavily than others.
type WeightedOrNode struct {
	*OrNode
	weights []float64
	orig    []Node // children in caller order; OrNode re-sorts its own slice
}

// NewWeightedOrNode unions children, each scaled by its weight.
func NewWeightedOrNode(children []Node, weights []float64) *WeightedOrNode {
	orig := append([]Node(nil), children...)
	return &WeightedOrNode{OrNode: NewOrNode(children...), weights: weights, orig: orig}
}

func (n *WeightedOrNode) weightOf(idx int) float64 {
	if idx < len(n.weights) {
		return n.weights[idx]
	}
	return 1
}

func (n *WeightedOrNode) Score() float64 {
	if n.DocID() == invertedlist.DocIDNone {
		return 0
	}
	total := 0.0
	for i, c := range n.orig {
		if c.DocID() == n.docID {
			total += c.Score() * n.weightOf(i)
		}
	}
	return total
}

func (n *WeightedOrNode) UpperBound() float64 {
	total := 0.0
	for i, c := range n.orig {
		total += c.UpperBound() * n.weightOf(i)
	}
	return total
}
