package resultset

import "sort"

// AdjustMethod controls how an external score column is blended with the
// computed score in AdjustScore.
type AdjustMethod int

const (
	Multiply AdjustMethod = iota
	Add
	Replace
)

// SortKey names the column a ResultSet is ordered by.
type SortKey int

const (
	BySortScore SortKey = iota
	BySortDocID
)

// SortOrder is ascending or descending.
type SortOrder int

const (
	Asc SortOrder = iota
	Desc
)

// Combiner blends per-field feature weights within a cluster.
type Combiner int

const (
	CombineAvg Combiner = iota
	CombineMax
)

// WordData is one scored feature term within a document, the unit
// clustering's feature-vector inner product operates over.
type WordData struct {
	Term   string
	Weight float64
}

// Row is one result-set entry, accumulating everything the projections
// in spec.md §4.9 can report about a hit.
type Row struct {
	DocID       uint32
	Score       float64
	ClusterID   int
	Sections    []int
	TermFreqs   map[string]uint16
	Existence   map[string]bool
	Features    []WordData
	RoughKwic   int
	DocLen      int
	OriginalLen int
}

// ResultSet holds the executor's output plus the parameters needed for
// clustering, sorting and cursoring over it (spec.md §4.9).
type ResultSet struct {
	rows    []Row
	cluster ClusterParameter
	clustered bool
}

// ClusterParameter configures setClusterParameter.
type ClusterParameter struct {
	GlobalLimit        int
	Combiner           Combiner
	FieldWeights       map[string]float64
	MergeWindow        int // Inverted_MergeClusterDistance, default 10
	MaxRoughClusterSize int // Inverted_MaxRoughClusterCount
	LocalClusteredLimit float64
}

// New builds a ResultSet from executor hits.
func New(hits []Hit) *ResultSet {
	rows := make([]Row, len(hits))
	for i, h := range hits {
		rows[i] = Row{DocID: h.DocID, Score: h.Score, ClusterID: -1}
	}
	return &ResultSet{rows: rows}
}

// Rows exposes the underlying rows, e.g. for projection extraction.
func (rs *ResultSet) Rows() []Row { return rs.rows }

// Len reports the number of rows.
func (rs *ResultSet) Len() int { return len(rs.rows) }

// AdjustScore blends an external per-document score into each row's
// Score using method, then sorts the result set by key/order.
func (rs *ResultSet) AdjustScore(external map[uint32]float64, method AdjustMethod, key SortKey, order SortOrder) {
	for i := range rs.rows {
		ext, ok := external[rs.rows[i].DocID]
		if !ok {
			continue
		}
		switch method {
		case Multiply:
			rs.rows[i].Score *= ext
		case Add:
			rs.rows[i].Score += ext
		case Replace:
			rs.rows[i].Score = ext
		}
	}
	rs.Sort(key, order)
}

// Sort orders rows by the requested key.
func (rs *ResultSet) Sort(key SortKey, order SortOrder) {
	sort.Slice(rs.rows, func(i, j int) bool {
		var less bool
		switch key {
		case BySortScore:
			less = rs.rows[i].Score < rs.rows[j].Score
		case BySortDocID:
			less = rs.rows[i].DocID < rs.rows[j].DocID
		}
		if order == Desc {
			var greater bool
			switch key {
			case BySortScore:
				greater = rs.rows[i].Score > rs.rows[j].Score
			case BySortDocID:
				greater = rs.rows[i].DocID > rs.rows[j].DocID
			}
			return greater
		}
		return less
	})
}

// SetClusterParameter records clustering configuration for a later call
// to Clustering. Defaults match spec.md §6's table.
func (rs *ResultSet) SetClusterParameter(p ClusterParameter) {
	if p.MergeWindow <= 0 {
		p.MergeWindow = 10
	}
	if p.MaxRoughClusterSize <= 0 {
		p.MaxRoughClusterSize = 1024
	}
	rs.cluster = p
}

// Cursor walks a ResultSet a page at a time.
type Cursor struct {
	rs     *ResultSet
	offset int
}

// Seek returns a cursor positioned at offset, the first limit rows of
// which Next will yield (limit is advisory; Next just walks to the end).
func (rs *ResultSet) Seek(offset, limit int) *Cursor {
	if offset < 0 {
		offset = 0
	}
	if offset > len(rs.rows) {
		offset = len(rs.rows)
	}
	return &Cursor{rs: rs, offset: offset}
}

// Next returns the next row and advances the cursor.
func (c *Cursor) Next() (Row, bool) {
	if c.offset >= len(c.rs.rows) {
		return Row{}, false
	}
	row := c.rs.rows[c.offset]
	c.offset++
	return row, true
}
