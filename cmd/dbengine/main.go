// Command dbengine is a small demo driver that wires the storage engine
// end to end: disk manager -> buffer pool -> B+tree for an ordered
// secondary index, and posting lists -> query plan -> executor for a
// full-text search, mirroring the teacher's main.go wiring style.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"dbengine/btree"
	"dbengine/buffer"
	"dbengine/codec"
	"dbengine/fulltext/invertedlist"
	"dbengine/fulltext/query"
	"dbengine/fulltext/resultset"
	"dbengine/storage"
)

func main() {
	runBTreeDemo()
	runFullTextDemo()
}

// rowFields describes a document row: a short inline title that drives the
// index, and a body stored outside the index entirely (it can run well
// past what a single area comfortably holds, and an index key could never
// compare it without materializing it — btree.NewSchema already rejects
// StringOutside as a key field for exactly that reason).
var rowFields = []codec.FieldSpec{
	{Name: "title", Type: codec.StringInline, MaxLength: 32, Direction: codec.Ascending},
	{Name: "body", Type: codec.StringOutside},
}

func runBTreeDemo() {
	dir, err := os.MkdirTemp("", "dbengine-demo")
	if err != nil {
		log.Fatalf("mkdir temp: %v", err)
	}
	defer os.RemoveAll(dir)

	dsm, err := storage.NewDiskManager(filepath.Join(dir, "primary"), 4096)
	if err != nil {
		log.Fatalf("opening disk manager: %v", err)
	}
	defer dsm.Close()

	bpm := buffer.NewBufferPoolManager(dsm, 16, 4096)
	schema, err := btree.NewSchema(true, codec.FieldSpec{Name: "title", Type: codec.StringInline, MaxLength: 32, Direction: codec.Ascending})
	if err != nil {
		log.Fatalf("building schema: %v", err)
	}
	tree, err := btree.NewTree("primary", bpm, schema, btree.InvalidPageId)
	if err != nil {
		log.Fatalf("creating tree: %v", err)
	}
	rows := btree.NewRowStore(bpm, rowFields)

	titles := []string{"alpha report", "alpha summary", "beta notes", "gamma minutes"}
	for i, title := range titles {
		body := fmt.Sprintf("body text for %q, entry number %d, repeated to pad the row out a bit.", title, i)
		recID, err := rows.Put([]codec.Value{{Str: title}, {Str: body}})
		if err != nil {
			log.Fatalf("storing row %q: %v", title, err)
		}
		if err := tree.Insert(btree.Key{codec.Value{Str: title}}, recID); err != nil {
			log.Fatalf("insert %q: %v", title, err)
		}
	}

	cur, err := tree.Like("alpha")
	if err != nil {
		log.Fatalf("like search: %v", err)
	}
	defer cur.Close()
	for {
		k, recID, ok, err := cur.Next()
		if err != nil {
			log.Fatalf("cursor: %v", err)
		}
		if !ok {
			break
		}
		row, err := rows.Get(recID)
		if err != nil {
			log.Fatalf("fetching row %v: %v", recID, err)
		}
		fmt.Printf("like(\"alpha\") hit: title=%v body=%q\n", k, row[1].Str)
	}
}

func runFullTextDemo() {
	cat := invertedlist.NewPostingList("cat", []uint32{1, 3, 5}, []uint16{2, 1, 4}, nil)
	hat := invertedlist.NewPostingList("hat", []uint32{3, 5, 9}, []uint16{1, 3, 1}, nil)
	cat.SetIDF(10)
	hat.SetIDF(10)

	corpus := demoCorpus{avgLen: 20, lens: map[uint32]int{1: 15, 3: 22, 5: 18, 9: 30}}
	and := query.NewAndNode(
		query.NewSimpleLeafNode(cat, corpus),
		query.NewSimpleLeafNode(hat, corpus),
	)
	defer and.Close()

	exec := resultset.NewExecutor(and, true)
	hits, _ := exec.RunRange(context.Background(), 0, 1000)
	rs := resultset.New(hits)
	rs.Sort(resultset.BySortScore, resultset.Desc)

	for _, row := range rs.Rows() {
		fmt.Printf("search hit: doc=%d score=%.4f\n", row.DocID, row.Score)
	}
}

type demoCorpus struct {
	avgLen float64
	lens   map[uint32]int
}

func (c demoCorpus) DocLen(docID uint32) int { return c.lens[docID] }
func (c demoCorpus) AvgDocLen() float64      { return c.avgLen }
func (c demoCorpus) NumDocs() int            { return len(c.lens) }
