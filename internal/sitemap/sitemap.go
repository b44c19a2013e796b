// Package sitemap implements the Sitemap / Top-N exporter (spec §4.10): a
// single sequential pass over the sidecar DB and adjacency files producing
// the vertex list and top-N-by-in-degree subset the surrounding web
// service needs for URL generation and its landing page. Grounded on the
// teacher's serve.go, which reads directly out of its SQLite tables for
// the same kind of listing endpoint; here the pass also consults the
// mmapped Graph DB for in-degree.
package sitemap

import (
	"container/heap"

	"github.com/hut8/wikiwalk/internal/graphbuild"
	"github.com/hut8/wikiwalk/internal/graphdb"
	"github.com/hut8/wikiwalk/internal/wikiid"
)

// Entry is one canonical vertex's exported identity.
type Entry struct {
	ID    wikiid.PageID
	Title string
}

// Export is the sitemap exporter's full output.
type Export struct {
	Vertices []Entry   // every canonical vertex, for URL generation
	Top      []Entry   // the topN subset, ordered by descending in-degree
}

// Build performs the single sequential pass described in spec §4.10.
func Build(sidecar *graphbuild.Sidecar, g *graphdb.GraphDB, topN int) (Export, error) {
	var export Export
	top := newTopNHeap(topN)

	err := sidecar.CanonicalTitles(func(id wikiid.PageID, title string) error {
		entry := Entry{ID: id, Title: title}
		export.Vertices = append(export.Vertices, entry)

		degree := len(g.NeighborsIn(id))
		top.consider(entry, degree)
		return nil
	})
	if err != nil {
		return Export{}, err
	}

	export.Top = top.sorted()
	return export, nil
}

// topNHeap keeps the N highest-in-degree entries seen so far using a
// bounded min-heap: the root is always the current cutoff, so each new
// candidate is a single compare-and-maybe-replace against the smallest
// entry already kept.
type topNHeap struct {
	n     int
	items topNItems
}

type topNItem struct {
	entry  Entry
	degree int
}

type topNItems []topNItem

func (h topNItems) Len() int            { return len(h) }
func (h topNItems) Less(i, j int) bool  { return h[i].degree < h[j].degree }
func (h topNItems) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *topNItems) Push(x interface{}) { *h = append(*h, x.(topNItem)) }
func (h *topNItems) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func newTopNHeap(n int) *topNHeap {
	if n < 0 {
		n = 0
	}
	h := &topNHeap{n: n}
	heap.Init(&h.items)
	return h
}

func (h *topNHeap) consider(entry Entry, degree int) {
	if h.n == 0 {
		return
	}
	if len(h.items) < h.n {
		heap.Push(&h.items, topNItem{entry: entry, degree: degree})
		return
	}
	if degree > h.items[0].degree {
		h.items[0] = topNItem{entry: entry, degree: degree}
		heap.Fix(&h.items, 0)
	}
}

// sorted returns the kept entries ordered by descending in-degree.
func (h *topNHeap) sorted() []Entry {
	items := make(topNItems, len(h.items))
	copy(items, h.items)

	out := make([]Entry, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		top := heap.Pop(&items).(topNItem)
		out[i] = top.entry
	}
	return out
}
