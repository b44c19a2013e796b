package graphbuild

import (
	"context"
	"log"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hut8/wikiwalk/internal/extsort"
	"github.com/hut8/wikiwalk/internal/wikidump"
	"github.com/hut8/wikiwalk/internal/wikiid"
)

// EdgeResolver is the Edge Resolver (spec §4.5): it turns raw pagelinks
// rows into resolved (src,dst) vertex-ID pairs, dropping anything that
// doesn't land on a namespace-0 canonical vertex on both ends, and feeds
// the result into the external sort pipeline for dedup. Counters are
// updated atomically: ResolveEdges fans row resolution out across a
// worker pool.
type EdgeResolver struct {
	UnresolvedCount int64
	SelfLoopCount   int64
	Edges           int64
}

// ResolveEdges streams pagelinksPath, resolves every namespace-0 link
// through loader's title map and redirects across a bounded worker pool
// (spec §5 — row resolution is independent per row), and returns the path
// to a zstd-compressed run file of unique (src,dst) pairs sorted by
// (src,dst), ready for the Adjacency Builder to consume.
func ResolveEdges(ctx context.Context, pagelinksPath string, loader *VertexLoader, redirects *RedirectResolver) (string, *EdgeResolver, error) {
	resolver := &EdgeResolver{}
	pairs := make(chan extsort.Pair, extsort.Workers()*1024)

	rows, errc := wikidump.StreamPagelinks(pagelinksPath)

	g, gctx := errgroup.WithContext(ctx)
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for row := range rows {
				if row.FromNamespace != 0 || row.Namespace != 0 {
					continue
				}

				src, ok := resolveVertex(row.From, loader, redirects)
				if !ok {
					atomic.AddInt64(&resolver.UnresolvedCount, 1)
					continue
				}

				title := normalizeTitle(row.Title)
				dstID, found := loader.Titler[title]
				if !found {
					atomic.AddInt64(&resolver.UnresolvedCount, 1)
					continue
				}
				dst, ok := resolveVertex(dstID, loader, redirects)
				if !ok {
					atomic.AddInt64(&resolver.UnresolvedCount, 1)
					continue
				}

				if src == dst {
					atomic.AddInt64(&resolver.SelfLoopCount, 1)
					continue
				}

				atomic.AddInt64(&resolver.Edges, 1)
				select {
				case pairs <- extsort.Pair{Src: src, Dst: dst}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	workerErrc := make(chan error, 1)
	go func() {
		defer close(pairs)
		workerErrc <- g.Wait()
	}()

	path, err := extsort.SortBySrcDst(ctx, pairs)
	if err != nil {
		return "", nil, err
	}
	if err := <-workerErrc; err != nil {
		return "", nil, err
	}
	if err := <-errc; err != nil {
		return "", nil, err
	}

	if resolver.UnresolvedCount > 0 || resolver.SelfLoopCount > 0 {
		log.Printf("edge resolution: %d edges, %d unresolved links dropped, %d self-loops dropped",
			resolver.Edges, resolver.UnresolvedCount, resolver.SelfLoopCount)
	}
	return path, resolver, nil
}

// resolveVertex maps a raw page ID to its canonical vertex ID: if id is
// not flagged as a redirect in loader it is returned unchanged (whether it
// appeared in the page dump at all is not checked); if it is a resolved
// redirect source its canonical target is returned; otherwise the link
// can't be resolved to a canonical vertex. redirects.Resolved is only read here,
// after ResolveRedirects has fully populated it, but the read still goes
// through the mutex since resolveVertex can be called concurrently by
// ResolveEdges's worker pool.
func resolveVertex(id wikiid.PageID, loader *VertexLoader, redirects *RedirectResolver) (wikiid.PageID, bool) {
	if !loader.IsRedirect[id] {
		return id, true
	}
	redirects.mu.Lock()
	target, ok := redirects.Resolved[id]
	redirects.mu.Unlock()
	return target, ok
}
