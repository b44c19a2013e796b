// Package bfs implements the BFS Engine (spec §4.8): layered bidirectional
// breadth-first search enumerating all shortest paths between two
// vertices. Grounded on katalvlaran/lvlath's bfs/bfs.go for the overall
// walker shape (typed sentinel errors via internal/wikierr, a small
// driver struct holding per-search state), generalized here to a
// bidirectional, all-shortest-paths search with roaring-bitmap visited
// sets per spec §9's tens-of-millions complexity budget.
package bfs

import (
	"context"
	"time"

	"github.com/RoaringBitmap/roaring"

	"github.com/hut8/wikiwalk/internal/graphdb"
	"github.com/hut8/wikiwalk/internal/wikierr"
	"github.com/hut8/wikiwalk/internal/wikiid"
)

// DefaultTimeout is the hard per-query wall-clock budget (spec §5).
const DefaultTimeout = 30 * time.Second

// Result is the outcome of a successful search.
type Result struct {
	Paths   [][]wikiid.PageID `json:"paths"`
	Degrees int               `json:"degrees"`
	Count   int               `json:"count"`
}

// Search computes every shortest path from source to target in g. ctx is
// checked for cancellation between BFS iterations; timeout bounds total
// wall-clock time regardless of ctx.
func Search(ctx context.Context, g *graphdb.GraphDB, source, target wikiid.PageID, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if source == target {
		if !g.Exists(source) {
			return Result{}, &wikierr.NoSuchVertexError{ID: source}
		}
		return Result{Paths: [][]wikiid.PageID{{source}}, Degrees: 0, Count: 1}, nil
	}
	if !g.Exists(source) {
		return Result{}, &wikierr.NoSuchVertexError{ID: source}
	}
	if !g.Exists(target) {
		return Result{}, &wikierr.NoSuchVertexError{ID: target}
	}

	deadline := time.Now().Add(timeout)
	fwd := newFrontier(source, g.NeighborsOut)
	bwd := newFrontier(target, g.NeighborsIn)

	for {
		select {
		case <-ctx.Done():
			return Result{}, &wikierr.CancelledError{Source: source, Target: target}
		default:
		}
		if time.Now().After(deadline) {
			return Result{}, &wikierr.TimeoutError{Source: source, Target: target}
		}

		// Choose the side with the smaller frontier; ties favor forward.
		if len(bwd.frontier) < len(fwd.frontier) {
			bwd.expand()
		} else {
			fwd.expand()
		}

		if fwd.visited.Intersects(bwd.visited) {
			return buildResult(fwd, bwd, source, target)
		}
		if len(fwd.frontier) == 0 || len(bwd.frontier) == 0 {
			return Result{}, &wikierr.NoPathError{Source: source, Target: target}
		}
	}
}

// frontier holds one side's BFS state: the set of vertices visited so
// far, the depth each was discovered at, the current expansion frontier,
// and the parent-DAG arena recording every edge on some shortest subpath.
type frontier struct {
	visited   *roaring.Bitmap
	depthOf   map[wikiid.PageID]int
	frontier  []wikiid.PageID
	curDepth  int
	parents   *parentArena
	neighbors func(wikiid.PageID) []wikiid.PageID
}

func newFrontier(start wikiid.PageID, neighbors func(wikiid.PageID) []wikiid.PageID) *frontier {
	f := &frontier{
		visited:   roaring.New(),
		depthOf:   map[wikiid.PageID]int{start: 0},
		frontier:  []wikiid.PageID{start},
		parents:   newParentArena(),
		neighbors: neighbors,
	}
	f.visited.Add(uint32(start))
	return f
}

// expand advances this side by one BFS layer, per spec §4.8 step 2: every
// neighbor not yet seen joins the next frontier; a neighbor seen at
// exactly the new depth gains an additional parent (a sibling sharing a
// shortest subpath); anything else is a longer path and is skipped.
func (f *frontier) expand() {
	newDepth := f.curDepth + 1
	groups := make(map[wikiid.PageID][]wikiid.PageID)

	for _, u := range f.frontier {
		for _, v := range f.neighbors(u) {
			if d, seen := f.depthOf[v]; !seen || d == newDepth {
				groups[v] = append(groups[v], u)
			}
		}
	}

	var next []wikiid.PageID
	for v := range groups {
		if _, seen := f.depthOf[v]; !seen {
			f.depthOf[v] = newDepth
			f.visited.Add(uint32(v))
			next = append(next, v)
		}
	}
	f.parents.commit(groups)
	f.frontier = next
	f.curDepth = newDepth
}

// buildResult computes the meet set, keeps only the members achieving the
// minimum combined depth (spec guarantees these coincide; this guards the
// invariant defensively), and enumerates the Cartesian product of forward
// and backward paths through each.
func buildResult(fwd, bwd *frontier, source, target wikiid.PageID) (Result, error) {
	meet := roaring.And(fwd.visited, bwd.visited)
	members := meet.ToArray()
	if len(members) == 0 {
		return Result{}, &wikierr.NoPathError{Source: source, Target: target}
	}

	minDepth := -1
	for _, m := range members {
		id := wikiid.PageID(m)
		d := fwd.depthOf[id] + bwd.depthOf[id]
		if minDepth == -1 || d < minDepth {
			minDepth = d
		}
	}

	fwdCache := make(map[wikiid.PageID][][]wikiid.PageID)
	bwdCache := make(map[wikiid.PageID][][]wikiid.PageID)

	var paths [][]wikiid.PageID
	for _, m := range members {
		id := wikiid.PageID(m)
		if fwd.depthOf[id]+bwd.depthOf[id] != minDepth {
			continue
		}
		heads := forwardPaths(id, source, fwd.parents, fwdCache)
		tails := backwardPaths(id, target, bwd.parents, bwdCache)
		for _, h := range heads {
			for _, t := range tails {
				full := make([]wikiid.PageID, 0, len(h)+len(t)-1)
				full = append(full, h[:len(h)-1]...)
				full = append(full, t...)
				paths = append(paths, full)
			}
		}
	}

	return Result{Paths: paths, Degrees: minDepth, Count: len(paths)}, nil
}

// forwardPaths enumerates every path from source to v through the forward
// parent DAG, memoized by v.
func forwardPaths(v, source wikiid.PageID, parents *parentArena, cache map[wikiid.PageID][][]wikiid.PageID) [][]wikiid.PageID {
	if v == source {
		return [][]wikiid.PageID{{source}}
	}
	if cached, ok := cache[v]; ok {
		return cached
	}
	var out [][]wikiid.PageID
	for _, p := range parents.get(v) {
		for _, prefix := range forwardPaths(p, source, parents, cache) {
			path := append(append([]wikiid.PageID{}, prefix...), v)
			out = append(out, path)
		}
	}
	cache[v] = out
	return out
}

// backwardPaths enumerates every path from v to target through the
// backward parent DAG, memoized by v. A backward parent of v is the
// vertex one step closer to target reached during the backward walk.
func backwardPaths(v, target wikiid.PageID, parents *parentArena, cache map[wikiid.PageID][][]wikiid.PageID) [][]wikiid.PageID {
	if v == target {
		return [][]wikiid.PageID{{target}}
	}
	if cached, ok := cache[v]; ok {
		return cached
	}
	var out [][]wikiid.PageID
	for _, next := range parents.get(v) {
		for _, suffix := range backwardPaths(next, target, parents, cache) {
			path := append([]wikiid.PageID{v}, suffix...)
			out = append(out, path)
		}
	}
	cache[v] = out
	return out
}

// parentArena stores, per spec §9, parent sets as a single flat arena of
// vertex IDs plus a start/end index per key, rather than one heap-backed
// slice per vertex. It relies on the BFS invariant that every vertex
// gains all of its parents within a single expand() call, so each
// vertex's run can be appended to the arena contiguously and exactly once.
type parentArena struct {
	arena []wikiid.PageID
	index map[wikiid.PageID][2]int
}

func newParentArena() *parentArena {
	return &parentArena{index: make(map[wikiid.PageID][2]int)}
}

// commit appends one expand() iteration's worth of parent groups to the
// arena. Each key in groups is written exactly once across the arena's
// lifetime.
func (p *parentArena) commit(groups map[wikiid.PageID][]wikiid.PageID) {
	for v, us := range groups {
		if _, exists := p.index[v]; exists {
			continue // v already received its parents in an earlier commit
		}
		start := len(p.arena)
		p.arena = append(p.arena, us...)
		p.index[v] = [2]int{start, len(p.arena)}
	}
}

func (p *parentArena) get(v wikiid.PageID) []wikiid.PageID {
	rng, ok := p.index[v]
	if !ok {
		return nil
	}
	return p.arena[rng[0]:rng[1]]
}
