package graphbuild

import (
	"log"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hut8/wikiwalk/internal/wikidump"
	"github.com/hut8/wikiwalk/internal/wikierr"
	"github.com/hut8/wikiwalk/internal/wikiid"
)

// MaxRedirectDepth bounds redirect chain resolution per spec §4.4. A
// chain that cycles, exceeds this depth, or hits a title not present in
// vertexes is dropped rather than failing the build.
const MaxRedirectDepth = 8

// RedirectResolver is the Redirect Resolver (spec §4.4): it materializes
// a from_id -> canonical_to_id map, bounded against cycles, and writes it
// into the sidecar's redirects table. Resolved/failed are shared across
// the worker pool in ResolveRedirects, guarded by mu.
type RedirectResolver struct {
	mu           sync.Mutex
	Resolved     map[wikiid.PageID]wikiid.PageID
	failed       map[wikiid.PageID]bool
	CycleCount   int
	TooDeepCount int
	DroppedCount int // rd_title not found in vertexes, at any hop
}

// ResolveRedirects streams redirectPath, resolves every namespace-0
// redirect through loader's title map to a canonical target, and persists
// the result into sidecar.redirects. Recoverable failures (cycle, too
// deep, unresolved) are counted and logged, not fatal.
func ResolveRedirects(sidecar *Sidecar, redirectPath string, loader *VertexLoader) (*RedirectResolver, error) {
	immediate := make(map[wikiid.PageID]wikiid.PageID, 1<<16)

	dropped := 0
	rows, errc := wikidump.StreamRedirects(redirectPath)
	for row := range rows {
		if row.Namespace != 0 {
			continue
		}
		title := normalizeTitle(row.Title)
		target, ok := loader.Titler[title]
		if !ok {
			dropped++
			continue
		}
		if target == row.From {
			continue // self-redirect, never survives
		}
		immediate[row.From] = target
	}
	if err := <-errc; err != nil {
		return nil, err
	}

	resolver := &RedirectResolver{
		Resolved:     make(map[wikiid.PageID]wikiid.PageID, len(immediate)),
		failed:       make(map[wikiid.PageID]bool, len(immediate)/8),
		DroppedCount: dropped,
	}

	// Fan chain resolution out across a bounded worker pool (spec §5):
	// immediate is read-only from here on, so each worker walks its own
	// chains lock-free and only takes resolver.mu for the short accesses
	// to the shared Resolved/failed maps and counters.
	froms := make(chan wikiid.PageID, len(immediate))
	for from := range immediate {
		froms <- from
	}
	close(froms)

	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for from := range froms {
				resolver.resolveChain(from, immediate, loader)
			}
			return nil
		})
	}
	g.Wait()

	tx, err := sidecar.db.Begin()
	if err != nil {
		return nil, err
	}
	insert, err := tx.Prepare(`INSERT INTO redirects (from_id, to_id) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	for from, to := range resolver.Resolved {
		if _, err := insert.Exec(from, to); err != nil {
			insert.Close()
			tx.Rollback()
			return nil, err
		}
	}
	insert.Close()
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if resolver.CycleCount > 0 || resolver.TooDeepCount > 0 || resolver.DroppedCount > 0 {
		log.Printf("redirect resolution: %d resolved, %d cycles dropped, %d too-deep dropped, %d unresolved titles dropped",
			len(resolver.Resolved), resolver.CycleCount, resolver.TooDeepCount, resolver.DroppedCount)
	}
	return resolver, nil
}

// resolveChain walks the redirect chain starting at from, memoizing every
// node visited along the way into either r.Resolved (success) or r.failed
// (permanently unresolvable), so each node is walked at most once overall.
// Safe to call concurrently for different from values.
func (r *RedirectResolver) resolveChain(from wikiid.PageID, immediate map[wikiid.PageID]wikiid.PageID, loader *VertexLoader) {
	r.mu.Lock()
	_, alreadyResolved := r.Resolved[from]
	alreadyFailed := r.failed[from]
	r.mu.Unlock()
	if alreadyResolved || alreadyFailed {
		return
	}

	chain := []wikiid.PageID{from}
	cur := from
	// Resolving an H-hop chain takes H+1 iterations: H to walk it via
	// immediate[cur], one more to observe the final cur is canonical.
	// MaxRedirectDepth is the spec's maximum hop count H, so the bound
	// here must allow that extra iteration.
	for depth := 0; depth <= MaxRedirectDepth; depth++ {
		r.mu.Lock()
		to, ok := r.Resolved[cur]
		r.mu.Unlock()
		if ok {
			r.commit(chain, to)
			return
		}

		next, ok := immediate[cur]
		if !ok {
			if !loader.IsRedirect[cur] {
				r.commit(chain, cur) // cur is a canonical terminal
				return
			}
			// cur is a dangling namespace-0 redirect whose own title
			// never resolved: UnresolvedLinkError, drop the chain.
			r.fail(chain, &wikierr.UnresolvedLinkError{From: cur})
			return
		}
		for _, seen := range chain {
			if seen == next {
				r.mu.Lock()
				r.CycleCount++
				r.mu.Unlock()
				r.fail(chain, &wikierr.RedirectCycleError{From: from})
				return
			}
		}
		chain = append(chain, next)
		cur = next
	}
	r.mu.Lock()
	r.TooDeepCount++
	r.mu.Unlock()
	r.fail(chain, &wikierr.RedirectTooDeepError{From: from, MaxDepth: MaxRedirectDepth})
}

func (r *RedirectResolver) commit(chain []wikiid.PageID, target wikiid.PageID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range chain {
		if id != target {
			r.Resolved[id] = target
		}
	}
}

func (r *RedirectResolver) fail(chain []wikiid.PageID, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range chain {
		r.failed[id] = true
	}
}
