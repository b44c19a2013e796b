// Package pathcache implements the Path Cache (spec §4.9): a
// (source,target)-keyed LRU over BFS results with an at-most-one-inflight
// computation discipline. The LRU eviction policy and entry shape are
// grounded on the teacher's cache.go SearchCache, generalized from its
// insertion-order ring buffer (byte-size bounded) to a true
// least-recently-used, entry-count-bounded cache as the spec requires;
// the at-most-one-inflight discipline the teacher's cache does not
// implement is added here via golang.org/x/sync/singleflight.
package pathcache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/hut8/wikiwalk/internal/bfs"
	"github.com/hut8/wikiwalk/internal/wikierr"
	"github.com/hut8/wikiwalk/internal/wikiid"
)

// DefaultCapacity is the LRU entry-count bound (spec §4.9).
const DefaultCapacity = 1024

// Key identifies one query. (a,b) and (b,a) are distinct keys.
type Key struct {
	Source, Target wikiid.PageID
}

// Entry is a cached outcome: either a completed result, or one of the
// exceptional-but-cacheable errors (NoPath, NoSuchVertex).
type Entry struct {
	Result bfs.Result
	Err    error
}

// ComputeFunc runs a fresh BFS search for key. It is called at most once
// per key among any number of concurrently waiting callers.
type ComputeFunc func(ctx context.Context, key Key) (bfs.Result, error)

// Cache is the Path Cache. It is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[Key]*list.Element
	group    singleflight.Group

	// ComputeCount counts leader computations actually run, for tests
	// verifying the at-most-one-inflight discipline (spec §8 property 10).
	ComputeCount int64
}

type cacheItem struct {
	key   Key
	entry Entry
}

// New creates a Cache bounded to capacity entries.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[Key]*list.Element, capacity),
	}
}

// Get returns the cached result for key if present, otherwise runs
// compute exactly once across all concurrently-waiting callers for that
// key, caches cacheable outcomes, and returns the result to every waiter.
func (c *Cache) Get(ctx context.Context, key Key, compute ComputeFunc) (bfs.Result, error) {
	if entry, ok := c.peek(key); ok {
		return entry.Result, entry.Err
	}

	groupKey := fmt.Sprintf("%d:%d", key.Source, key.Target)
	v, _, _ := c.group.Do(groupKey, func() (interface{}, error) {
		// Re-check: another leader may have just published this key's
		// result between our peek above and acquiring leadership here.
		if entry, ok := c.peek(key); ok {
			return entry, nil
		}

		atomic.AddInt64(&c.ComputeCount, 1)
		result, err := compute(ctx, key)
		if err == nil {
			entry := Entry{Result: result}
			c.put(key, entry)
			return entry, nil
		}

		switch err.(type) {
		case *wikierr.NoPathError, *wikierr.NoSuchVertexError:
			entry := Entry{Err: err}
			c.put(key, entry)
			return entry, nil
		default:
			// Timeout and Cancelled are not cached per spec §7/§5.
			return Entry{Err: err}, nil
		}
	})

	entry := v.(Entry)
	return entry.Result, entry.Err
}

func (c *Cache) peek(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		return Entry{}, false
	}
	c.ll.MoveToFront(elem)
	return elem.Value.(*cacheItem).entry, true
}

func (c *Cache) put(key Key, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*cacheItem).entry = entry
		c.ll.MoveToFront(elem)
		return
	}

	elem := c.ll.PushFront(&cacheItem{key: key, entry: entry})
	c.items[key] = elem

	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheItem).key)
		}
	}
}

// Len reports the current entry count, for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
