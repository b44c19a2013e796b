package pathcache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hut8/wikiwalk/internal/bfs"
	"github.com/hut8/wikiwalk/internal/pathcache"
	"github.com/hut8/wikiwalk/internal/wikierr"
	"github.com/hut8/wikiwalk/internal/wikiid"
)

func TestGetCachesAndIsIdempotent(t *testing.T) {
	c := pathcache.New(8)
	calls := int32(0)
	compute := func(ctx context.Context, key pathcache.Key) (bfs.Result, error) {
		atomic.AddInt32(&calls, 1)
		return bfs.Result{Paths: [][]wikiid.PageID{{key.Source, key.Target}}, Degrees: 1, Count: 1}, nil
	}

	key := pathcache.Key{Source: 1, Target: 2}
	first, err := c.Get(context.Background(), key, compute)
	require.NoError(t, err)
	second, err := c.Get(context.Background(), key, compute)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestKeyOrderMatters(t *testing.T) {
	c := pathcache.New(8)
	compute := func(ctx context.Context, key pathcache.Key) (bfs.Result, error) {
		return bfs.Result{Paths: [][]wikiid.PageID{{key.Source, key.Target}}, Degrees: 1, Count: 1}, nil
	}

	forward, err := c.Get(context.Background(), pathcache.Key{Source: 1, Target: 2}, compute)
	require.NoError(t, err)
	backward, err := c.Get(context.Background(), pathcache.Key{Source: 2, Target: 1}, compute)
	require.NoError(t, err)
	require.NotEqual(t, forward, backward)
}

func TestExceptionalResultsAreCached(t *testing.T) {
	c := pathcache.New(8)
	calls := int32(0)
	compute := func(ctx context.Context, key pathcache.Key) (bfs.Result, error) {
		atomic.AddInt32(&calls, 1)
		return bfs.Result{}, &wikierr.NoPathError{Source: key.Source, Target: key.Target}
	}

	key := pathcache.Key{Source: 1, Target: 2}
	_, err1 := c.Get(context.Background(), key, compute)
	_, err2 := c.Get(context.Background(), key, compute)

	require.Error(t, err1)
	require.Error(t, err2)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestTimeoutIsNotCached(t *testing.T) {
	c := pathcache.New(8)
	calls := int32(0)
	compute := func(ctx context.Context, key pathcache.Key) (bfs.Result, error) {
		atomic.AddInt32(&calls, 1)
		return bfs.Result{}, &wikierr.TimeoutError{Source: key.Source, Target: key.Target}
	}

	key := pathcache.Key{Source: 1, Target: 2}
	_, err1 := c.Get(context.Background(), key, compute)
	_, err2 := c.Get(context.Background(), key, compute)

	require.Error(t, err1)
	require.Error(t, err2)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestLRUEvictsLeastRecentlyAccessed(t *testing.T) {
	c := pathcache.New(2)
	compute := func(ctx context.Context, key pathcache.Key) (bfs.Result, error) {
		return bfs.Result{Degrees: int(key.Source), Count: 1}, nil
	}

	k1 := pathcache.Key{Source: 1, Target: 1}
	k2 := pathcache.Key{Source: 2, Target: 2}
	k3 := pathcache.Key{Source: 3, Target: 3}

	_, err := c.Get(context.Background(), k1, compute)
	require.NoError(t, err)
	_, err = c.Get(context.Background(), k2, compute)
	require.NoError(t, err)

	// touch k1 so it becomes more recently used than k2
	_, err = c.Get(context.Background(), k1, compute)
	require.NoError(t, err)

	// inserting k3 should evict k2, the least recently used entry
	_, err = c.Get(context.Background(), k3, compute)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	calls := int32(0)
	countingCompute := func(ctx context.Context, key pathcache.Key) (bfs.Result, error) {
		atomic.AddInt32(&calls, 1)
		return bfs.Result{Degrees: int(key.Source), Count: 1}, nil
	}
	_, err = c.Get(context.Background(), k2, countingCompute)
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls)) // k2 was evicted, recomputed
}

func TestAtMostOneInflight(t *testing.T) {
	c := pathcache.New(8)
	const waiters = 16
	release := make(chan struct{})

	compute := func(ctx context.Context, key pathcache.Key) (bfs.Result, error) {
		<-release
		return bfs.Result{Paths: [][]wikiid.PageID{{1, 2}}, Degrees: 1, Count: 1}, nil
	}

	key := pathcache.Key{Source: 1, Target: 2}
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get(context.Background(), key, compute)
		}()
	}

	time.Sleep(20 * time.Millisecond) // let every goroutine reach the Do call
	close(release)
	wg.Wait()

	require.EqualValues(t, 1, c.ComputeCount)
}
