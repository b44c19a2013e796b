package graphbuild

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hut8/wikiwalk/internal/wikiid"
)

func TestResolveChainFollowsMultiHopChain(t *testing.T) {
	// 30 -> 31 -> 32 -> 33 (canonical)
	loader := &VertexLoader{IsRedirect: map[wikiid.PageID]bool{30: true, 31: true, 32: true}}
	immediate := map[wikiid.PageID]wikiid.PageID{30: 31, 31: 32, 32: 33}
	resolver := &RedirectResolver{Resolved: make(map[wikiid.PageID]wikiid.PageID), failed: make(map[wikiid.PageID]bool)}

	resolver.resolveChain(30, immediate, loader)

	require.Equal(t, wikiid.PageID(33), resolver.Resolved[30])
	require.Equal(t, wikiid.PageID(33), resolver.Resolved[31])
	require.Equal(t, wikiid.PageID(33), resolver.Resolved[32])
	require.NotContains(t, resolver.Resolved, wikiid.PageID(33))
	require.Zero(t, resolver.CycleCount)
	require.Zero(t, resolver.TooDeepCount)
}

func TestResolveChainDetectsCycle(t *testing.T) {
	// 1 -> 2 -> 1
	loader := &VertexLoader{IsRedirect: map[wikiid.PageID]bool{1: true, 2: true}}
	immediate := map[wikiid.PageID]wikiid.PageID{1: 2, 2: 1}
	resolver := &RedirectResolver{Resolved: make(map[wikiid.PageID]wikiid.PageID), failed: make(map[wikiid.PageID]bool)}

	resolver.resolveChain(1, immediate, loader)

	require.Equal(t, 1, resolver.CycleCount)
	require.Empty(t, resolver.Resolved)
	require.True(t, resolver.failed[1])
	require.True(t, resolver.failed[2])
}

func TestResolveChainExactlyMaxDepthSucceeds(t *testing.T) {
	// 0 -> 1 -> ... -> 8 (canonical): exactly MaxRedirectDepth hops, the
	// spec's own stated maximum, must resolve rather than be dropped.
	immediate := make(map[wikiid.PageID]wikiid.PageID, MaxRedirectDepth)
	isRedirect := make(map[wikiid.PageID]bool, MaxRedirectDepth)
	for i := wikiid.PageID(0); i < MaxRedirectDepth; i++ {
		immediate[i] = i + 1
		isRedirect[i] = true
	}
	loader := &VertexLoader{IsRedirect: isRedirect}
	resolver := &RedirectResolver{Resolved: make(map[wikiid.PageID]wikiid.PageID), failed: make(map[wikiid.PageID]bool)}

	resolver.resolveChain(0, immediate, loader)

	require.Zero(t, resolver.TooDeepCount)
	require.Equal(t, wikiid.PageID(MaxRedirectDepth), resolver.Resolved[0])
	require.Equal(t, wikiid.PageID(MaxRedirectDepth), resolver.Resolved[MaxRedirectDepth-1])
}

func TestResolveChainTooDeep(t *testing.T) {
	immediate := make(map[wikiid.PageID]wikiid.PageID, MaxRedirectDepth+2)
	isRedirect := make(map[wikiid.PageID]bool, MaxRedirectDepth+2)
	for i := wikiid.PageID(0); i < MaxRedirectDepth+2; i++ {
		immediate[i] = i + 1
		isRedirect[i] = true
	}
	loader := &VertexLoader{IsRedirect: isRedirect}
	resolver := &RedirectResolver{Resolved: make(map[wikiid.PageID]wikiid.PageID), failed: make(map[wikiid.PageID]bool)}

	resolver.resolveChain(0, immediate, loader)

	require.Equal(t, 1, resolver.TooDeepCount)
	require.Empty(t, resolver.Resolved)
}

func TestResolveChainDanglingRedirectDropped(t *testing.T) {
	// 1 is a redirect whose own title never resolved to anything, so it
	// never appears as a key in immediate.
	loader := &VertexLoader{IsRedirect: map[wikiid.PageID]bool{1: true}}
	immediate := map[wikiid.PageID]wikiid.PageID{}
	resolver := &RedirectResolver{Resolved: make(map[wikiid.PageID]wikiid.PageID), failed: make(map[wikiid.PageID]bool)}

	resolver.resolveChain(1, immediate, loader)

	require.Empty(t, resolver.Resolved)
	require.True(t, resolver.failed[1])
}

func TestResolveChainTerminatesAtCanonicalVertex(t *testing.T) {
	// 1 -> 2, and 2 is canonical (not a redirect at all)
	loader := &VertexLoader{IsRedirect: map[wikiid.PageID]bool{1: true}}
	immediate := map[wikiid.PageID]wikiid.PageID{1: 2}
	resolver := &RedirectResolver{Resolved: make(map[wikiid.PageID]wikiid.PageID), failed: make(map[wikiid.PageID]bool)}

	resolver.resolveChain(1, immediate, loader)

	require.Equal(t, wikiid.PageID(2), resolver.Resolved[1])
}

func TestResolveRedirectsEndToEnd(t *testing.T) {
	sidecar := newTestSidecar(t)
	pagePath := writeGzipDump(t, "CREATE TABLE `page` (`page_id` int,`page_namespace` int,`page_title` varbinary(255),`page_is_redirect` tinyint);\n"+
		"INSERT INTO `page` VALUES (1,0,'Canonical',0),(2,0,'Alias',1);\n")
	loader, err := LoadVertices(sidecar, pagePath)
	require.NoError(t, err)

	redirectPath := writeGzipDump(t, "CREATE TABLE `redirect` (`rd_from` int,`rd_namespace` int,`rd_title` varbinary(255));\n"+
		"INSERT INTO `redirect` VALUES (2,0,'Canonical');\n")

	resolver, err := ResolveRedirects(sidecar, redirectPath, loader)
	require.NoError(t, err)
	require.Equal(t, wikiid.PageID(1), resolver.Resolved[2])

	to, found, err := sidecar.RedirectTarget(2)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, wikiid.PageID(1), to)
}
