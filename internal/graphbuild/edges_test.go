package graphbuild

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hut8/wikiwalk/internal/extsort"
	"github.com/hut8/wikiwalk/internal/wikiid"
)

func TestResolveVertexCanonicalPassesThrough(t *testing.T) {
	loader := &VertexLoader{IsRedirect: map[wikiid.PageID]bool{}}
	redirects := &RedirectResolver{Resolved: map[wikiid.PageID]wikiid.PageID{}}

	id, ok := resolveVertex(5, loader, redirects)
	require.True(t, ok)
	require.Equal(t, wikiid.PageID(5), id)
}

func TestResolveVertexRedirectFollowsResolved(t *testing.T) {
	loader := &VertexLoader{IsRedirect: map[wikiid.PageID]bool{10: true}}
	redirects := &RedirectResolver{Resolved: map[wikiid.PageID]wikiid.PageID{10: 20}}

	id, ok := resolveVertex(10, loader, redirects)
	require.True(t, ok)
	require.Equal(t, wikiid.PageID(20), id)
}

func TestResolveVertexUnresolvedRedirectFails(t *testing.T) {
	loader := &VertexLoader{IsRedirect: map[wikiid.PageID]bool{10: true}}
	redirects := &RedirectResolver{Resolved: map[wikiid.PageID]wikiid.PageID{}}

	_, ok := resolveVertex(10, loader, redirects)
	require.False(t, ok)
}

// TestResolveEdgesAttributesThroughRedirect is the spec's worked example:
// a redirect 10 -> 20 plus an edge 5 -> 10 in pagelinks ends up stored as
// 5 -> 20.
func TestResolveEdgesAttributesThroughRedirect(t *testing.T) {
	sidecar := newTestSidecar(t)
	pagePath := writeGzipDump(t, "CREATE TABLE `page` (`page_id` int,`page_namespace` int,`page_title` varbinary(255),`page_is_redirect` tinyint);\n"+
		"INSERT INTO `page` VALUES (5,0,'Source',0),(10,0,'Alias',1),(20,0,'Target',0);\n")
	loader, err := LoadVertices(sidecar, pagePath)
	require.NoError(t, err)

	redirectPath := writeGzipDump(t, "CREATE TABLE `redirect` (`rd_from` int,`rd_namespace` int,`rd_title` varbinary(255));\n"+
		"INSERT INTO `redirect` VALUES (10,0,'Target');\n")
	redirects, err := ResolveRedirects(sidecar, redirectPath, loader)
	require.NoError(t, err)

	pagelinksPath := writeGzipDump(t, "CREATE TABLE `pagelinks` (`pl_from` int,`pl_from_namespace` int,`pl_namespace` int,`pl_title` varbinary(255));\n"+
		"INSERT INTO `pagelinks` VALUES (5,0,0,'Alias');\n")

	sortedPath, resolver, err := ResolveEdges(context.Background(), pagelinksPath, loader, redirects)
	require.NoError(t, err)
	defer os.Remove(sortedPath)

	require.EqualValues(t, 1, resolver.Edges)
	require.Zero(t, resolver.UnresolvedCount)
	require.Zero(t, resolver.SelfLoopCount)

	out, errc := extsort.ReadFile(sortedPath)
	var got []extsort.Pair
	for p := range out {
		got = append(got, p)
	}
	require.NoError(t, <-errc)
	require.Equal(t, []extsort.Pair{{Src: 5, Dst: 20}}, got)
}

func TestResolveEdgesDropsSelfLoops(t *testing.T) {
	sidecar := newTestSidecar(t)
	pagePath := writeGzipDump(t, "CREATE TABLE `page` (`page_id` int,`page_namespace` int,`page_title` varbinary(255),`page_is_redirect` tinyint);\n"+
		"INSERT INTO `page` VALUES (1,0,'Self',0);\n")
	loader, err := LoadVertices(sidecar, pagePath)
	require.NoError(t, err)

	redirects := &RedirectResolver{Resolved: map[wikiid.PageID]wikiid.PageID{}}
	pagelinksPath := writeGzipDump(t, "CREATE TABLE `pagelinks` (`pl_from` int,`pl_from_namespace` int,`pl_namespace` int,`pl_title` varbinary(255));\n"+
		"INSERT INTO `pagelinks` VALUES (1,0,0,'Self');\n")

	sortedPath, resolver, err := ResolveEdges(context.Background(), pagelinksPath, loader, redirects)
	require.NoError(t, err)
	defer os.Remove(sortedPath)

	require.EqualValues(t, 0, resolver.Edges)
	require.EqualValues(t, 1, resolver.SelfLoopCount)
}

func TestResolveEdgesDropsUnresolvedLinks(t *testing.T) {
	sidecar := newTestSidecar(t)
	pagePath := writeGzipDump(t, "CREATE TABLE `page` (`page_id` int,`page_namespace` int,`page_title` varbinary(255),`page_is_redirect` tinyint);\n"+
		"INSERT INTO `page` VALUES (1,0,'Source',0);\n")
	loader, err := LoadVertices(sidecar, pagePath)
	require.NoError(t, err)

	redirects := &RedirectResolver{Resolved: map[wikiid.PageID]wikiid.PageID{}}
	pagelinksPath := writeGzipDump(t, "CREATE TABLE `pagelinks` (`pl_from` int,`pl_from_namespace` int,`pl_namespace` int,`pl_title` varbinary(255));\n"+
		"INSERT INTO `pagelinks` VALUES (1,0,0,'Does_Not_Exist');\n")

	sortedPath, resolver, err := ResolveEdges(context.Background(), pagelinksPath, loader, redirects)
	require.NoError(t, err)
	defer os.Remove(sortedPath)

	require.EqualValues(t, 0, resolver.Edges)
	require.EqualValues(t, 1, resolver.UnresolvedCount)
}
