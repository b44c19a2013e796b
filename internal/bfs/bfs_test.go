package bfs_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hut8/wikiwalk/internal/adjacency"
	"github.com/hut8/wikiwalk/internal/bfs"
	"github.com/hut8/wikiwalk/internal/extsort"
	"github.com/hut8/wikiwalk/internal/graphdb"
	"github.com/hut8/wikiwalk/internal/wikierr"
	"github.com/hut8/wikiwalk/internal/wikiid"
)

// buildGraph runs a synthetic edge set through the real extsort and
// adjacency pipeline so BFS tests exercise the on-disk format end to end,
// the way spec §8 property 11 wants.
func buildGraph(t *testing.T, edges [][2]wikiid.PageID, maxID wikiid.PageID) *graphdb.GraphDB {
	t.Helper()
	ctx := context.Background()

	pairs := make(chan extsort.Pair, len(edges))
	for _, e := range edges {
		pairs <- extsort.Pair{Src: e[0], Dst: e[1]}
	}
	close(pairs)

	outPath, err := extsort.SortBySrcDst(ctx, pairs)
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(outPath) })

	inPath, err := extsort.Resort(ctx, outPath, extsort.ByDstSrc)
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(inPath) })

	dir := t.TempDir()
	alPath := dir + "/vertex_al"
	ixPath := dir + "/vertex_al_ix"
	require.NoError(t, adjacency.Build(outPath, inPath, maxID, alPath, ixPath))

	g, err := graphdb.Open(alPath, ixPath)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g
}

func TestBFSDirectEdgeWins(t *testing.T) {
	g := buildGraph(t, [][2]wikiid.PageID{{1, 2}, {2, 3}, {1, 3}}, 3)
	result, err := bfs.Search(context.Background(), g, 1, 3, 0)
	require.NoError(t, err)
	require.Equal(t, 1, result.Degrees)
	require.Equal(t, 1, result.Count)
	require.Equal(t, [][]wikiid.PageID{{1, 3}}, result.Paths)
}

func TestBFSDiamondBothPaths(t *testing.T) {
	g := buildGraph(t, [][2]wikiid.PageID{{1, 2}, {1, 3}, {2, 4}, {3, 4}}, 4)
	result, err := bfs.Search(context.Background(), g, 1, 4, 0)
	require.NoError(t, err)
	require.Equal(t, 2, result.Degrees)
	require.Equal(t, 2, result.Count)
	require.ElementsMatch(t, [][]wikiid.PageID{{1, 2, 4}, {1, 3, 4}}, result.Paths)
}

func TestBFSNoPath(t *testing.T) {
	g := buildGraph(t, [][2]wikiid.PageID{{1, 2}, {3, 2}}, 3)
	_, err := bfs.Search(context.Background(), g, 1, 3, 0)
	var noPath *wikierr.NoPathError
	require.ErrorAs(t, err, &noPath)
}

func TestBFSSourceEqualsTarget(t *testing.T) {
	g := buildGraph(t, [][2]wikiid.PageID{{1, 2}}, 2)
	result, err := bfs.Search(context.Background(), g, 1, 1, 0)
	require.NoError(t, err)
	require.Equal(t, bfs.Result{Paths: [][]wikiid.PageID{{1}}, Degrees: 0, Count: 1}, result)
}

func TestBFSNoSuchVertex(t *testing.T) {
	g := buildGraph(t, [][2]wikiid.PageID{{1, 2}}, 2)
	_, err := bfs.Search(context.Background(), g, 1, 99, 0)
	var notFound *wikierr.NoSuchVertexError
	require.ErrorAs(t, err, &notFound)
}

func TestBFSIsolatedVertexHasNoRecord(t *testing.T) {
	// vertex 1 is never an edge endpoint, so its index entry stays 0.
	g := buildGraph(t, [][2]wikiid.PageID{{2, 3}}, 3)
	require.False(t, g.Exists(1))
	require.True(t, g.Exists(2))
	require.True(t, g.Exists(3))
}
