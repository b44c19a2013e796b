package adjacency_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hut8/wikiwalk/internal/adjacency"
	"github.com/hut8/wikiwalk/internal/extsort"
	"github.com/hut8/wikiwalk/internal/graphdb"
	"github.com/hut8/wikiwalk/internal/wikiid"
)

// TestRoundTrip is spec §8 property 11: encode a synthetic edge set,
// build the adjacency files, read every (u,v) pair back out through the
// Graph DB, and check the multiset matches exactly.
func TestRoundTrip(t *testing.T) {
	edges := [][2]wikiid.PageID{
		{1, 2}, {1, 3}, {2, 4}, {3, 4}, {4, 1}, {5, 2},
	}
	var maxID wikiid.PageID
	for _, e := range edges {
		if e[0] > maxID {
			maxID = e[0]
		}
		if e[1] > maxID {
			maxID = e[1]
		}
	}

	ctx := context.Background()
	ch := make(chan extsort.Pair, len(edges))
	for _, e := range edges {
		ch <- extsort.Pair{Src: e[0], Dst: e[1]}
	}
	close(ch)

	outPath, err := extsort.SortBySrcDst(ctx, ch)
	require.NoError(t, err)
	defer os.Remove(outPath)

	inPath, err := extsort.Resort(ctx, outPath, extsort.ByDstSrc)
	require.NoError(t, err)
	defer os.Remove(inPath)

	dir := t.TempDir()
	alPath := dir + "/vertex_al"
	ixPath := dir + "/vertex_al_ix"
	require.NoError(t, adjacency.Build(outPath, inPath, maxID, alPath, ixPath))

	g, err := graphdb.Open(alPath, ixPath)
	require.NoError(t, err)
	defer g.Close()

	var got [][2]wikiid.PageID
	for id := wikiid.PageID(0); id <= maxID; id++ {
		for _, v := range g.NeighborsOut(id) {
			got = append(got, [2]wikiid.PageID{id, v})
		}
	}
	require.ElementsMatch(t, edges, got)

	// invariant: every outgoing edge (u,v) also appears in v's incoming list.
	for _, e := range edges {
		require.Contains(t, g.NeighborsIn(e[1]), e[0])
	}
}

func TestIsolatedVertexGetsZeroIndexEntry(t *testing.T) {
	ctx := context.Background()
	ch := make(chan extsort.Pair, 1)
	ch <- extsort.Pair{Src: 2, Dst: 3}
	close(ch)

	outPath, err := extsort.SortBySrcDst(ctx, ch)
	require.NoError(t, err)
	defer os.Remove(outPath)
	inPath, err := extsort.Resort(ctx, outPath, extsort.ByDstSrc)
	require.NoError(t, err)
	defer os.Remove(inPath)

	dir := t.TempDir()
	alPath := dir + "/vertex_al"
	ixPath := dir + "/vertex_al_ix"
	require.NoError(t, adjacency.Build(outPath, inPath, 3, alPath, ixPath))

	g, err := graphdb.Open(alPath, ixPath)
	require.NoError(t, err)
	defer g.Close()

	require.False(t, g.Exists(1))
	require.Empty(t, g.NeighborsOut(1))
	require.Empty(t, g.NeighborsIn(1))
}
