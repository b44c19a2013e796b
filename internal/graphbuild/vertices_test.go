package graphbuild

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hut8/wikiwalk/internal/wikierr"
)

func writeGzipDump(t *testing.T, sql string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "dump-*.sql.gz")
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(sql))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return f.Name()
}

func newTestSidecar(t *testing.T) *Sidecar {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.db")
	s, err := CreateSidecar(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadVerticesAdmitsOnlyNamespaceZero(t *testing.T) {
	sidecar := newTestSidecar(t)
	pagePath := writeGzipDump(t, "CREATE TABLE `page` (`page_id` int,`page_namespace` int,`page_title` varbinary(255),`page_is_redirect` tinyint);\n"+
		"INSERT INTO `page` VALUES (1,0,'Main_Page',0),(2,1,'Talk_Page',0),(3,0,'Old_Name',1);\n")

	loader, err := LoadVertices(sidecar, pagePath)
	require.NoError(t, err)

	require.EqualValues(t, 1, loader.Vertices) // only page 1 is canonical
	require.EqualValues(t, 3, loader.MaxID)
	require.True(t, loader.IsRedirect[3])
	require.False(t, loader.IsRedirect[1])

	id, isRedirect, found, err := sidecar.LookupTitle("Old_Name")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, isRedirect)
	require.EqualValues(t, 3, id)

	// namespace-1 page never reached the sidecar
	_, _, found, err = sidecar.LookupTitle("Talk_Page")
	require.NoError(t, err)
	require.False(t, found)
}

func TestLoadVerticesRejectsDuplicateCanonicalTitle(t *testing.T) {
	sidecar := newTestSidecar(t)
	pagePath := writeGzipDump(t, "CREATE TABLE `page` (`page_id` int,`page_namespace` int,`page_title` varbinary(255),`page_is_redirect` tinyint);\n"+
		"INSERT INTO `page` VALUES (1,0,'Dup_Title',0),(2,0,'Dup_Title',0);\n")

	_, err := LoadVertices(sidecar, pagePath)
	var dupErr *wikierr.DuplicateTitleError
	require.ErrorAs(t, err, &dupErr)
}

func TestLoadVerticesKeepsNativeUnderscoreForm(t *testing.T) {
	sidecar := newTestSidecar(t)
	pagePath := writeGzipDump(t, "CREATE TABLE `page` (`page_id` int,`page_namespace` int,`page_title` varbinary(255),`page_is_redirect` tinyint);\n"+
		"INSERT INTO `page` VALUES (1,0,'Multi_Word_Title',0);\n")

	loader, err := LoadVertices(sidecar, pagePath)
	require.NoError(t, err)
	require.EqualValues(t, 1, loader.Titler["Multi_Word_Title"])

	id, _, found, err := sidecar.LookupTitle("Multi_Word_Title")
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 1, id)
}
