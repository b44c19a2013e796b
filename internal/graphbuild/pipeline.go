// pipeline.go orchestrates the full build (spec §5): dump fetch, vertex
// load, redirect resolution, edge resolution, adjacency build, and
// generation directory lifecycle. Grounded on the teacher's build.go
// buildDatabase, restructured around the spec's sidecar DB + binary
// adjacency files instead of the teacher's all-in-SQLite layout. The
// stages below run strictly in sequence, since each depends on the
// previous one's output; ResolveRedirects and ResolveEdges each
// parallelize their own row-by-row resolution internally with
// golang.org/x/sync/errgroup over a worker pool.
package graphbuild

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/hut8/wikiwalk/internal/adjacency"
	"github.com/hut8/wikiwalk/internal/extsort"
	"github.com/hut8/wikiwalk/internal/progress"
	"github.com/hut8/wikiwalk/internal/wikidump"
	"github.com/hut8/wikiwalk/internal/wikilang"
)

// Options configures one build run.
type Options struct {
	DataRoot string
	DumpDir  string
	Mirror   string
	Wiki     wikilang.Wiki
	DumpDate string // if empty, the latest complete dump is located
	Quiet    bool
	Logger   *log.Logger
}

// Result summarizes a completed build for logging and build_info.
type Result struct {
	DumpDate    string
	VertexCount int64
	EdgeCount   int64
	GenDir      string
	Elapsed     time.Duration
}

// Run executes the full pipeline and installs the result as the new
// `current` generation on success.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	start := time.Now()

	reporter := progress.NewReporter(6, opts.Quiet)

	locator := wikidump.NewLocator(opts.Mirror)
	var files wikidump.Files
	var err error
	reporter.Stage("locating dump")
	if opts.DumpDate != "" {
		files, err = locator.FilesForDate(opts.Wiki, opts.DumpDate)
	} else {
		files, err = locator.FindLatest(opts.Wiki)
	}
	if err != nil {
		return nil, err
	}

	reporter.Stage("fetching dump files")
	local, err := wikidump.Fetch(opts.DumpDir, files, nil, !opts.Quiet)
	if err != nil {
		return nil, err
	}

	genDir := filepath.Join(opts.DataRoot, local.Date)
	if err := os.MkdirAll(genDir, 0o755); err != nil {
		return nil, err
	}
	sidecarPath := filepath.Join(genDir, "graph.db")
	os.Remove(sidecarPath)

	sidecar, err := CreateSidecar(sidecarPath)
	if err != nil {
		return nil, err
	}
	defer sidecar.Close()

	reporter.Stage("loading vertices")
	loader, err := LoadVertices(sidecar, local.PagePath)
	if err != nil {
		return nil, err
	}
	logger.Printf("loaded %d canonical vertices (max id %d)", loader.Vertices, loader.MaxID)

	reporter.Stage("resolving redirects")
	redirects, err := ResolveRedirects(sidecar, local.RedirectPath, loader)
	if err != nil {
		return nil, err
	}

	reporter.Stage("resolving edges")
	outgoingPath, edges, err := ResolveEdges(ctx, local.PagelinksPath, loader, redirects)
	if err != nil {
		return nil, err
	}
	defer os.Remove(outgoingPath)

	incomingPath, err := extsort.Resort(ctx, outgoingPath, extsort.ByDstSrc)
	if err != nil {
		return nil, err
	}
	defer os.Remove(incomingPath)

	reporter.Stage("building adjacency files")
	alPath := filepath.Join(genDir, "vertex_al")
	ixPath := filepath.Join(genDir, "vertex_al_ix")
	if err := adjacency.Build(outgoingPath, incomingPath, loader.MaxID, alPath, ixPath); err != nil {
		return nil, err
	}

	if err := sidecar.SetBuildInfo("dump_date", local.Date); err != nil {
		return nil, err
	}
	if err := sidecar.SetBuildInfo("vertex_count", fmt.Sprintf("%d", loader.Vertices)); err != nil {
		return nil, err
	}
	if err := sidecar.SetBuildInfo("edge_count", fmt.Sprintf("%d", edges.Edges)); err != nil {
		return nil, err
	}
	if err := sidecar.SetBuildInfo("build_complete_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return nil, err
	}

	if err := publishCurrent(opts.DataRoot, local.Date); err != nil {
		return nil, err
	}

	result := &Result{
		DumpDate:    local.Date,
		VertexCount: loader.Vertices,
		EdgeCount:   edges.Edges,
		GenDir:      genDir,
		Elapsed:     time.Since(start),
	}
	reporter.Finish(fmt.Sprintf("build complete: %d vertices, %d edges, took %s", result.VertexCount, result.EdgeCount, result.Elapsed))
	return result, nil
}

// publishCurrent atomically repoints <DATA_ROOT>/current at the new
// generation directory, per spec §3's Lifecycle and §6's Environment.
func publishCurrent(dataRoot, date string) error {
	current := filepath.Join(dataRoot, "current")
	tmp := current + ".tmp"
	os.Remove(tmp)
	if err := os.Symlink(date, tmp); err != nil {
		return err
	}
	return os.Rename(tmp, current)
}

// CurrentGeneration resolves <DATA_ROOT>/current to its target directory.
func CurrentGeneration(dataRoot string) (string, error) {
	current := filepath.Join(dataRoot, "current")
	target, err := os.Readlink(current)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(target) {
		return target, nil
	}
	return filepath.Join(dataRoot, target), nil
}
