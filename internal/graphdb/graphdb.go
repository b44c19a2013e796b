// Package graphdb implements the Graph DB (spec §4.7): a memory-mapped,
// read-only accessor over the vertex_al / vertex_al_ix files produced by
// internal/adjacency. Grounded on the mmap usage pattern found in the
// pack's manifests (github.com/edsrzf/mmap-go) — the teacher repo reads
// its adjacency data out of SQLite BLOBs instead, so this accessor is new
// code built to the spec's binary format, not a teacher translation.
package graphdb

import (
	"encoding/binary"
	"errors"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/hut8/wikiwalk/internal/adjacency"
	"github.com/hut8/wikiwalk/internal/wikiid"
)

// GraphDB holds the memory-mapped adjacency files for one build generation.
// It is safe for concurrent use by many goroutines: after construction it
// holds no mutable state, only the two read-only mmap handles.
type GraphDB struct {
	al      mmap.MMap
	ix      mmap.MMap
	alFile  *os.File
	ixFile  *os.File
	indexLen wikiid.PageID // number of u64 entries in ix
}

// Open memory-maps the vertex_al and vertex_al_ix files at the given
// paths. The caller must call Close when the generation is retired.
func Open(alPath, ixPath string) (*GraphDB, error) {
	alFile, err := os.Open(alPath)
	if err != nil {
		return nil, err
	}
	al, err := mmap.Map(alFile, mmap.RDONLY, 0)
	if err != nil {
		alFile.Close()
		return nil, err
	}

	ixFile, err := os.Open(ixPath)
	if err != nil {
		al.Unmap()
		alFile.Close()
		return nil, err
	}
	ix, err := mmap.Map(ixFile, mmap.RDONLY, 0)
	if err != nil {
		al.Unmap()
		alFile.Close()
		ixFile.Close()
		return nil, err
	}

	if len(ix)%adjacency.IndexEntrySize != 0 {
		al.Unmap()
		ix.Unmap()
		alFile.Close()
		ixFile.Close()
		return nil, errors.New("graphdb: vertex_al_ix length is not a multiple of 8")
	}

	return &GraphDB{
		al:       al,
		ix:       ix,
		alFile:   alFile,
		ixFile:   ixFile,
		indexLen: wikiid.PageID(len(ix) / adjacency.IndexEntrySize),
	}, nil
}

// Close unmaps both files and closes their handles.
func (g *GraphDB) Close() error {
	var first error
	if err := g.al.Unmap(); err != nil && first == nil {
		first = err
	}
	if err := g.ix.Unmap(); err != nil && first == nil {
		first = err
	}
	if err := g.alFile.Close(); err != nil && first == nil {
		first = err
	}
	if err := g.ixFile.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// Exists reports whether id has an index entry: id must be within range
// and its offset must be non-zero (spec §4.7).
func (g *GraphDB) Exists(id wikiid.PageID) bool {
	if id >= g.indexLen {
		return false
	}
	return g.offsetAt(id) != 0
}

// NeighborsOut returns id's outgoing neighbor list: the record prefix up
// to the first 0 sentinel, ascending by construction.
func (g *GraphDB) NeighborsOut(id wikiid.PageID) []wikiid.PageID {
	offset := g.recordOffset(id)
	if offset < 0 {
		return nil
	}
	return g.readRun(offset)
}

// NeighborsIn returns id's incoming neighbor list: the record's second
// run, found by skipping past the outgoing run and its sentinel.
func (g *GraphDB) NeighborsIn(id wikiid.PageID) []wikiid.PageID {
	offset := g.recordOffset(id)
	if offset < 0 {
		return nil
	}
	out, next := g.readRunAndNext(offset)
	_ = out
	return g.readRun(next)
}

// recordOffset returns the byte offset of id's record in vertex_al, or -1
// if id has no record.
func (g *GraphDB) recordOffset(id wikiid.PageID) int {
	if id >= g.indexLen {
		return -1
	}
	offset := g.offsetAt(id)
	if offset == 0 {
		return -1
	}
	return int(offset)
}

func (g *GraphDB) offsetAt(id wikiid.PageID) uint64 {
	start := int(id) * adjacency.IndexEntrySize
	return adjacency.GetIndexEntry(g.ix[start : start+adjacency.IndexEntrySize])
}

// readRun decodes one little-endian u32 run starting at byteOffset, up to
// (not including) its terminating 0 sentinel.
func (g *GraphDB) readRun(byteOffset int) []wikiid.PageID {
	run, _ := g.readRunAndNext(byteOffset)
	return run
}

// readRunAndNext decodes one run and also returns the byte offset
// immediately after its sentinel, for the caller to read the next run.
func (g *GraphDB) readRunAndNext(byteOffset int) ([]wikiid.PageID, int) {
	var run []wikiid.PageID
	offset := byteOffset
	for {
		v := binary.LittleEndian.Uint32(g.al[offset : offset+4])
		offset += 4
		if v == adjacency.Sentinel {
			break
		}
		run = append(run, wikiid.PageID(v))
	}
	return run, offset
}

// MaxID returns the largest vertex ID the index covers.
func (g *GraphDB) MaxID() wikiid.PageID {
	if g.indexLen == 0 {
		return 0
	}
	return g.indexLen - 1
}
