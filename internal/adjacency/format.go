// Package adjacency implements the Adjacency Builder (spec §4.6): it
// merge-joins the two externally-sorted edge streams produced by
// internal/extsort into the vertex_al / vertex_al_ix binary pair (spec
// §6), grounded on brawer/wikidata-qrank's cmd/qrank-builder/linemerger.go
// k-way merge pattern, here specialized to a 2-way join keyed by vertex ID
// rather than a heap over N inputs.
package adjacency

import "encoding/binary"

// IndexEntrySize is the width of one vertex_al_ix entry.
const IndexEntrySize = 8

// Sentinel terminates each neighbor run within a vertex_al record.
const Sentinel uint32 = 0

// PutIndexEntry writes a little-endian u64 byte offset.
func PutIndexEntry(buf []byte, offset uint64) {
	binary.LittleEndian.PutUint64(buf, offset)
}

// GetIndexEntry reads a little-endian u64 byte offset.
func GetIndexEntry(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}
