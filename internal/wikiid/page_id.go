// Package wikiid defines the vertex identifier type shared across the
// build pipeline and query engine, plus its on-disk byte encoding.
package wikiid

import (
	"encoding/binary"
	"errors"
	"strconv"
)

// PageID is a Wikipedia page_id. Value 0 is reserved as the adjacency-list
// null sentinel and must never be assigned to a real page.
type PageID = uint32

// Null is the reserved sentinel value terminating adjacency records.
const Null PageID = 0

// ParsePageID converts a decimal string to a PageID. Returns 0, matching
// the Null sentinel, if the string does not parse as a valid 32-bit page
// ID. Wikipedia page IDs are documented as 10-digit unsigned integers.
func ParsePageID(s string) PageID {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return Null
	}
	return PageID(id)
}

// PutPageID writes a PageID to buf in little-endian order. buf must be at
// least 4 bytes.
func PutPageID(buf []byte, id PageID) {
	binary.LittleEndian.PutUint32(buf, id)
}

// GetPageID reads a little-endian PageID from the front of buf.
func GetPageID(buf []byte) (PageID, error) {
	if len(buf) < 4 {
		return 0, errors.New("wikiid: short buffer for page id")
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// EncodeSorted converts a sorted, duplicate-free slice of PageIDs into a
// concatenated little-endian byte run, skipping accidental duplicates
// defensively.
func EncodeSorted(ids []PageID) []byte {
	out := make([]byte, 0, len(ids)*4)
	var last PageID
	var first = true
	for _, id := range ids {
		if !first && id == last {
			continue
		}
		first = false
		last = id
		var tmp [4]byte
		PutPageID(tmp[:], id)
		out = append(out, tmp[:]...)
	}
	return out
}

// DecodeAll splits a concatenated little-endian byte run back into PageIDs.
func DecodeAll(b []byte) ([]PageID, error) {
	if len(b)%4 != 0 {
		return nil, errors.New("wikiid: byte run length not a multiple of 4")
	}
	out := make([]PageID, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4 : i*4+4])
	}
	return out, nil
}
