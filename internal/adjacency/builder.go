package adjacency

import (
	"bufio"
	"encoding/binary"
	"os"

	"github.com/hut8/wikiwalk/internal/extsort"
	"github.com/hut8/wikiwalk/internal/wikiid"
)

// Build merge-joins outgoingPath (produced by extsort.SortBySrcDst, sorted
// by (src,dst)) and incomingPath (produced by extsort.Resort with
// ByDstSrc, sorted by (dst,src)) into the vertex_al and vertex_al_ix files
// at alPath and ixPath, covering vertex IDs 0..maxID inclusive (spec
// §4.6/§6). Both input streams are consumed in lock-step, one group per
// vertex ID, so no group is ever buffered in full beyond its own size.
func Build(outgoingPath, incomingPath string, maxID wikiid.PageID, alPath, ixPath string) error {
	outCh, outErrc := extsort.ReadFile(outgoingPath)
	inCh, inErrc := extsort.ReadFile(incomingPath)

	outPeek := newPairPeeker(outCh)
	inPeek := newPairPeeker(inCh)

	alFile, err := os.Create(alPath)
	if err != nil {
		return err
	}
	defer alFile.Close()
	al := bufio.NewWriterSize(alFile, 1<<20)

	ixFile, err := os.Create(ixPath)
	if err != nil {
		return err
	}
	defer ixFile.Close()
	ix := bufio.NewWriterSize(ixFile, 1<<20)

	var offset uint64
	var u32 [4]byte
	var u64 [8]byte

	writeU32 := func(v wikiid.PageID) error {
		binary.LittleEndian.PutUint32(u32[:], v)
		_, err := al.Write(u32[:])
		return err
	}

	// An index entry of 0 means "no record", so vertex_al opens with one
	// 4-byte 0 pad and no record ever starts at offset 0.
	if err := writeU32(Sentinel); err != nil {
		return err
	}
	offset = 4

	for id := wikiid.PageID(0); ; id++ {
		outs := outPeek.takeOut(id)
		ins := inPeek.takeIn(id)

		if len(outs) == 0 && len(ins) == 0 {
			binary.LittleEndian.PutUint64(u64[:], 0)
			if _, err := ix.Write(u64[:]); err != nil {
				return err
			}
		} else {
			binary.LittleEndian.PutUint64(u64[:], offset)
			if _, err := ix.Write(u64[:]); err != nil {
				return err
			}

			recordLen := uint64(0)
			for _, v := range outs {
				if err := writeU32(v); err != nil {
					return err
				}
				recordLen += 4
			}
			if err := writeU32(Sentinel); err != nil {
				return err
			}
			recordLen += 4
			for _, v := range ins {
				if err := writeU32(v); err != nil {
					return err
				}
				recordLen += 4
			}
			if err := writeU32(Sentinel); err != nil {
				return err
			}
			recordLen += 4

			offset += recordLen
		}

		if id == maxID {
			break
		}
	}

	if err := al.Flush(); err != nil {
		return err
	}
	if err := ix.Flush(); err != nil {
		return err
	}
	if err := <-outErrc; err != nil {
		return err
	}
	if err := <-inErrc; err != nil {
		return err
	}
	return nil
}

// pairPeeker wraps an extsort.Pair channel with one-element lookahead so a
// caller can drain a group sharing a key without overrunning into the next.
type pairPeeker struct {
	ch   <-chan extsort.Pair
	next extsort.Pair
	has  bool
}

func newPairPeeker(ch <-chan extsort.Pair) *pairPeeker {
	p := &pairPeeker{ch: ch}
	p.advance()
	return p
}

func (p *pairPeeker) advance() {
	v, ok := <-p.ch
	p.next, p.has = v, ok
}

// takeOut drains the outgoing-stream group with Src == id, in ascending
// Dst order (guaranteed by the stream's (src,dst) sort order).
func (p *pairPeeker) takeOut(id wikiid.PageID) []wikiid.PageID {
	var out []wikiid.PageID
	for p.has && p.next.Src == id {
		out = append(out, p.next.Dst)
		p.advance()
	}
	return out
}

// takeIn drains the incoming-stream group with Dst == id, in ascending Src
// order (guaranteed by the stream's (dst,src) sort order).
func (p *pairPeeker) takeIn(id wikiid.PageID) []wikiid.PageID {
	var out []wikiid.PageID
	for p.has && p.next.Dst == id {
		out = append(out, p.next.Src)
		p.advance()
	}
	return out
}
