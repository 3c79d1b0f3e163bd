// Package idxfile decodes a pack index (".idx") file into a cursor-style
// view over an io.ReaderAt: only the 256-entry fanout table is held in
// memory, every id lookup performs a binary search bounded by it, and the
// full id->offset mapping is never materialized.
package idxfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/scm-tools/gitodb/plumbing"
)

// VersionSupported is the only modern idx version this store understands.
const VersionSupported = 2

var magic = [4]byte{0xff, 't', 'O', 'c'}

const (
	fanoutEntries = 256
	fanoutBytes   = fanoutEntries * 4
	v1HeaderBytes = fanoutBytes // the first fanout word is the file's first 4 bytes in v1
	v2HeaderBytes = 8 + fanoutBytes
	v1RecordSize  = 4 + plumbing.Size // offset, then id
	is64BitMask   = uint32(1) << 31
)

// Index is a parsed pack index, v1 or v2. It reads lazily through r for
// everything past the fanout table.
type Index struct {
	r       io.ReaderAt
	version int
	count   uint32
	fanout  [fanoutEntries]uint32

	// v1: records of (4-byte offset, 20-byte id), sorted by id, starting
	// at recordsStart.
	recordsStart int64

	// v2: parallel tables.
	namesStart int64
	off32Start int64
	off64Start int64
}

// Open parses the fanout table (and, for v2, locates the other tables) from
// r. The full id/offset tables are read on demand by FindOffset and
// EntryAt, never materialized in bulk.
func Open(r io.ReaderAt) (*Index, error) {
	var head [8]byte
	if _, err := readFullAt(r, head[:], 0); err != nil {
		return nil, fmt.Errorf("idxfile: %w: reading header: %v", plumbing.ErrMalformedHeader, err)
	}

	if bytes.Equal(head[:4], magic[:]) {
		version := binary.BigEndian.Uint32(head[4:8])
		if version != VersionSupported {
			return nil, fmt.Errorf("idxfile: %w: idx version %d", plumbing.ErrUnsupportedFormat, version)
		}
		return openV2(r)
	}

	return openV1(r, head[:4])
}

func openV1(r io.ReaderAt, firstWord []byte) (*Index, error) {
	idx := &Index{r: r, version: 1}
	idx.fanout[0] = binary.BigEndian.Uint32(firstWord)

	rest := make([]byte, fanoutBytes-4)
	if _, err := readFullAt(r, rest, 4); err != nil {
		return nil, fmt.Errorf("idxfile: %w: reading v1 fanout: %v", plumbing.ErrMalformedHeader, err)
	}
	for i := 1; i < fanoutEntries; i++ {
		idx.fanout[i] = binary.BigEndian.Uint32(rest[(i-1)*4 : i*4])
	}

	idx.count = idx.fanout[fanoutEntries-1]
	idx.recordsStart = v1HeaderBytes
	return idx, nil
}

func openV2(r io.ReaderAt) (*Index, error) {
	idx := &Index{r: r, version: 2}

	buf := make([]byte, fanoutBytes)
	if _, err := readFullAt(r, buf, 8); err != nil {
		return nil, fmt.Errorf("idxfile: %w: reading v2 fanout: %v", plumbing.ErrMalformedHeader, err)
	}
	for i := 0; i < fanoutEntries; i++ {
		idx.fanout[i] = binary.BigEndian.Uint32(buf[i*4 : (i+1)*4])
	}

	idx.count = idx.fanout[fanoutEntries-1]
	idx.namesStart = v2HeaderBytes
	crcStart := idx.namesStart + int64(idx.count)*plumbing.Size
	idx.off32Start = crcStart + int64(idx.count)*4
	idx.off64Start = idx.off32Start + int64(idx.count)*4
	return idx, nil
}

// Count reports how many objects the index names.
func (idx *Index) Count() int { return int(idx.count) }

// FindOffset returns the pack-file byte offset for id, bounded by the
// fanout table to a binary search over at most the run of ids sharing id's
// first byte.
func (idx *Index) FindOffset(id plumbing.ObjectID) (int64, error) {
	first := id[0]
	lo := uint32(0)
	if first > 0 {
		lo = idx.fanout[first-1]
	}
	hi := idx.fanout[first]

	pos, found, err := idx.search(int(lo), int(hi), id)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("idxfile: %w", plumbing.ErrNotFound)
	}
	return idx.offsetAt(pos)
}

func (idx *Index) search(lo, hi int, want plumbing.ObjectID) (int, bool, error) {
	var searchErr error
	pos := lo + sort.Search(hi-lo, func(i int) bool {
		got, err := idx.idAt(lo + i)
		if err != nil {
			searchErr = err
			return true
		}
		return bytes.Compare(got[:], want[:]) >= 0
	})
	if searchErr != nil {
		return 0, false, searchErr
	}
	if pos >= hi {
		return 0, false, nil
	}
	got, err := idx.idAt(pos)
	if err != nil {
		return 0, false, err
	}
	return pos, got == want, nil
}

// EntryAt returns the id and pack offset of the pos'th record in id-sorted
// order (0 <= pos < Count()), used by the identifier resolver's pack-ids
// visitor to enumerate every candidate across all packs.
func (idx *Index) EntryAt(pos int) (plumbing.ObjectID, int64, error) {
	id, err := idx.idAt(pos)
	if err != nil {
		return plumbing.ZeroID, 0, err
	}
	off, err := idx.offsetAt(pos)
	if err != nil {
		return plumbing.ZeroID, 0, err
	}
	return id, off, nil
}

func (idx *Index) idAt(pos int) (plumbing.ObjectID, error) {
	var off int64
	if idx.version == 1 {
		off = idx.recordsStart + int64(pos)*v1RecordSize + 4
	} else {
		off = idx.namesStart + int64(pos)*plumbing.Size
	}
	var raw [plumbing.Size]byte
	if _, err := readFullAt(idx.r, raw[:], off); err != nil {
		return plumbing.ZeroID, fmt.Errorf("idxfile: %w: reading id at %d: %v", plumbing.ErrMalformedHeader, pos, err)
	}
	return plumbing.ObjectID(raw), nil
}

func (idx *Index) offsetAt(pos int) (int64, error) {
	if idx.version == 1 {
		var raw [4]byte
		off := idx.recordsStart + int64(pos)*v1RecordSize
		if _, err := readFullAt(idx.r, raw[:], off); err != nil {
			return 0, fmt.Errorf("idxfile: %w: reading v1 offset at %d: %v", plumbing.ErrMalformedHeader, pos, err)
		}
		return int64(binary.BigEndian.Uint32(raw[:])), nil
	}

	var raw [4]byte
	if _, err := readFullAt(idx.r, raw[:], idx.off32Start+int64(pos)*4); err != nil {
		return 0, fmt.Errorf("idxfile: %w: reading offset32 at %d: %v", plumbing.ErrMalformedHeader, pos, err)
	}
	off32 := binary.BigEndian.Uint32(raw[:])

	if off32&is64BitMask == 0 {
		return int64(off32), nil
	}

	// MSB set: off32 (msb cleared) indexes the 8-byte overflow table.
	table := int64(off32 &^ is64BitMask)
	var raw8 [8]byte
	if _, err := readFullAt(idx.r, raw8[:], idx.off64Start+table*8); err != nil {
		return 0, fmt.Errorf("idxfile: %w: reading offset64 at %d: %v", plumbing.ErrMalformedHeader, table, err)
	}
	return int64(binary.BigEndian.Uint64(raw8[:])), nil
}

func readFullAt(r io.ReaderAt, buf []byte, off int64) (int, error) {
	n, err := r.ReadAt(buf, off)
	if err != nil && !(err == io.EOF && n == len(buf)) {
		return n, err
	}
	return n, nil
}
