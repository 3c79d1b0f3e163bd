package packfile

import (
	"bufio"
	"fmt"
	"io"

	"github.com/emirpasic/gods/stacks/linkedliststack"
	"github.com/klauspost/compress/zlib"

	"github.com/scm-tools/gitodb/plumbing"
)

// MaxDeltaDepth bounds the number of OBJ_OFS_DELTA hops Resolve will follow
// before giving up. Offset deltas only ever point earlier in the file, so a
// chain can't cycle, but a pathological chain could still force an
// unbounded number of zlib streams to be opened for one lookup.
const MaxDeltaDepth = 50

// Source is the byte source a Resolve walk reads from: the packfile itself,
// addressed by byte offset.
type Source interface {
	io.ReaderAt
	// Size returns the total length of the pack's data in bytes.
	Size() int64
}

type deltaFrame struct {
	baseSize     uint64
	resultSize   uint64
	instructions []byte
}

// Resolve decodes the object at byte offset off within src, following any
// OBJ_OFS_DELTA chain back to its non-delta base and replaying every frame
// forward to reconstruct the requested object. OBJ_REF_DELTA is rejected
// with ErrUnsupportedFormat.
func Resolve(src Source, off int64) (plumbing.ObjectType, []byte, error) {
	frames := linkedliststack.New()
	offset := off

	var baseType plumbing.ObjectType
	var baseBytes []byte

	for depth := 0; ; depth++ {
		if depth > MaxDeltaDepth {
			return plumbing.InvalidObject, nil, fmt.Errorf("packfile: %w: delta chain exceeds depth %d", plumbing.ErrUnsupportedFormat, MaxDeltaDepth)
		}
		if offset < 0 || offset >= src.Size() {
			return plumbing.InvalidObject, nil, fmt.Errorf("packfile: %w: offset %d out of range", plumbing.ErrMalformedHeader, offset)
		}

		br := bufio.NewReader(section(src, offset))
		typ, length, err := ReadTypeAndSize(br)
		if err != nil {
			return plumbing.InvalidObject, nil, err
		}

		if !typ.IsDelta() {
			buf, err := inflate(br, length)
			if err != nil {
				return plumbing.InvalidObject, nil, err
			}
			baseType = typ
			baseBytes = buf
			break
		}

		if typ == plumbing.REFDeltaObject {
			return plumbing.InvalidObject, nil, fmt.Errorf("packfile: %w: OBJ_REF_DELTA", plumbing.ErrUnsupportedFormat)
		}

		negOff, err := ReadNegativeOffset(br)
		if err != nil {
			return plumbing.InvalidObject, nil, err
		}
		if int64(negOff) <= 0 || int64(negOff) > offset {
			return plumbing.InvalidObject, nil, fmt.Errorf("packfile: %w: base offset out of range", plumbing.ErrMalformedHeader)
		}

		zr, err := zlib.NewReader(br)
		if err != nil {
			return plumbing.InvalidObject, nil, fmt.Errorf("packfile: %w: %v", plumbing.ErrCorruptCompression, err)
		}
		zbr := bufio.NewReader(zr)

		baseSize, err := ReadSize(zbr)
		if err != nil {
			zr.Close()
			return plumbing.InvalidObject, nil, err
		}
		resultSize, err := ReadSize(zbr)
		if err != nil {
			zr.Close()
			return plumbing.InvalidObject, nil, err
		}
		instructions, err := io.ReadAll(zbr)
		zr.Close()
		if err != nil {
			return plumbing.InvalidObject, nil, fmt.Errorf("packfile: %w: reading delta instructions: %v", plumbing.ErrCorruptCompression, err)
		}

		frames.Push(deltaFrame{baseSize: baseSize, resultSize: resultSize, instructions: instructions})
		offset -= int64(negOff)
	}

	cur := baseBytes
	for !frames.Empty() {
		v, _ := frames.Pop()
		fr := v.(deltaFrame)

		if uint64(len(cur)) != fr.baseSize {
			return plumbing.InvalidObject, nil, fmt.Errorf("packfile: %w: base is %d bytes, delta expects %d", plumbing.ErrDeltaMismatch, len(cur), fr.baseSize)
		}

		dst := make([]byte, fr.resultSize)
		n, err := applyDelta(dst, cur, fr.instructions)
		if err != nil {
			return plumbing.InvalidObject, nil, err
		}
		if uint64(n) != fr.resultSize {
			return plumbing.InvalidObject, nil, fmt.Errorf("packfile: %w: delta produced %d bytes, expected %d", plumbing.ErrDeltaMismatch, n, fr.resultSize)
		}

		cur = dst
	}

	return baseType, cur, nil
}

// section returns a stream starting at byte offset off and running to the
// end of src, suitable for a bufio.Reader that will be handed to a zlib
// reader: zlib stops itself at the compressed stream's trailer, so trailing
// bytes belonging to the next packed object are simply never consumed.
func section(src Source, off int64) io.Reader {
	return io.NewSectionReader(src, off, src.Size()-off)
}

func inflate(r io.Reader, size uint64) ([]byte, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("packfile: %w: %v", plumbing.ErrCorruptCompression, err)
	}
	defer zr.Close()

	buf := make([]byte, size)
	if _, err := io.ReadFull(zr, buf); err != nil {
		return nil, fmt.Errorf("packfile: %w: reading payload: %v", plumbing.ErrCorruptCompression, err)
	}
	return buf, nil
}
