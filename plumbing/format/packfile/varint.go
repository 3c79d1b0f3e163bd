package packfile

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/scm-tools/gitodb/plumbing"
)

// ReadTypeAndSize decodes a packed object's TLV header: the first byte's
// bits 6-4 are the object type, bit 7 is a continuation flag, and bits 3-0
// plus every following length-LSB byte build up the declared payload
// length.
func ReadTypeAndSize(r io.ByteReader) (plumbing.ObjectType, uint64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return plumbing.InvalidObject, 0, fmt.Errorf("packfile: %w: reading object header: %v", plumbing.ErrMalformedHeader, err)
	}

	typ := plumbing.ObjectType((b >> 4) & 0x07)
	switch typ {
	case plumbing.CommitObject, plumbing.TreeObject, plumbing.BlobObject, plumbing.TagObject,
		plumbing.OFSDeltaObject, plumbing.REFDeltaObject:
	default:
		return plumbing.InvalidObject, 0, fmt.Errorf("packfile: %w: unrecognized object type %d", plumbing.ErrMalformedHeader, typ)
	}

	size := uint64(b & 0x0f)
	shift := uint(4)
	for b&0x80 != 0 {
		if shift >= 64 {
			return plumbing.InvalidObject, 0, fmt.Errorf("packfile: %w: size overflow", plumbing.ErrMalformedHeader)
		}
		b, err = r.ReadByte()
		if err != nil {
			return plumbing.InvalidObject, 0, fmt.Errorf("packfile: %w: reading size byte: %v", plumbing.ErrMalformedHeader, err)
		}
		size |= uint64(b&0x7f) << shift
		shift += 7
	}

	return typ, size, nil
}

// ReadSize decodes the plain length-LSB encoding used for the base-size and
// result-size fields inside a delta payload: every byte contributes 7 bits,
// low byte first, continuing while the MSB is set.
func ReadSize(r io.ByteReader) (uint64, error) {
	var size uint64
	shift := uint(0)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("packfile: %w: reading size: %v", plumbing.ErrMalformedHeader, err)
		}
		if shift >= 64 || (shift == 63 && b > 1) {
			return 0, fmt.Errorf("packfile: %w: size overflow", plumbing.ErrMalformedHeader)
		}
		size |= uint64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			return size, nil
		}
	}
}

// ReadNegativeOffset decodes the offset-continuation encoding used for the
// OBJ_OFS_DELTA negative relative offset: unlike ReadSize, each
// continuation byte contributes "+1" before the shift, which is what makes
// the encoding's value space monotonic with byte count instead of having
// redundant representations.
func ReadNegativeOffset(r io.ByteReader) (uint64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("packfile: %w: reading offset: %v", plumbing.ErrMalformedHeader, err)
	}

	n := uint64(b & 0x7f)
	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("packfile: %w: reading offset continuation: %v", plumbing.ErrMalformedHeader, err)
		}
		if bits.LeadingZeros64(n+1) < 7 {
			return 0, fmt.Errorf("packfile: %w: offset overflow", plumbing.ErrMalformedHeader)
		}
		n = ((n + 1) << 7) | uint64(b&0x7f)
	}

	return n, nil
}
