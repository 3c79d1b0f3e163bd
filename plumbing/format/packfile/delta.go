package packfile

import (
	"fmt"

	"github.com/scm-tools/gitodb/plumbing"
)

// applyDelta reconstructs a full object by replaying a delta's copy/insert
// bytecode against base. The instruction layout follows git's own
// patch-delta.c.
func applyDelta(dst, base, instructions []byte) (int, error) {
	var dstOff int
	i := 0
	for i < len(instructions) {
		op := instructions[i]
		i++

		switch {
		case op&0x80 != 0:
			// Copy instruction: bits 0-3 select which offset bytes follow,
			// bits 4-6 select which size bytes follow, each present byte
			// taken as a little-endian field.
			var offset, size int
			for bit := uint(0); bit < 4; bit++ {
				if op&(1<<bit) != 0 {
					if i >= len(instructions) {
						return 0, fmt.Errorf("packfile: %w: truncated copy offset", plumbing.ErrDeltaMismatch)
					}
					offset |= int(instructions[i]) << (8 * bit)
					i++
				}
			}
			for bit := uint(0); bit < 3; bit++ {
				if op&(1<<(bit+4)) != 0 {
					if i >= len(instructions) {
						return 0, fmt.Errorf("packfile: %w: truncated copy size", plumbing.ErrDeltaMismatch)
					}
					size |= int(instructions[i]) << (8 * bit)
					i++
				}
			}
			if size == 0 {
				size = 0x10000
			}
			if offset+size > len(base) {
				return 0, fmt.Errorf("packfile: %w: copy [%d,%d) exceeds base length %d", plumbing.ErrDeltaMismatch, offset, offset+size, len(base))
			}
			if dstOff+size > len(dst) {
				return 0, fmt.Errorf("packfile: %w: copy overruns result size %d", plumbing.ErrDeltaMismatch, len(dst))
			}
			copy(dst[dstOff:], base[offset:offset+size])
			dstOff += size

		case op != 0:
			// Insert instruction: op itself is the literal length, followed
			// by that many literal bytes.
			size := int(op)
			if i+size > len(instructions) {
				return 0, fmt.Errorf("packfile: %w: truncated insert literal", plumbing.ErrDeltaMismatch)
			}
			if dstOff+size > len(dst) {
				return 0, fmt.Errorf("packfile: %w: insert overruns result size %d", plumbing.ErrDeltaMismatch, len(dst))
			}
			copy(dst[dstOff:], instructions[i:i+size])
			i += size
			dstOff += size

		default:
			return 0, fmt.Errorf("packfile: %w: reserved opcode 0", plumbing.ErrDeltaMismatch)
		}
	}

	return dstOff, nil
}
