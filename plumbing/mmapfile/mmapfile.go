// Package mmapfile memory-maps a read-only file region into an io.ReaderAt,
// giving the pack-index reader (idxfile) a cursor-style view over on-disk
// data without loading it into the Go heap.
// Platforms without mmap support fall back to the file's own ReadAt.
package mmapfile

import "io"

// FileDescriptor is satisfied by any file handle that can hand back its
// raw OS descriptor — osfs-backed billy.File does, most other
// billy.Filesystem implementations (memfs, chroot over a non-OS backend)
// do not, so callers check for it before calling Open.
type FileDescriptor interface {
	Fd() uintptr
}

// Open attempts to memory-map the first size bytes of f. On success it
// returns an io.ReaderAt backed by the mapping and a cleanup func that
// unmaps it; the caller must still close f itself. ok is false when mmap
// support isn't available for this platform, size is not positive, or the
// mapping fails, in which case the caller should fall back to f's own
// ReaderAt.
func Open(f FileDescriptor, size int64) (r io.ReaderAt, cleanup func() error, ok bool) {
	return open(f, size)
}
