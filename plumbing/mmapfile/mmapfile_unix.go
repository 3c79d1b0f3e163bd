//go:build darwin || linux

package mmapfile

import (
	"bytes"
	"io"

	"golang.org/x/sys/unix"
)

func open(f FileDescriptor, size int64) (io.ReaderAt, func() error, bool) {
	if size <= 0 {
		return nil, nil, false
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, false
	}

	cleanup := func() error { return unix.Munmap(data) }
	return bytes.NewReader(data), cleanup, true
}
