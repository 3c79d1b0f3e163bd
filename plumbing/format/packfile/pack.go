package packfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-git/go-billy/v5"

	"github.com/scm-tools/gitodb/plumbing"
)

var signature = []byte{'P', 'A', 'C', 'K'}

// Packfile versions this store accepts. Version 3 is reserved by git and
// shares version 2's object encoding.
const (
	VersionSupported    uint32 = 2
	versionMaxSupported uint32 = 3
)

// Pack wraps an open packfile (".pack") for random-access object decoding.
// It reads the 12-byte header eagerly and otherwise touches the file only
// through f's ReadAt, so it never loads the pack into memory.
type Pack struct {
	f       billy.File
	size    int64
	version uint32
	count   uint32
}

// Open reads and validates a packfile's header: the 4-byte "PACK"
// signature, the format version, and the declared object count.
func Open(f billy.File) (*Pack, error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("packfile: seeking to end: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("packfile: seeking to start: %w", err)
	}

	var header [12]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return nil, fmt.Errorf("packfile: %w: reading header: %v", plumbing.ErrMalformedHeader, err)
	}

	if !bytes.Equal(header[:4], signature) {
		return nil, fmt.Errorf("packfile: %w: bad signature %q", plumbing.ErrMalformedHeader, header[:4])
	}

	version := binary.BigEndian.Uint32(header[4:8])
	if version < VersionSupported || version > versionMaxSupported {
		return nil, fmt.Errorf("packfile: %w: version %d", plumbing.ErrUnsupportedFormat, version)
	}

	count := binary.BigEndian.Uint32(header[8:12])

	return &Pack{f: f, size: size, version: version, count: count}, nil
}

// Version returns the packfile format version.
func (p *Pack) Version() uint32 { return p.version }

// Count returns the number of objects the header declares the pack holds.
func (p *Pack) Count() uint32 { return p.count }

// Size returns the total byte length of the pack, trailer included.
func (p *Pack) Size() int64 { return p.size }

// ReadAt implements Source by delegating to the underlying file.
func (p *Pack) ReadAt(b []byte, off int64) (int, error) {
	return p.f.ReadAt(b, off)
}

// Close releases the underlying file handle.
func (p *Pack) Close() error {
	return p.f.Close()
}

// Object decodes the object stored at the given byte offset, resolving any
// delta chain rooted there.
func (p *Pack) Object(offset int64) (plumbing.ObjectType, []byte, error) {
	return Resolve(p, offset)
}
