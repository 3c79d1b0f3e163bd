// Package objfile implements the on-disk envelope of a loose object: a
// zlib-compressed stream whose decompressed payload is
// "<type> SP <decimal-size> NUL <payload>".
package objfile

import (
	"bufio"
	"bytes"
	"fmt"
	"hash"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/pjbgf/sha1cd"

	"github.com/scm-tools/gitodb/plumbing"
)

// Reader decodes a loose object stream. Header must be called exactly once
// before Read; Close releases the underlying zlib decompressor but leaves the
// source reader open.
type Reader struct {
	source     io.Reader
	zr         io.ReadCloser
	br         *bufio.Reader
	hasher     hash.Hash
	typ        plumbing.ObjectType
	size       int64
	headerDone bool
}

// NewReader wraps r, which must yield a zlib-compressed loose-object stream.
// Decompression stops at the zlib trailer; bytes of r beyond that point are
// never returned by Read.
func NewReader(r io.Reader) (*Reader, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("objfile: %w: %v", plumbing.ErrCorruptCompression, err)
	}

	return &Reader{
		source: r,
		zr:     zr,
		br:     bufio.NewReader(zr),
		hasher: sha1cd.New(),
	}, nil
}

// Header reads and parses the "<type> SP <size> NUL" prefix, returning the
// declared object type and payload length. Must be called before Read.
func (r *Reader) Header() (plumbing.ObjectType, int64, error) {
	raw, err := r.br.ReadBytes(0)
	if err != nil {
		return plumbing.InvalidObject, 0, fmt.Errorf("objfile: %w: reading header: %v", plumbing.ErrMalformedHeader, err)
	}

	line := strings.TrimSuffix(string(raw), "\x00")
	sp := strings.IndexByte(line, ' ')
	if sp < 0 {
		return plumbing.InvalidObject, 0, fmt.Errorf("objfile: %w: no space in header %q", plumbing.ErrMalformedHeader, line)
	}

	typ, ok := plumbing.ParseObjectType(line[:sp])
	if !ok {
		return plumbing.InvalidObject, 0, fmt.Errorf("objfile: %w: unknown object type %q", plumbing.ErrMalformedHeader, line[:sp])
	}

	size, err := strconv.ParseInt(line[sp+1:], 10, 64)
	if err != nil || size < 0 {
		return plumbing.InvalidObject, 0, fmt.Errorf("objfile: %w: invalid size %q", plumbing.ErrMalformedHeader, line[sp+1:])
	}

	r.typ = typ
	r.size = size
	r.headerDone = true
	r.hasher.Reset()
	r.hasher.Write(raw)

	return typ, size, nil
}

// Read implements io.Reader over the decompressed payload (i.e. everything
// after the NUL consumed by Header), feeding every byte read into the
// running content hash used by Hash.
func (r *Reader) Read(p []byte) (int, error) {
	if !r.headerDone {
		return 0, fmt.Errorf("objfile: %w: Read called before Header", plumbing.ErrMalformedHeader)
	}

	n, err := r.br.Read(p)
	if n > 0 {
		r.hasher.Write(p[:n])
	}
	return n, err
}

// Hash returns the ObjectID of everything read so far: the header bytes
// plus whatever payload bytes Read has produced. Calling it before the
// payload is fully drained yields a hash over a prefix, which is only
// meaningful once io.ReadAll(r) has completed.
func (r *Reader) Hash() plumbing.ObjectID {
	sum := r.hasher.Sum(nil)
	id, err := plumbing.FromBytes(sum)
	if err != nil {
		// sha1cd.New always produces a 20-byte sum; this can't happen.
		return plumbing.ZeroID
	}
	return id
}

// Close releases the zlib decompressor.
func (r *Reader) Close() error {
	return r.zr.Close()
}

// ReadAll decompresses the full payload of a loose object in one call,
// returning its declared type and payload bytes. A payload whose length
// differs from the declared size is an ErrMalformedHeader.
func ReadAll(r io.Reader) (plumbing.ObjectType, []byte, error) {
	or, err := NewReader(r)
	if err != nil {
		return plumbing.InvalidObject, nil, err
	}
	defer or.Close()

	typ, size, err := or.Header()
	if err != nil {
		return plumbing.InvalidObject, nil, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))
	if _, err := io.Copy(buf, or); err != nil {
		return plumbing.InvalidObject, nil, fmt.Errorf("objfile: %w: reading payload: %v", plumbing.ErrCorruptCompression, err)
	}
	if int64(buf.Len()) != size {
		return plumbing.InvalidObject, nil, fmt.Errorf("objfile: %w: declared size %d, got %d bytes", plumbing.ErrMalformedHeader, size, buf.Len())
	}

	return typ, buf.Bytes(), nil
}
