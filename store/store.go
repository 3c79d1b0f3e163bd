// Package store implements the read-only object-store façade: the loose
// backend, the packed backend, and the identifier resolver sit behind a
// single Store type whose Get honors loose-before-packed precedence.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/scm-tools/gitodb/plumbing"
	"github.com/scm-tools/gitodb/plumbing/cache"
	"github.com/scm-tools/gitodb/plumbing/format/idxfile"
	"github.com/scm-tools/gitodb/plumbing/format/objfile"
	"github.com/scm-tools/gitodb/plumbing/format/packfile"
	"github.com/scm-tools/gitodb/plumbing/mmapfile"
	"github.com/scm-tools/gitodb/plumbing/object"
)

const (
	objectsDir = "objects"
	packSubdir = "pack"
)

// Store is a read-only view over one repository's object database: a
// billy.Filesystem rooted at its ".git" directory (or a bare repository
// root), an optional diagnostics sink, and an optional pack-index cache.
type Store struct {
	fs     billy.Filesystem
	diag   io.Writer
	idx    *cache.IndexCache
	verify bool
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithDiagnostics routes non-fatal, informational messages — odd-length
// prefix truncation, anything else worth a note but not an error — to w.
// The default is silence.
func WithDiagnostics(w io.Writer) Option {
	return func(s *Store) { s.diag = w }
}

// WithIndexCache enables an LRU cache of parsed pack indexes bounded at
// maxEntries (cache.DefaultMaxPacks if maxEntries <= 0). Without this
// option every lookup reopens and reparses the fanout table of every pack
// it needs to consult; for a store with many packs this trades a small,
// bounded memory cost for avoiding repeated index opens and fanout reads.
// The pack directory is listed on every lookup either way.
func WithIndexCache(maxEntries int) Option {
	return func(s *Store) { s.idx = cache.NewIndexCache(maxEntries) }
}

// WithVerification makes every loose read recompute the object's id from
// its decompressed bytes (with the collision-detecting SHA-1 variant) and
// fail the read on mismatch, so a corrupt or misplaced file can't
// masquerade as the object its path names.
func WithVerification() Option {
	return func(s *Store) { s.verify = true }
}

// Open builds a Store rooted at gitDir on the local filesystem.
func Open(gitDir string, opts ...Option) *Store {
	return OpenFS(osfs.New(gitDir), opts...)
}

// OpenFS builds a Store rooted at fs, for callers supplying their own
// billy.Filesystem (an in-memory fixture in tests, a chroot view, etc).
func OpenFS(fs billy.Filesystem, opts ...Option) *Store {
	s := &Store{fs: fs}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the index cache's backing file handles and mappings, if
// one was configured. A Store without WithIndexCache has nothing to close.
func (s *Store) Close() error {
	if s.idx != nil {
		return s.idx.Close()
	}
	return nil
}

func (s *Store) logf(format string, args ...interface{}) {
	if s.diag == nil {
		return
	}
	fmt.Fprintf(s.diag, format+"\n", args...)
}

// Get decodes id's loose or packed representation and parses the declared
// object body, trying the loose backend first: loose storage is where newly
// written objects land, so it shadows any packed copy of the same id.
func (s *Store) Get(id plumbing.ObjectID) (*object.Object, error) {
	typ, data, err := s.getRaw(id)
	if err != nil {
		return nil, err
	}
	body, err := object.Parse(typ, data)
	if err != nil {
		return nil, err
	}
	return &object.Object{ID: id, Size: uint64(len(data)), Data: body}, nil
}

// Kind reports id's object type without requiring the caller to parse its
// body. It satisfies object.KindResolver, so a Store can resolve a Tree
// entry's kind when its mode alone doesn't.
func (s *Store) Kind(id plumbing.ObjectID) (plumbing.ObjectType, error) {
	typ, _, err := s.getRaw(id)
	return typ, err
}

// Render writes id's canonical textual form to w.
func (s *Store) Render(w io.Writer, id plumbing.ObjectID) error {
	obj, err := s.Get(id)
	if err != nil {
		return err
	}
	return object.Render(w, obj, s.Kind)
}

// getRaw returns id's declared type and decompressed payload, trying loose
// storage first and falling back to the packed backend.
func (s *Store) getRaw(id plumbing.ObjectID) (plumbing.ObjectType, []byte, error) {
	typ, data, err := s.getLoose(id)
	if err == nil {
		return typ, data, nil
	}
	if !errors.Is(err, plumbing.ErrNotFound) {
		return plumbing.InvalidObject, nil, err
	}

	return s.getPacked(id)
}

// --- loose backend ---

func (s *Store) loosePath(id plumbing.ObjectID) string {
	hex := id.String()
	return s.fs.Join(objectsDir, hex[:2], hex[2:])
}

func (s *Store) getLoose(id plumbing.ObjectID) (plumbing.ObjectType, []byte, error) {
	f, err := s.fs.Open(s.loosePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return plumbing.InvalidObject, nil, fmt.Errorf("store: loose %s: %w", id, plumbing.ErrNotFound)
		}
		return plumbing.InvalidObject, nil, fmt.Errorf("store: opening loose object %s: %w", id, err)
	}
	defer f.Close()

	r, err := objfile.NewReader(f)
	if err != nil {
		return plumbing.InvalidObject, nil, fmt.Errorf("store: reading loose object %s: %w", id, err)
	}
	defer r.Close()

	typ, size, err := r.Header()
	if err != nil {
		return plumbing.InvalidObject, nil, fmt.Errorf("store: reading loose object %s: %w", id, err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return plumbing.InvalidObject, nil, fmt.Errorf("store: reading loose object %s: %w: %v", id, plumbing.ErrCorruptCompression, err)
	}
	if int64(len(data)) != size {
		return plumbing.InvalidObject, nil, fmt.Errorf("store: loose object %s: declared size %d, got %d bytes: %w", id, size, len(data), plumbing.ErrMalformedHeader)
	}
	if s.verify {
		if got := r.Hash(); got != id {
			return plumbing.InvalidObject, nil, fmt.Errorf("store: loose object %s hashes to %s: %w", id, got, plumbing.ErrMalformedHeader)
		}
	}
	return typ, data, nil
}

// --- packed backend ---

func (s *Store) packDir() string { return s.fs.Join(objectsDir, packSubdir) }

// packNames lists the base name ("pack-<hex>") of every pack in the store,
// sorted for deterministic scan order.
func (s *Store) packNames() ([]string, error) {
	entries, err := s.fs.ReadDir(s.packDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: listing packs: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(e.Name(), ".idx"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) getPacked(id plumbing.ObjectID) (plumbing.ObjectType, []byte, error) {
	names, err := s.packNames()
	if err != nil {
		return plumbing.InvalidObject, nil, err
	}

	for _, name := range names {
		offset, found, err := s.findInPack(name, id)
		if err != nil {
			return plumbing.InvalidObject, nil, err
		}
		if !found {
			continue
		}

		typ, data, err := s.readPacked(name, offset)
		if err != nil {
			return plumbing.InvalidObject, nil, fmt.Errorf("store: packed %s in %s: %w", id, name, err)
		}
		return typ, data, nil
	}

	return plumbing.InvalidObject, nil, fmt.Errorf("store: %s: %w", id, plumbing.ErrNotFound)
}

func (s *Store) readPacked(name string, offset int64) (plumbing.ObjectType, []byte, error) {
	f, err := s.fs.Open(s.fs.Join(s.packDir(), name+".pack"))
	if err != nil {
		return plumbing.InvalidObject, nil, fmt.Errorf("store: opening pack %s: %w", name, err)
	}
	defer f.Close()

	p, err := packfile.Open(f)
	if err != nil {
		return plumbing.InvalidObject, nil, err
	}
	return p.Object(offset)
}

func (s *Store) findInPack(name string, id plumbing.ObjectID) (int64, bool, error) {
	idx, release, err := s.indexFor(name)
	if err != nil {
		return 0, false, err
	}
	defer release()
	return lookup(idx, id)
}

func lookup(idx *idxfile.Index, id plumbing.ObjectID) (int64, bool, error) {
	off, err := idx.FindOffset(id)
	if errors.Is(err, plumbing.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return off, true, nil
}

// indexFor returns name's parsed index, consulting the configured cache
// first. The returned release must be called exactly once the caller is
// done with idx; it is a no-op when the cache owns idx's lifetime.
func (s *Store) indexFor(name string) (*idxfile.Index, func() error, error) {
	noop := func() error { return nil }

	if s.idx != nil {
		if idx, ok := s.idx.Get(name); ok {
			return idx, noop, nil
		}
	}

	idx, release, err := s.openIndex(name)
	if err != nil {
		return nil, nil, err
	}

	if s.idx != nil {
		s.idx.Put(name, idx, release)
		return idx, noop, nil
	}
	return idx, release, nil
}

func (s *Store) openIndex(name string) (*idxfile.Index, func() error, error) {
	f, err := s.fs.Open(s.fs.Join(s.packDir(), name+".idx"))
	if err != nil {
		return nil, nil, fmt.Errorf("store: opening index %s: %w", name, err)
	}

	ra, unmap, mapped := s.readerAt(f)
	idx, err := idxfile.Open(ra)
	if err != nil {
		if mapped {
			unmap()
		}
		f.Close()
		return nil, nil, err
	}

	release := func() error {
		var firstErr error
		if mapped {
			if err := unmap(); err != nil {
				firstErr = err
			}
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return firstErr
	}
	return idx, release, nil
}

// readerAt prefers a memory-mapped view of f, keeping a large index out of
// the heap, and falls back to f's own ReadAt when mmap isn't available for
// this platform or this file.
func (s *Store) readerAt(f billy.File) (io.ReaderAt, func() error, bool) {
	fd, ok := f.(mmapfile.FileDescriptor)
	if !ok {
		return f, nil, false
	}
	info, err := s.fs.Stat(f.Name())
	if err != nil {
		return f, nil, false
	}
	if ra, cleanup, ok := mmapfile.Open(fd, info.Size()); ok {
		return ra, cleanup, true
	}
	return f, nil, false
}
