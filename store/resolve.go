package store

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"github.com/scm-tools/gitodb/plumbing"
)

// minPrefixLen is the shortest identifier prefix this resolver accepts.
const minPrefixLen = 4

// AmbiguousError reports every candidate a prefix matched. errors.Is
// against plumbing.ErrAmbiguous succeeds for it.
type AmbiguousError struct {
	Prefix     string
	Candidates []plumbing.ObjectID
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("store: prefix %q matches %d objects", e.Prefix, len(e.Candidates))
}

// Unwrap lets callers test AmbiguousError with errors.Is(err, plumbing.ErrAmbiguous).
func (e *AmbiguousError) Unwrap() error { return plumbing.ErrAmbiguous }

// Resolve maps a hex identifier prefix of length 4..40 to the single
// ObjectID it names, searching both the loose and packed backends. An
// odd-length prefix has its final nibble dropped and is retried, with a
// diagnostic noting the truncation, rather than rejecting a git-style
// abbreviated id outright.
func (s *Store) Resolve(prefix string) (plumbing.ObjectID, error) {
	if len(prefix) < minPrefixLen || len(prefix) > plumbing.Size*2 {
		return plumbing.ZeroID, fmt.Errorf("store: %w: prefix length %d outside %d..%d", plumbing.ErrInvalidHex, len(prefix), minPrefixLen, plumbing.Size*2)
	}

	decodeLen := len(prefix)
	if decodeLen%2 != 0 {
		decodeLen--
		s.logf("resolve: odd-length prefix %q, truncating to %q", prefix, prefix[:decodeLen])
		return s.Resolve(prefix[:decodeLen])
	}

	raw := make([]byte, decodeLen/2)
	if _, err := hex.Decode(raw, []byte(prefix)); err != nil {
		return plumbing.ZeroID, fmt.Errorf("store: %w: %v", plumbing.ErrInvalidHex, err)
	}

	var candidates []plumbing.ObjectID
	seen := make(map[plumbing.ObjectID]bool)
	add := func(id plumbing.ObjectID) {
		if !id.HasPrefix(raw) || seen[id] {
			return
		}
		seen[id] = true
		candidates = append(candidates, id)
	}

	hint := &raw[0]
	if err := s.visitLooseIDs(hint, add); err != nil {
		return plumbing.ZeroID, err
	}
	if err := s.visitPackIDs(add); err != nil {
		return plumbing.ZeroID, err
	}

	switch len(candidates) {
	case 0:
		return plumbing.ZeroID, fmt.Errorf("store: prefix %q: %w", prefix, plumbing.ErrNotFound)
	case 1:
		return candidates[0], nil
	default:
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].String() < candidates[j].String() })
		return plumbing.ZeroID, &AmbiguousError{Prefix: prefix, Candidates: candidates}
	}
}

// visitLooseIDs calls visit for every loose object id whose first byte
// matches hint (always non-nil in practice, since Resolve requires at
// least 2 decoded bytes), scanning only that one fanout subdirectory rather
// than all 256.
func (s *Store) visitLooseIDs(hint *byte, visit func(plumbing.ObjectID)) error {
	if hint != nil {
		return s.visitLooseDir(fmt.Sprintf("%02x", *hint), visit)
	}

	entries, err := s.fs.ReadDir(s.fs.Join(objectsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("store: listing object directories: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() || e.Name() == packSubdir || len(e.Name()) != 2 {
			continue
		}
		if err := s.visitLooseDir(e.Name(), visit); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) visitLooseDir(subdir string, visit func(plumbing.ObjectID)) error {
	dir := s.fs.Join(objectsDir, subdir)
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("store: listing %s: %w", dir, err)
	}

	const suffixLen = plumbing.Size*2 - 2
	for _, e := range entries {
		if e.IsDir() || len(e.Name()) != suffixLen {
			continue
		}
		id, err := plumbing.FromHex(subdir + e.Name())
		if err != nil {
			continue
		}
		visit(id)
	}
	return nil
}

// visitPackIDs calls visit for every id named by every pack's index,
// across all packs in the store.
func (s *Store) visitPackIDs(visit func(plumbing.ObjectID)) error {
	names, err := s.packNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		if err := s.visitPackIndex(name, visit); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) visitPackIndex(name string, visit func(plumbing.ObjectID)) error {
	idx, release, err := s.indexFor(name)
	if err != nil {
		return err
	}
	defer release()

	for i := 0; i < idx.Count(); i++ {
		id, _, err := idx.EntryAt(i)
		if err != nil {
			return err
		}
		visit(id)
	}
	return nil
}
