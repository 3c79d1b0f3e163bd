// Package filemode decodes the octal mode strings that prefix each entry of
// a tree object.
package filemode

import (
	"fmt"
	"strconv"

	"github.com/scm-tools/gitodb/plumbing"
)

// FileMode is the Unix-style mode recorded for a tree entry. Only the
// handful of values git itself ever writes are given names; any other
// octal value still round-trips through New/String.
type FileMode uint32

const (
	Empty      FileMode = 0
	Dir        FileMode = 0o40000
	Regular    FileMode = 0o100644
	Deprecated FileMode = 0o100664
	Executable FileMode = 0o100755
	Symlink    FileMode = 0o120000
	Submodule  FileMode = 0o160000
)

// New parses the ASCII octal mode string from a tree entry, e.g. "100644".
func New(s string) (FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return Empty, fmt.Errorf("filemode: invalid mode %q: %w", s, err)
	}
	return FileMode(v), nil
}

// String renders the mode as a 6-digit zero-padded octal string, the form
// the canonical tree renderer uses.
func (m FileMode) String() string {
	return fmt.Sprintf("%06o", uint32(m))
}

// ObjectType reports the object kind a tree entry of this mode points to,
// when that is derivable from the mode alone. Dir and Submodule are
// unambiguous; every other mode (including the deprecated/executable/
// symlink regular-file variants) names a blob. Deriving the kind here
// avoids a recursive store lookup per entry; ok is false only for a mode
// git has never written.
func (m FileMode) ObjectType() (plumbing.ObjectType, bool) {
	switch m {
	case Dir:
		return plumbing.TreeObject, true
	case Submodule:
		return plumbing.CommitObject, true
	case Regular, Deprecated, Executable, Symlink, Empty:
		return plumbing.BlobObject, true
	default:
		return plumbing.InvalidObject, false
	}
}
