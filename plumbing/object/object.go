// Package object implements the object-body parser and canonical renderer:
// the four textual object kinds decoded from the bytes a loose or packed
// backend has already decompressed.
package object

import (
	"bytes"
	"fmt"

	"github.com/scm-tools/gitodb/plumbing"
	"github.com/scm-tools/gitodb/plumbing/filemode"
)

// Data is the payload carried by an Object: one of *Blob, *Tree, *Commit or
// *Tag. Kind reports which.
type Data interface {
	Kind() plumbing.ObjectType
}

// Object is the immutable value a store.Get call returns: an id, the
// declared payload size from its source (loose header or pack header, not
// the storage footprint), and the parsed body.
type Object struct {
	ID   plumbing.ObjectID
	Size uint64
	Data Data
}

// Blob is an opaque byte sequence.
type Blob struct {
	Content []byte
}

// Kind implements Data.
func (*Blob) Kind() plumbing.ObjectType { return plumbing.BlobObject }

// TreeEntry is one record of a Tree, in source order.
type TreeEntry struct {
	Mode filemode.FileMode
	Path string
	ID   plumbing.ObjectID
}

// Kind resolves the object kind a tree entry points to. Mode alone is
// sufficient for every mode git itself ever writes, so no recursive fetch
// is needed; resolve is consulted only as a fallback for a mode this store
// has never seen, and may be nil if the caller has no backend handy, in
// which case an unrecognized mode is an error.
func (e TreeEntry) Kind(resolve func(plumbing.ObjectID) (plumbing.ObjectType, error)) (plumbing.ObjectType, error) {
	if t, ok := e.Mode.ObjectType(); ok {
		return t, nil
	}
	if resolve == nil {
		return plumbing.InvalidObject, fmt.Errorf("object: %w: mode %s has no fallback resolver", plumbing.ErrParse, e.Mode)
	}
	return resolve(e.ID)
}

// Tree is an ordered sequence of entries, preserving the order the source
// bytes declared them in.
type Tree struct {
	Entries []TreeEntry
}

// Kind implements Data.
func (*Tree) Kind() plumbing.ObjectType { return plumbing.TreeObject }

// Commit is a single revision: a tree snapshot, zero or more parents, and
// the author/committer/message metadata git records for it.
type Commit struct {
	Tree      plumbing.ObjectID
	Parents   []plumbing.ObjectID
	Author    string
	Committer string
	// Encoding is the optional charset named in the commit's "encoding"
	// header (e.g. "ISO-8859-1"); empty when absent. See DecodeMessage.
	Encoding string
	// GPGSig is the optional multi-line PGP signature body, internal
	// newlines preserved, continuation-line leading spaces stripped.
	GPGSig string
	// Extra preserves any header this store doesn't otherwise model,
	// keyed by header name, values in source order, so parsing never
	// discards an unknown header. Render does not write these back out.
	Extra map[string][]string
	// Message is the byte-exact commit message, trailing newline (if
	// any) included.
	Message []byte
}

// Kind implements Data.
func (*Commit) Kind() plumbing.ObjectType { return plumbing.CommitObject }

// Tag is an annotated tag object.
type Tag struct {
	Object plumbing.ObjectID
	// ObjectKind is the tagged object's declared type label, not
	// validated against the object it names.
	ObjectKind string
	Tag        string
	Tagger     string
	// Message includes the PGP trailer for signed tags.
	Message []byte
}

// Kind implements Data.
func (*Tag) Kind() plumbing.ObjectType { return plumbing.TagObject }

// Parse decodes payload according to its declared kind. The caller supplies
// typ from a loose header or a packed-object TLV header; payload must
// already be fully decompressed.
func Parse(typ plumbing.ObjectType, payload []byte) (Data, error) {
	switch typ {
	case plumbing.BlobObject:
		return &Blob{Content: payload}, nil
	case plumbing.TreeObject:
		return parseTree(payload)
	case plumbing.CommitObject:
		return parseCommit(payload)
	case plumbing.TagObject:
		return parseTag(payload)
	default:
		return nil, fmt.Errorf("object: %w: cannot parse body of type %s", plumbing.ErrParse, typ)
	}
}

func parseTree(data []byte) (*Tree, error) {
	var entries []TreeEntry
	for len(data) > 0 {
		sp := bytes.IndexByte(data, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("object: %w: tree entry missing mode separator", plumbing.ErrParse)
		}
		modeStr := string(data[:sp])
		rest := data[sp+1:]

		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return nil, fmt.Errorf("object: %w: tree entry missing path terminator", plumbing.ErrParse)
		}
		path := string(rest[:nul])
		rest = rest[nul+1:]

		if len(rest) < plumbing.Size {
			return nil, fmt.Errorf("object: %w: tree entry id truncated", plumbing.ErrParse)
		}
		id, err := plumbing.FromBytes(rest[:plumbing.Size])
		if err != nil {
			return nil, fmt.Errorf("object: %w: tree entry id: %v", plumbing.ErrParse, err)
		}

		mode, err := filemode.New(modeStr)
		if err != nil {
			return nil, fmt.Errorf("object: %w: tree entry mode: %v", plumbing.ErrParse, err)
		}

		entries = append(entries, TreeEntry{Mode: mode, Path: path, ID: id})
		data = rest[plumbing.Size:]
	}
	return &Tree{Entries: entries}, nil
}

// headerLine is one key/value pair from a commit or tag header block, after
// continuation-line folding.
type headerLine struct {
	key   string
	value string
}

// parseHeaderBlock scans the "key SP value" lines that precede a commit or
// tag message, folding any continuation line (one whose first byte is a
// space) into the preceding value with the space dropped and a newline kept
// in its place. Returns the headers in source order and the remainder of
// data as the message.
func parseHeaderBlock(data []byte) ([]headerLine, []byte, error) {
	var headers []headerLine
	for {
		if len(data) == 0 {
			return nil, nil, fmt.Errorf("object: %w: missing blank line before message", plumbing.ErrParse)
		}
		if data[0] == '\n' {
			return headers, data[1:], nil
		}

		sp := bytes.IndexByte(data, ' ')
		nl := bytes.IndexByte(data, '\n')
		if sp < 0 || (nl >= 0 && nl < sp) {
			return nil, nil, fmt.Errorf("object: %w: malformed header line", plumbing.ErrParse)
		}
		key := string(data[:sp])
		data = data[sp+1:]

		var value bytes.Buffer
		for {
			nl = bytes.IndexByte(data, '\n')
			if nl < 0 {
				return nil, nil, fmt.Errorf("object: %w: unterminated header %q", plumbing.ErrParse, key)
			}
			value.Write(data[:nl])
			data = data[nl+1:]

			if len(data) > 0 && data[0] == ' ' {
				value.WriteByte('\n')
				data = data[1:]
				continue
			}
			break
		}
		headers = append(headers, headerLine{key: key, value: value.String()})
	}
}

func parseCommit(data []byte) (*Commit, error) {
	headers, message, err := parseHeaderBlock(data)
	if err != nil {
		return nil, fmt.Errorf("object: commit: %w", err)
	}

	c := &Commit{Message: message}
	var haveTree, haveAuthor, haveCommitter bool

	for _, h := range headers {
		switch h.key {
		case "tree":
			if haveTree {
				return nil, fmt.Errorf("object: commit: %w: duplicate tree header", plumbing.ErrParse)
			}
			id, err := plumbing.FromHex(h.value)
			if err != nil {
				return nil, fmt.Errorf("object: commit: %w: tree: %v", plumbing.ErrParse, err)
			}
			c.Tree = id
			haveTree = true
		case "parent":
			id, err := plumbing.FromHex(h.value)
			if err != nil {
				return nil, fmt.Errorf("object: commit: %w: parent: %v", plumbing.ErrParse, err)
			}
			c.Parents = append(c.Parents, id)
		case "author":
			if haveAuthor {
				return nil, fmt.Errorf("object: commit: %w: duplicate author header", plumbing.ErrParse)
			}
			c.Author = h.value
			haveAuthor = true
		case "committer":
			if haveCommitter {
				return nil, fmt.Errorf("object: commit: %w: duplicate committer header", plumbing.ErrParse)
			}
			c.Committer = h.value
			haveCommitter = true
		case "encoding":
			c.Encoding = h.value
		case "gpgsig":
			c.GPGSig = h.value
		default:
			if c.Extra == nil {
				c.Extra = make(map[string][]string)
			}
			c.Extra[h.key] = append(c.Extra[h.key], h.value)
		}
	}

	if !haveTree {
		return nil, fmt.Errorf("object: commit: %w: missing tree header", plumbing.ErrParse)
	}
	if !haveAuthor {
		return nil, fmt.Errorf("object: commit: %w: missing author header", plumbing.ErrParse)
	}
	if !haveCommitter {
		return nil, fmt.Errorf("object: commit: %w: missing committer header", plumbing.ErrParse)
	}

	return c, nil
}

func parseTag(data []byte) (*Tag, error) {
	headers, message, err := parseHeaderBlock(data)
	if err != nil {
		return nil, fmt.Errorf("object: tag: %w", err)
	}

	t := &Tag{Message: message}
	var haveObject, haveKind, haveTag, haveTagger bool

	for _, h := range headers {
		switch h.key {
		case "object":
			if haveObject {
				return nil, fmt.Errorf("object: tag: %w: duplicate object header", plumbing.ErrParse)
			}
			id, err := plumbing.FromHex(h.value)
			if err != nil {
				return nil, fmt.Errorf("object: tag: %w: object: %v", plumbing.ErrParse, err)
			}
			t.Object = id
			haveObject = true
		case "type":
			if haveKind {
				return nil, fmt.Errorf("object: tag: %w: duplicate type header", plumbing.ErrParse)
			}
			t.ObjectKind = h.value
			haveKind = true
		case "tag":
			if haveTag {
				return nil, fmt.Errorf("object: tag: %w: duplicate tag header", plumbing.ErrParse)
			}
			t.Tag = h.value
			haveTag = true
		case "tagger":
			if haveTagger {
				return nil, fmt.Errorf("object: tag: %w: duplicate tagger header", plumbing.ErrParse)
			}
			t.Tagger = h.value
			haveTagger = true
		}
	}

	if !haveObject {
		return nil, fmt.Errorf("object: tag: %w: missing object header", plumbing.ErrParse)
	}
	if !haveKind {
		return nil, fmt.Errorf("object: tag: %w: missing type header", plumbing.ErrParse)
	}
	if !haveTag {
		return nil, fmt.Errorf("object: tag: %w: missing tag header", plumbing.ErrParse)
	}
	if !haveTagger {
		return nil, fmt.Errorf("object: tag: %w: missing tagger header", plumbing.ErrParse)
	}

	return t, nil
}
