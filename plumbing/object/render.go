package object

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/scm-tools/gitodb/plumbing"
)

// KindResolver looks up the type of an arbitrary object id, used by Render
// to print a Tree entry's kind when its mode alone doesn't determine it
// (see TreeEntry.Kind). Typically store.Store.Kind.
type KindResolver func(plumbing.ObjectID) (plumbing.ObjectType, error)

// Render writes the canonical textual form of o, modeled on git's
// "cat-file -p" output. A commit's headers are written in a fixed order
// (tree, parents, author, committer, then encoding and gpgsig when set);
// headers kept in Commit.Extra are not written, and gpgsig continuation
// lines are written without their leading space. resolve may be nil; it is
// only consulted for a Tree entry whose mode doesn't name its kind outright.
func Render(w io.Writer, o *Object, resolve KindResolver) error {
	switch d := o.Data.(type) {
	case *Blob:
		_, err := w.Write(d.Content)
		return err
	case *Tree:
		return renderTree(w, d, resolve)
	case *Commit:
		return renderCommit(w, d)
	case *Tag:
		return renderTag(w, d)
	default:
		return fmt.Errorf("object: %w: cannot render %T", plumbing.ErrParse, o.Data)
	}
}

func renderTree(w io.Writer, t *Tree, resolve KindResolver) error {
	for _, e := range t.Entries {
		kind, err := e.Kind(resolve)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s %s %s %s\n", e.Mode, kind, e.ID, e.Path); err != nil {
			return err
		}
	}
	return nil
}

func renderCommit(w io.Writer, c *Commit) error {
	if _, err := fmt.Fprintf(w, "tree %s\n", c.Tree); err != nil {
		return err
	}
	for _, p := range c.Parents {
		if _, err := fmt.Fprintf(w, "parent %s\n", p); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "author %s\n", c.Author); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "committer %s\n", c.Committer); err != nil {
		return err
	}
	if c.Encoding != "" {
		if _, err := fmt.Fprintf(w, "encoding %s\n", c.Encoding); err != nil {
			return err
		}
	}
	if c.GPGSig != "" {
		if _, err := fmt.Fprintf(w, "gpgsig %s\n", c.GPGSig); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	_, err := w.Write(c.Message)
	return err
}

func renderTag(w io.Writer, t *Tag) error {
	if _, err := fmt.Fprintf(w, "object %s\n", t.Object); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "type %s\n", t.ObjectKind); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "tag %s\n", t.Tag); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "tagger %s\n", t.Tagger); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	_, err := w.Write(t.Message)
	return err
}

// DecodeMessage transcodes a commit's message to UTF-8 using the charset
// named in its optional "encoding" header. With no encoding header, the
// message is assumed already UTF-8 and returned as-is.
func (c *Commit) DecodeMessage() (string, error) {
	if c.Encoding == "" {
		return string(c.Message), nil
	}

	enc, err := ianaindex.IANA.Encoding(c.Encoding)
	if err != nil || enc == nil {
		return "", fmt.Errorf("object: %w: unrecognized commit encoding %q", plumbing.ErrParse, c.Encoding)
	}

	out, err := enc.NewDecoder().Bytes(c.Message)
	if err != nil {
		return "", fmt.Errorf("object: %w: decoding commit message as %q: %v", plumbing.ErrParse, c.Encoding, err)
	}
	return string(out), nil
}
