package object

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scm-tools/gitodb/plumbing"
)

func mustID(t *testing.T, hex string) plumbing.ObjectID {
	t.Helper()
	id, err := plumbing.FromHex(hex)
	require.NoError(t, err)
	return id
}

func TestParseBlobEmpty(t *testing.T) {
	data, err := Parse(plumbing.BlobObject, nil)
	require.NoError(t, err)
	blob, ok := data.(*Blob)
	require.True(t, ok)
	assert.Empty(t, blob.Content)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, &Object{Data: blob}, nil))
	assert.Empty(t, buf.String())
}

func TestParseTreeTwoEntries(t *testing.T) {
	idA := bytes.Repeat([]byte{0xaa}, plumbing.Size)
	idB := bytes.Repeat([]byte{0xbb}, plumbing.Size)

	var payload bytes.Buffer
	payload.WriteString("100644 file.txt\x00")
	payload.Write(idA)
	payload.WriteString("40000 sub\x00")
	payload.Write(idB)

	data, err := Parse(plumbing.TreeObject, payload.Bytes())
	require.NoError(t, err)

	tree, ok := data.(*Tree)
	require.True(t, ok)
	require.Len(t, tree.Entries, 2)

	assert.Equal(t, "100644", tree.Entries[0].Mode.String())
	assert.Equal(t, "file.txt", tree.Entries[0].Path)
	wantA, err := plumbing.FromBytes(idA)
	require.NoError(t, err)
	assert.Equal(t, wantA, tree.Entries[0].ID)

	assert.Equal(t, "040000", tree.Entries[1].Mode.String())
	assert.Equal(t, "sub", tree.Entries[1].Path)
}

func TestParseCommitWithParentsAndGPGSig(t *testing.T) {
	h1 := strings.Repeat("1", 40)
	h2 := strings.Repeat("2", 40)
	h3 := strings.Repeat("3", 40)

	raw := "tree " + h1 + "\n" +
		"parent " + h2 + "\n" +
		"parent " + h3 + "\n" +
		"author A <a@x> 1 +0000\n" +
		"committer C <c@x> 2 +0000\n" +
		"gpgsig -----BEGIN PGP SIGNATURE-----\n" +
		" iQGzBAABCAAdFiEE\n" +
		" -----END PGP SIGNATURE-----\n" +
		"\n" +
		"hello\n"

	data, err := Parse(plumbing.CommitObject, []byte(raw))
	require.NoError(t, err)

	commit, ok := data.(*Commit)
	require.True(t, ok)

	assert.Equal(t, mustID(t, h1), commit.Tree)
	require.Len(t, commit.Parents, 2)
	assert.Equal(t, mustID(t, h2), commit.Parents[0])
	assert.Equal(t, mustID(t, h3), commit.Parents[1])
	assert.Equal(t, "A <a@x> 1 +0000", commit.Author)
	assert.Equal(t, "C <c@x> 2 +0000", commit.Committer)
	assert.Equal(t, "-----BEGIN PGP SIGNATURE-----\niQGzBAABCAAdFiEE\n-----END PGP SIGNATURE-----", commit.GPGSig)
	assert.Equal(t, "hello\n", string(commit.Message))
}

// TestParseCommitPreservesUnknownHeaders round-trips a commit carrying a
// repeated header this store doesn't model, comparing the whole parsed
// struct at once.
func TestParseCommitPreservesUnknownHeaders(t *testing.T) {
	h1 := strings.Repeat("1", 40)

	raw := "tree " + h1 + "\n" +
		"author A <a@x> 1 +0000\n" +
		"committer C <c@x> 2 +0000\n" +
		"mergetag first\n" +
		"mergetag second\n" +
		"\n" +
		"msg\n"

	data, err := Parse(plumbing.CommitObject, []byte(raw))
	require.NoError(t, err)

	want := &Commit{
		Tree:      mustID(t, h1),
		Author:    "A <a@x> 1 +0000",
		Committer: "C <c@x> 2 +0000",
		Extra:     map[string][]string{"mergetag": {"first", "second"}},
		Message:   []byte("msg\n"),
	}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("parsed commit mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCommitMissingTree(t *testing.T) {
	raw := "author A <a@x> 1 +0000\ncommitter C <c@x> 2 +0000\n\nmsg\n"
	_, err := Parse(plumbing.CommitObject, []byte(raw))
	require.Error(t, err)
	assert.ErrorIs(t, err, plumbing.ErrParse)
}

func TestParseTagPreservesSignatureTrailer(t *testing.T) {
	obj := strings.Repeat("4", 40)
	raw := "object " + obj + "\n" +
		"type commit\n" +
		"tag v1.0.0\n" +
		"tagger T <t@x> 1 +0000\n" +
		"\n" +
		"release\n-----BEGIN PGP SIGNATURE-----\nabc\n-----END PGP SIGNATURE-----\n"

	data, err := Parse(plumbing.TagObject, []byte(raw))
	require.NoError(t, err)

	tag, ok := data.(*Tag)
	require.True(t, ok)
	assert.Equal(t, mustID(t, obj), tag.Object)
	assert.Equal(t, "commit", tag.ObjectKind)
	assert.Equal(t, "v1.0.0", tag.Tag)
	assert.Contains(t, string(tag.Message), "-----BEGIN PGP SIGNATURE-----")
}

func TestRenderTreeUsesModeDerivedKind(t *testing.T) {
	idA := bytes.Repeat([]byte{0xaa}, plumbing.Size)
	tree := &Tree{Entries: []TreeEntry{{Mode: 0o100644, Path: "a.txt", ID: mustBytesID(t, idA)}}}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, &Object{Data: tree}, nil))
	assert.Equal(t, "100644 blob "+mustBytesID(t, idA).String()+" a.txt\n", buf.String())
}

func mustBytesID(t *testing.T, b []byte) plumbing.ObjectID {
	t.Helper()
	id, err := plumbing.FromBytes(b)
	require.NoError(t, err)
	return id
}

func TestCommitDecodeMessageNoEncoding(t *testing.T) {
	c := &Commit{Message: []byte("plain\n")}
	msg, err := c.DecodeMessage()
	require.NoError(t, err)
	assert.Equal(t, "plain\n", msg)
}

func TestCommitDecodeMessageLatin1(t *testing.T) {
	// 0xE9 is "é" in ISO-8859-1 and invalid as a UTF-8 start byte.
	c := &Commit{Encoding: "ISO-8859-1", Message: []byte{'c', 'a', 'f', 0xE9, '\n'}}
	msg, err := c.DecodeMessage()
	require.NoError(t, err)
	assert.Equal(t, "café\n", msg)
}

func TestCommitDecodeMessageUnknownEncoding(t *testing.T) {
	c := &Commit{Encoding: "no-such-charset", Message: []byte("x")}
	_, err := c.DecodeMessage()
	assert.ErrorIs(t, err, plumbing.ErrParse)
}
