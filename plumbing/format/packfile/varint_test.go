package packfile

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scm-tools/gitodb/plumbing"
)

func TestReadTypeAndSize(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   []byte
		typ  plumbing.ObjectType
		size uint64
	}{
		{"blob, size fits nibble", []byte{0x33}, plumbing.BlobObject, 3},
		{"blob, size needs continuation", []byte{0xB1, 0x01}, plumbing.BlobObject, 17},
		{"commit, large size", []byte{0x9F, 0xFF, 0x7F}, plumbing.CommitObject, 0x3FFFF},
	} {
		t.Run(tc.name, func(t *testing.T) {
			br := bufio.NewReader(bytes.NewReader(tc.in))
			typ, size, err := ReadTypeAndSize(br)
			require.NoError(t, err)
			assert.Equal(t, tc.typ, typ)
			assert.Equal(t, tc.size, size)
		})
	}
}

func TestReadTypeAndSizeRejectsUnknownType(t *testing.T) {
	// bits 6-4 == 0 is not a valid packed object type.
	br := bufio.NewReader(bytes.NewReader([]byte{0x03}))
	_, _, err := ReadTypeAndSize(br)
	assert.ErrorIs(t, err, plumbing.ErrMalformedHeader)
}

func TestReadSize(t *testing.T) {
	for _, tc := range []struct {
		in   []byte
		size uint64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7F}, 127},
		{[]byte{0xAC, 0x02}, 300},
	} {
		br := bufio.NewReader(bytes.NewReader(tc.in))
		size, err := ReadSize(br)
		require.NoError(t, err)
		assert.Equal(t, tc.size, size)
	}
}

func TestReadNegativeOffset(t *testing.T) {
	for _, tc := range []struct {
		in []byte
		n  uint64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7F}, 127},
		{[]byte{0x80, 0x00}, 128},
		{encodeNegOffset(20000), 20000},
	} {
		br := bufio.NewReader(bytes.NewReader(tc.in))
		n, err := ReadNegativeOffset(br)
		require.NoError(t, err)
		assert.Equal(t, tc.n, n)
	}
}

// encodeNegOffset is the inverse of ReadNegativeOffset, used only to build
// test fixtures. Mirrors the encoding documented for OBJ_OFS_DELTA offsets.
func encodeNegOffset(n uint64) []byte {
	b := []byte{byte(n & 0x7f)}
	n >>= 7
	for n != 0 {
		n--
		b = append([]byte{0x80 | byte(n&0x7f)}, b...)
		n >>= 7
	}
	return b
}
