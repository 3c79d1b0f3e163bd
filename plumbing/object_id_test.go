package plumbing_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scm-tools/gitodb/plumbing"
)

func TestFromHex(t *testing.T) {
	const hex = "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"
	id, err := plumbing.FromHex(hex)
	require.NoError(t, err)
	assert.Equal(t, hex, id.String())
}

func TestFromHexInvalidLength(t *testing.T) {
	_, err := plumbing.FromHex("abc")
	assert.ErrorIs(t, err, plumbing.ErrInvalidHex)
}

func TestFromHexInvalidChar(t *testing.T) {
	_, err := plumbing.FromHex("zz9de29bb2d1d6434b8b29ae775ad8c2e48c5391")
	assert.ErrorIs(t, err, plumbing.ErrInvalidHex)
}

func TestFromBytesRoundTrip(t *testing.T) {
	id, err := plumbing.FromHex("303953e5aa461c203a324821bc1717f9b4fff895")
	require.NoError(t, err)

	id2, err := plumbing.FromBytes(id[:])
	require.NoError(t, err)
	assert.Equal(t, id, id2)
}

func TestHasPrefix(t *testing.T) {
	id, err := plumbing.FromHex("abcde12345678900000000000000000000000000")
	require.NoError(t, err)

	prefix, err := hex.DecodeString("abcde1")
	require.NoError(t, err)
	assert.True(t, id.HasPrefix(prefix))

	prefix2, err := hex.DecodeString("abcde2")
	require.NoError(t, err)
	assert.False(t, id.HasPrefix(prefix2))
}
