package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scm-tools/gitodb/plumbing/format/idxfile"
)

func TestIndexCacheGetPutMiss(t *testing.T) {
	ic := NewIndexCache(2)

	_, ok := ic.Get("pack-abc")
	assert.False(t, ok)

	var idx idxfile.Index
	ic.Put("pack-abc", &idx, nil)

	got, ok := ic.Get("pack-abc")
	require.True(t, ok)
	assert.Same(t, &idx, got)
}

func TestIndexCacheEvictionReleases(t *testing.T) {
	ic := NewIndexCache(1)

	released := 0
	var idx1, idx2 idxfile.Index
	ic.Put("a", &idx1, func() error { released++; return nil })
	ic.Put("b", &idx2, func() error { released++; return nil })

	assert.Equal(t, 1, released)
	_, ok := ic.Get("a")
	assert.False(t, ok)

	require.NoError(t, ic.Close())
	assert.Equal(t, 2, released)
}
