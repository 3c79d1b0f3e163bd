// Package cache holds the one piece of cross-call state this store keeps:
// a per-instance, bounded cache of parsed pack indexes. It is never shared
// across Store instances and never persisted, so a fresh process always
// starts cold.
package cache

import (
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/scm-tools/gitodb/plumbing/format/idxfile"
)

// DefaultMaxPacks bounds the number of parsed indexes (and their backing
// file descriptors) an IndexCache keeps open at once.
const DefaultMaxPacks = 32

// entry pairs a parsed index with the cleanup for the resources it was
// opened against (an mmap region, a file handle, or both).
type entry struct {
	idx     *idxfile.Index
	release func() error
}

// IndexCache maps a pack's base name (the "pack-<hex>" stem shared by its
// .idx and .pack files) to its parsed idxfile.Index. Eviction releases the
// evicted entry's backing resources.
type IndexCache struct {
	mu sync.Mutex
	c  *lru.Cache
}

// NewIndexCache builds a cache holding at most maxEntries parsed indexes.
// maxEntries <= 0 uses DefaultMaxPacks.
func NewIndexCache(maxEntries int) *IndexCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxPacks
	}
	ic := &IndexCache{c: lru.New(maxEntries)}
	ic.c.OnEvicted = func(_ lru.Key, value interface{}) {
		if e, ok := value.(entry); ok && e.release != nil {
			_ = e.release()
		}
	}
	return ic
}

// Get returns the cached index for name, if present.
func (ic *IndexCache) Get(name string) (*idxfile.Index, bool) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	v, ok := ic.c.Get(name)
	if !ok {
		return nil, false
	}
	return v.(entry).idx, true
}

// Put caches idx under name. release, if non-nil, is invoked once when the
// entry is evicted or the cache is closed — the cache takes ownership of
// whatever resource it protects.
func (ic *IndexCache) Put(name string, idx *idxfile.Index, release func() error) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	ic.c.Add(name, entry{idx: idx, release: release})
}

// Close releases every currently cached entry's resources (via the same
// OnEvicted hook Put's release funcs were registered under).
func (ic *IndexCache) Close() error {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	for ic.c.Len() > 0 {
		ic.c.RemoveOldest()
	}
	return nil
}
