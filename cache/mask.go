package cache

import (
	"hash/fnv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/latticeforge/cdc"
)

// MaskCache caches AllowMasks keyed by a fingerprint combining a compiled
// grammar's hash with an IPM ParserState's fingerprint (§4.3, §6). Masks
// dominate the per-token hot path, so the cache is sharded by key hash to
// reduce lock contention under concurrent decodes — the same texture OPA
// uses for its own hot-path partial-evaluation caches.
type MaskCache struct {
	shards []*lru.Cache[string, *cdc.AllowMask]
}

// NewMaskCache creates a mask cache with shardCount independent LRU shards,
// each holding at most perShardSize entries.
func NewMaskCache(shardCount, perShardSize int) (*MaskCache, error) {
	if shardCount < 1 {
		shardCount = 1
	}
	mc := &MaskCache{shards: make([]*lru.Cache[string, *cdc.AllowMask], shardCount)}
	for i := range mc.shards {
		l, err := lru.New[string, *cdc.AllowMask](perShardSize)
		if err != nil {
			return nil, err
		}
		mc.shards[i] = l
	}
	return mc, nil
}

func (m *MaskCache) shardFor(key string) *lru.Cache[string, *cdc.AllowMask] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return m.shards[h.Sum32()%uint32(len(m.shards))]
}

// Get returns the cached mask for key, if present.
func (m *MaskCache) Get(key string) (*cdc.AllowMask, bool) {
	return m.shardFor(key).Get(key)
}

// Put stores mask under key, evicting the shard's least-recently-used
// entry if the shard is at capacity.
func (m *MaskCache) Put(key string, mask *cdc.AllowMask) {
	m.shardFor(key).Add(key, mask)
}

// Len returns the total number of cached masks across all shards.
func (m *MaskCache) Len() int {
	n := 0
	for _, s := range m.shards {
		n += s.Len()
	}
	return n
}
