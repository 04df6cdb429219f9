package cache

import lru "github.com/hashicorp/golang-lru/v2"

// Artifact is an immutable cached byte blob: a validated/repaired
// generation result, keyed by content hash, that the validation-repair
// loop can return directly instead of re-running a validator (§4.3's third
// cache layer, §4.5 repair ladder "example injection" strategy reuses
// prior successful repairs of the same shape).
type Artifact struct {
	Key   string
	Bytes []byte
}

// ArtifactCache bounds itself by total byte size rather than entry count,
// since artifacts vary wildly in size (a one-line JSON object vs. a whole
// generated source file) — an entry-count LRU would let a handful of large
// artifacts starve the cache of small ones.
type ArtifactCache struct {
	lru       *lru.Cache[string, *Artifact]
	maxBytes  int64
	curBytes  int64
}

// NewArtifactCache creates an artifact cache bounded by maxBytes total. A
// generous entry-count ceiling (entryCap) backs the underlying LRU so a
// flood of zero-length artifacts can't grow the index unboundedly either.
func NewArtifactCache(maxBytes int64, entryCap int) (*ArtifactCache, error) {
	ac := &ArtifactCache{maxBytes: maxBytes}
	l, err := lru.NewWithEvict[string, *Artifact](entryCap, func(_ string, evicted *Artifact) {
		ac.curBytes -= int64(len(evicted.Bytes))
	})
	if err != nil {
		return nil, err
	}
	ac.lru = l
	return ac, nil
}

// Get returns the cached artifact for key, if present.
func (ac *ArtifactCache) Get(key string) (*Artifact, bool) {
	return ac.lru.Get(key)
}

// Put stores an artifact, evicting oldest entries until the cache is back
// under its byte budget.
func (ac *ArtifactCache) Put(key string, bytes []byte) {
	a := &Artifact{Key: key, Bytes: bytes}
	if old, ok := ac.lru.Peek(key); ok {
		ac.curBytes -= int64(len(old.Bytes))
	}
	ac.lru.Add(key, a)
	ac.curBytes += int64(len(bytes))
	for ac.curBytes > ac.maxBytes && ac.lru.Len() > 0 {
		ac.lru.RemoveOldest()
	}
}

// Bytes returns the current total cached byte count.
func (ac *ArtifactCache) Bytes() int64 { return ac.curBytes }

// Len returns the number of cached artifacts.
func (ac *ArtifactCache) Len() int { return ac.lru.Len() }
