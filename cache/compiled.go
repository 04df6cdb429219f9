/*
Package cache implements the three-layer cache hierarchy from §4.3/§6:
compiled-grammar cache, mask cache, and artifact cache. All three are
size-bounded LRUs (github.com/hashicorp/golang-lru/v2, the dependency OPA's
own go.mod already carries for exactly this kind of bounded cache), and the
compiled-grammar layer additionally coalesces concurrent compiles of the
same grammar into a single in-flight call via golang.org/x/sync/singleflight
(§6 "coalesced compile").

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2021–2026 The LatticeForge Authors
*/
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/sync/singleflight"

	"github.com/latticeforge/cdc/grammar"
)

// tracer traces with key 'cdc.cache'.
func tracer() tracing.Trace {
	return tracing.Select("cdc.cache")
}

// CompiledGrammarCache interns CompiledGrammars by content hash (§3
// invariant 6: identical grammar source + dialect + tokenizer always
// compiles to a bit-identical CompiledGrammar, so it is always safe to
// share one across requests).
type CompiledGrammarCache struct {
	lru   *lru.Cache[string, *grammar.CompiledGrammar]
	group singleflight.Group
}

// NewCompiledGrammarCache creates a cache holding at most size compiled
// grammars.
func NewCompiledGrammarCache(size int) (*CompiledGrammarCache, error) {
	l, err := lru.New[string, *grammar.CompiledGrammar](size)
	if err != nil {
		return nil, err
	}
	return &CompiledGrammarCache{lru: l}, nil
}

// Get returns the cached CompiledGrammar for key, if present.
func (c *CompiledGrammarCache) Get(key string) (*grammar.CompiledGrammar, bool) {
	return c.lru.Get(key)
}

// GetOrCompile returns the cached grammar for key, compiling it via fn and
// storing the result if absent. Concurrent callers racing on the same key
// share a single in-flight compile, and a caller that arrives just after
// that compile finished finds its result in the cache instead of compiling
// again (the `shared` return value reports whether the in-flight result was
// handed to more than one caller; it is false on a plain cache hit — useful
// for compile-latency metrics, not for correctness).
func (c *CompiledGrammarCache) GetOrCompile(key string, fn func() (*grammar.CompiledGrammar, error)) (cg *grammar.CompiledGrammar, shared bool, err error) {
	if hit, ok := c.lru.Get(key); ok {
		return hit, false, nil
	}
	v, shared, err := c.group.Do(key, func() (interface{}, error) {
		if hit, ok := c.lru.Get(key); ok {
			return hit, nil
		}
		result, ferr := fn()
		if ferr != nil {
			return nil, ferr
		}
		c.lru.Add(key, result)
		return result, nil
	})
	if err != nil {
		tracer().Errorf("compile coalesced for key %s failed: %v", key, err)
		return nil, shared, err
	}
	return v.(*grammar.CompiledGrammar), shared, nil
}

// Len returns the number of cached grammars.
func (c *CompiledGrammarCache) Len() int { return c.lru.Len() }

// Purge evicts every cached grammar, e.g. on a tokenizer-rebind (§4.3:
// recompilation is forced whenever the bound tokenizer changes).
func (c *CompiledGrammarCache) Purge() { c.lru.Purge() }
