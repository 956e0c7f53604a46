// Package lru caches per-target match results of a rule snapshot.
package lru

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/rr-filter/internal/filter/repos/rulelist"
)

// matchCache is an LRU-backed implementation of rulelist.MatchCache.
// It tracks basic metrics: hits, misses, and evictions.
type matchCache struct {
	lru       *lru.Cache[string, []int]
	capacity  int
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// disabledCache is a no-op MatchCache used when size <= 0.
type disabledCache struct{}

// New creates a MatchCache with the given capacity. If size <= 0, a
// disabled cache is returned that always misses and tracks no metrics.
func New(size int) (rulelist.MatchCache, error) {
	if size <= 0 {
		return disabledCache{}, nil
	}
	mc := &matchCache{capacity: size}
	cache, err := lru.NewWithEvict(size, func(string, []int) {
		mc.evictions.Add(1)
	})
	if err != nil {
		return nil, err
	}
	mc.lru = cache
	return mc, nil
}

// Factory returns a rulelist.CacheFactory producing caches of the given size.
func Factory(size int) rulelist.CacheFactory {
	return func() (rulelist.MatchCache, error) { return New(size) }
}

// Get looks up the match indexes for key, counting a hit or a miss.
func (c *matchCache) Get(key string) ([]int, bool) {
	if idx, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return idx, true
	}
	c.misses.Add(1)
	return nil, false
}

// Put stores the match indexes for key. A nil slice is a cached no-match.
func (c *matchCache) Put(key string, idx []int) { c.lru.Add(key, idx) }

func (c *matchCache) Len() int { return c.lru.Len() }

func (c *matchCache) Stats() rulelist.CacheStats {
	return rulelist.CacheStats{
		Capacity:  c.capacity,
		Size:      c.lru.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (disabledCache) Get(string) ([]int, bool)   { return nil, false }
func (disabledCache) Put(string, []int)          {}
func (disabledCache) Len() int                   { return 0 }
func (disabledCache) Stats() rulelist.CacheStats { return rulelist.CacheStats{} }

var (
	_ rulelist.MatchCache = (*matchCache)(nil)
	_ rulelist.MatchCache = disabledCache{}
)
