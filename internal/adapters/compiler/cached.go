// Package compiler caches compiled snippets across checks.
package compiler

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/easydapp/jelly-packages/internal/core/graph"
	"github.com/easydapp/jelly-packages/internal/core/link"
	"github.com/easydapp/jelly-packages/internal/infrastructure/metrics"
	"github.com/easydapp/jelly-packages/pkg/serialization"
)

const DefaultCacheSize = 1024

// Cache remembers compiled output by the fingerprint of the typed snippet.
// It is safe for concurrent use.
type Cache struct {
	entries *lru.Cache[[32]byte, string]
	metrics *metrics.Metrics
}

// NewCache returns a cache of size entries. A size below one selects
// DefaultCacheSize. m may be nil.
func NewCache(size int, m *metrics.Metrics) (*Cache, error) {
	if size < 1 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[[32]byte, string](size)
	if err != nil {
		return nil, fmt.Errorf("create compile cache: %w", err)
	}
	return &Cache{entries: entries, metrics: m}, nil
}

// Len is the number of cached snippets.
func (c *Cache) Len() int { return c.entries.Len() }

// Wrap returns fetch with CompileCode served from the cache first. Results
// of fetch are added to the cache; failures are not.
func (c *Cache) Wrap(fetch graph.CheckFunction) graph.CheckFunction {
	return &Cached{CheckFunction: fetch, cache: c}
}

// Cached is a CheckFunction whose compiles go through a Cache.
type Cached struct {
	graph.CheckFunction
	cache *Cache
}

func (f *Cached) CompileCode(item link.CodeItem) (string, error) {
	data, err := serialization.Canonical(item)
	if err != nil {
		return "", fmt.Errorf("encode code item: %w", err)
	}
	key := serialization.Fingerprint(string(data))
	if js, ok := f.cache.entries.Get(key); ok {
		f.cache.metrics.IncCacheHit()
		return js, nil
	}
	f.cache.metrics.IncCacheMiss()

	js, err := f.CheckFunction.CompileCode(item)
	if err != nil {
		return "", err
	}
	f.cache.entries.Add(key, js)
	return js, nil
}
