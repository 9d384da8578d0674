package store

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codebot_store_cache_hits_total",
		Help: "Lookups answered from the in-process entry cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codebot_store_cache_misses_total",
		Help: "Lookups that went to the backing store.",
	})
)

// CachedStore wraps a MediaStore with an expiring LRU of Get results.
// Put and Delete invalidate the code after the backing write, and a Get
// that raced any write does not fill the cache, so a lookup never returns a
// mapping older than the last write made through this process. Writes made
// by another process (the index CLI) are seen once the entry expires.
type CachedStore struct {
	MediaStore
	cache *expirable.LRU[string, MediaEntry]

	mu    sync.Mutex
	epoch uint64 // bumped by every write
}

// Cached wraps s with an LRU of at most size entries living ttl each.
// size <= 0 returns s unchanged.
func Cached(s MediaStore, size int, ttl time.Duration) MediaStore {
	if size <= 0 {
		return s
	}
	return &CachedStore{
		MediaStore: s,
		cache:      expirable.NewLRU[string, MediaEntry](size, nil, ttl),
	}
}

func (c *CachedStore) Get(ctx context.Context, code string) (*MediaEntry, error) {
	if e, ok := c.cache.Get(code); ok {
		cacheHitsTotal.Inc()
		return &e, nil
	}
	cacheMissesTotal.Inc()

	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	e, err := c.MediaStore.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.epoch == epoch {
		c.cache.Add(code, *e)
	}
	c.mu.Unlock()
	return e, nil
}

func (c *CachedStore) Put(ctx context.Context, code string, sourceMessageID int, caption string) error {
	defer c.invalidate(code)
	return c.MediaStore.Put(ctx, code, sourceMessageID, caption)
}

func (c *CachedStore) Delete(ctx context.Context, code string) (bool, error) {
	defer c.invalidate(code)
	return c.MediaStore.Delete(ctx, code)
}

// invalidate runs after a write, failed or not: a failed write may still
// have committed.
func (c *CachedStore) invalidate(code string) {
	c.mu.Lock()
	c.epoch++
	c.cache.Remove(code)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *CachedStore) Len() int {
	return c.cache.Len()
}
