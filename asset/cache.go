package asset

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of assets kept by a Cache created with a non-positive size.
const DefaultCacheSize = 64

// Cache is a read-through cache in front of a Store, keyed by image reference.
// Concurrent requests for the same missing reference share a single fetch.
// Cached byte slices are shared between callers and must not be modified.
// Failed fetches are not cached.
type Cache struct {
	store Store
	size  int

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string][]byte
	order   []string
}

// NewCache wraps store with a cache holding at most size entries.
// The oldest entry is evicted first once the cache is full.
func NewCache(store Store, size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{
		store:   store,
		size:    size,
		entries: make(map[string][]byte, size),
	}
}

// Fetch returns the cached bytes for ref or fetches them from the underlying store.
// The call returns early with ctx.Err() when the context is done before the fetch completes.
func (c *Cache) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if data, ok := c.get(ref); ok {
		return data, nil
	}

	ch := c.group.DoChan(ref, func() (interface{}, error) {
		if data, ok := c.get(ref); ok {
			return data, nil
		}
		// The shared fetch may outlive the caller which started it.
		data, err := c.store.Fetch(context.WithoutCancel(ctx), ref)
		if err != nil {
			return nil, err
		}
		c.put(ref, data)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

func (c *Cache) get(ref string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, ok := c.entries[ref]
	return data, ok
}

func (c *Cache) put(ref string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[ref]; ok {
		return
	}
	for len(c.order) >= c.size {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[ref] = data
	c.order = append(c.order, ref)
}
