package canopy

import (
	"sync"
)

// memCache is the first cache tier: a bounded map of decoded tiles keyed by
// cache key, evicting the entry with the oldest CachedAt. Eviction happens
// before insert so size <= max holds at all times.
type memCache struct {
	mu    sync.RWMutex
	max   int
	tiles map[string]*Tile
}

func newMemCache(max int) *memCache {
	if max < 1 {
		max = 1
	}
	return &memCache{max: max, tiles: make(map[string]*Tile, max)}
}

func (c *memCache) get(key string) (*Tile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tiles[key]
	return t, ok
}

func (c *memCache) put(key string, tile *Tile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tiles[key]; !exists {
		for len(c.tiles) >= c.max {
			oldestKey := ""
			for k, t := range c.tiles {
				if oldestKey == "" || t.CachedAt.Before(c.tiles[oldestKey].CachedAt) {
					oldestKey = k
				}
			}
			delete(c.tiles, oldestKey)
		}
	}
	c.tiles[key] = tile
}

func (c *memCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tiles)
}
