package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryCache is a bounded in-process cache. It does not persist across runs.
type MemoryCache struct {
	m *lru.Cache[TileCacheKey, TileCacheValue]
}

var _ TileCache = (*MemoryCache)(nil)

func NewMemoryCache(size int) (*MemoryCache, error) {
	m, err := lru.New[TileCacheKey, TileCacheValue](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru: %w", err)
	}
	return &MemoryCache{m: m}, nil
}

func (c *MemoryCache) Get(_ context.Context, k TileCacheKey) (TileCacheValue, bool, error) {
	v, exists := c.m.Get(k)
	return v, exists, nil
}

func (c *MemoryCache) Set(_ context.Context, k TileCacheKey, v TileCacheValue) error {
	c.m.ContainsOrAdd(k, v)
	return nil
}

func (c *MemoryCache) Len() int {
	return c.m.Len()
}
