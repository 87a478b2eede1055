package recents

import (
	"context"
	"sync"
)

// MemoryCache is an in-memory Cache for tests and cache-less deployments.
type MemoryCache struct {
	mu      sync.RWMutex
	records map[string][]Record
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		records: make(map[string][]Record),
	}
}

// Load returns a copy of the cached records for the identity.
func (c *MemoryCache) Load(_ context.Context, identity string) ([]Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stored := c.records[identity]
	copied := make([]Record, len(stored))
	copy(copied, stored)
	return copied, nil
}

// Save replaces the cached records for the identity.
func (c *MemoryCache) Save(_ context.Context, identity string, records []Record) error {
	copied := make([]Record, len(records))
	copy(copied, records)

	c.mu.Lock()
	c.records[identity] = copied
	c.mu.Unlock()
	return nil
}

// Clear removes all cached records for the identity.
func (c *MemoryCache) Clear(_ context.Context, identity string) error {
	c.mu.Lock()
	delete(c.records, identity)
	c.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory cache.
func (c *MemoryCache) Close() error {
	return nil
}
