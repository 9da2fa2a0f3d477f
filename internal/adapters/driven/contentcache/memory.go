// Package contentcache provides ContentCache adapters for resolving
// to-be-signed document content references.
package contentcache

import (
	"context"
	"sync"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

type contentEntry struct {
	content []byte
	ownerID string
}

// MemoryContentCache is an in-memory, owner-scoped content cache.
type MemoryContentCache struct {
	mu      sync.RWMutex
	entries map[string]contentEntry
}

// NewMemoryContentCache creates an empty content cache.
func NewMemoryContentCache() *MemoryContentCache {
	return &MemoryContentCache{entries: make(map[string]contentEntry)}
}

// Put stores content under reference, scoped to ownerID.
func (c *MemoryContentCache) Put(reference string, content []byte, ownerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[reference] = contentEntry{content: content, ownerID: ownerID}
}

// Get returns the content stored under reference.
func (c *MemoryContentCache) Get(ctx context.Context, reference string, ownerID string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[reference]
	if !ok {
		return nil, ports.ErrContentNotFound
	}
	if entry.ownerID != ownerID {
		return nil, ports.ErrContentAccessDenied
	}
	return entry.content, nil
}

// Ensure MemoryContentCache implements ports.ContentCache
var _ ports.ContentCache = (*MemoryContentCache)(nil)
