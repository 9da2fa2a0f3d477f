// Package statecache provides StateCache adapters for server-held session
// state: an in-memory cache and a Redis-backed cache.
package statecache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

type memoryEntry struct {
	state     *domain.SessionState
	ownerID   string
	expiresAt time.Time
}

// MemoryStateCache is an in-memory, owner-scoped state cache with expiry.
// Consuming reads are atomic per id: under concurrent Get(remove=true)
// calls for one id, at most one caller observes the state.
type MemoryStateCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
	logger  *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// MemoryOption configures a MemoryStateCache.
type MemoryOption func(*MemoryStateCache)

// WithClock overrides the cache's time source. Used in tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryStateCache) { c.now = now }
}

// WithLogger attaches a logger for sweep events.
func WithLogger(logger *zap.Logger) MemoryOption {
	return func(c *MemoryStateCache) { c.logger = logger }
}

// NewMemoryStateCache creates a new in-memory state cache.
func NewMemoryStateCache(opts ...MemoryOption) *MemoryStateCache {
	c := &MemoryStateCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewMemoryStateCacheWithSweeper creates an in-memory state cache that
// sweeps expired entries on the given interval. Call Close to stop the
// sweeper.
func NewMemoryStateCacheWithSweeper(interval time.Duration, opts ...MemoryOption) *MemoryStateCache {
	c := NewMemoryStateCache(opts...)
	c.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				removed := c.RemoveExpired(context.Background())
				if removed > 0 && c.logger != nil {
					c.logger.Debug("swept expired signature states", zap.Int("removed", removed))
				}
			case <-c.stop:
				return
			}
		}
	}()
	return c
}

// Close stops the background sweeper, if any.
func (c *MemoryStateCache) Close() {
	if c.stop != nil {
		c.stopOnce.Do(func() { close(c.stop) })
	}
}

// Put stores state under id until expiresAt.
func (c *MemoryStateCache) Put(ctx context.Context, id string, state *domain.SessionState, ownerID string, expiresAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = memoryEntry{state: state, ownerID: ownerID, expiresAt: expiresAt}
	return nil
}

// Get retrieves the state stored under id, consuming it when remove is
// true. An ownership mismatch returns ports.ErrStateAccessDenied without
// consuming the entry.
func (c *MemoryStateCache) Get(ctx context.Context, id string, remove bool, ownerID string) (*domain.SessionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil, ports.ErrStateNotFound
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, id)
		return nil, ports.ErrStateNotFound
	}
	if entry.ownerID != ownerID {
		return nil, ports.ErrStateAccessDenied
	}
	if remove {
		delete(c.entries, id)
	}
	return entry.state, nil
}

// RemoveExpired drops expired entries and returns how many were removed.
func (c *MemoryStateCache) RemoveExpired(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryStateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Ensure MemoryStateCache implements ports.StateCache
var _ ports.StateCache = (*MemoryStateCache)(nil)
