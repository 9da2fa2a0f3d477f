package signintegration

import (
	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/contentcache"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/statecache"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

// Re-export cache interfaces from ports
type (
	StateCache   = ports.StateCache
	ContentCache = ports.ContentCache
)

// Re-export cache sentinel errors
var (
	ErrStateNotFound       = ports.ErrStateNotFound
	ErrStateAccessDenied   = ports.ErrStateAccessDenied
	ErrContentNotFound     = ports.ErrContentNotFound
	ErrContentAccessDenied = ports.ErrContentAccessDenied
)

// Re-export cache adapters
type (
	MemoryStateCache   = statecache.MemoryStateCache
	RedisStateCache    = statecache.RedisStateCache
	MemoryContentCache = contentcache.MemoryContentCache
)

var (
	NewMemoryStateCache            = statecache.NewMemoryStateCache
	NewMemoryStateCacheWithSweeper = statecache.NewMemoryStateCacheWithSweeper
	NewRedisStateCache             = statecache.NewRedisStateCache
	NewMemoryContentCache          = contentcache.NewMemoryContentCache
)
