package statecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

// defaultKeyPrefix namespaces state keys in a shared Redis instance.
const defaultKeyPrefix = "signstate:"

// deniedMarker is returned by the consume script on an ownership mismatch.
// It cannot collide with a payload because payloads are JSON objects.
const deniedMarker = "DENIED"

// consumeScript atomically fetches a state record, checks its owner and,
// when consuming, deletes it. The record is "<owner>\n<json>"; the owner
// check must happen inside the script so that a denied fetch never
// consumes the state.
//
// KEYS[1] = state key, ARGV[1] = owner id, ARGV[2] = "1" to remove.
var consumeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
  return false
end
local sep = string.find(v, '\n', 1, true)
if not sep then
  return false
end
if string.sub(v, 1, sep - 1) ~= ARGV[1] then
  return 'DENIED'
end
if ARGV[2] == '1' then
  redis.call('DEL', KEYS[1])
end
return string.sub(v, sep + 1)
`)

// RedisStateCache is a Redis-backed state cache. Expiry is delegated to
// Redis key TTLs, so RemoveExpired is a no-op; consuming reads are atomic
// through a server-side script.
type RedisStateCache struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    *zap.Logger
}

// RedisOption configures a RedisStateCache.
type RedisOption func(*RedisStateCache)

// WithKeyPrefix overrides the key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(c *RedisStateCache) { c.keyPrefix = prefix }
}

// WithRedisLogger attaches a logger.
func WithRedisLogger(logger *zap.Logger) RedisOption {
	return func(c *RedisStateCache) { c.logger = logger }
}

// NewRedisStateCache creates a Redis-backed state cache.
func NewRedisStateCache(client redis.UniversalClient, opts ...RedisOption) *RedisStateCache {
	c := &RedisStateCache{
		client:    client,
		keyPrefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisStateCache) key(id string) string {
	return c.keyPrefix + id
}

// EncodeRecord builds the stored record for a state. Exposed for tests.
func EncodeRecord(state *domain.SessionState, ownerID string) (string, error) {
	if strings.Contains(ownerID, "\n") {
		return "", fmt.Errorf("owner id must not contain a newline")
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("marshal session state: %w", err)
	}
	return ownerID + "\n" + string(payload), nil
}

// Put stores state under id until expiresAt.
func (c *RedisStateCache) Put(ctx context.Context, id string, state *domain.SessionState, ownerID string, expiresAt time.Time) error {
	record, err := EncodeRecord(state, ownerID)
	if err != nil {
		return err
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("state expiry %s is in the past", expiresAt)
	}
	if err := c.client.Set(ctx, c.key(id), record, ttl).Err(); err != nil {
		return fmt.Errorf("store session state: %w", err)
	}
	return nil
}

// Get retrieves the state stored under id, consuming it when remove is
// true.
func (c *RedisStateCache) Get(ctx context.Context, id string, remove bool, ownerID string) (*domain.SessionState, error) {
	removeArg := "0"
	if remove {
		removeArg = "1"
	}
	res, err := consumeScript.Run(ctx, c.client, []string{c.key(id)}, ownerID, removeArg).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ports.ErrStateNotFound
		}
		return nil, fmt.Errorf("fetch session state: %w", err)
	}
	payload, ok := res.(string)
	if !ok {
		return nil, ports.ErrStateNotFound
	}
	if payload == deniedMarker {
		return nil, ports.ErrStateAccessDenied
	}

	var state domain.SessionState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		if c.logger != nil {
			c.logger.Error("corrupt session state record", zap.String("id", id), zap.Error(err))
		}
		return nil, ports.ErrStateNotFound
	}
	return &state, nil
}

// RemoveExpired is a no-op; Redis expires keys by TTL.
func (c *RedisStateCache) RemoveExpired(ctx context.Context) int {
	return 0
}

// Ensure RedisStateCache implements ports.StateCache
var _ ports.StateCache = (*RedisStateCache)(nil)
