package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore mirrors a worker's cooldown_until into a shared store
// so that multiple gateway instances observe the same cooldowns for a
// worker backed by a single physical credential (§5 "Shared resources:
// Credential store... mutated... by cooldown writes"). The in-process
// Worker.health remains authoritative for SelectAvailable; the store is
// an optional cross-instance mirror, not a read path.
type CooldownStore interface {
	Set(ctx context.Context, workerID string, until time.Time)
	Clear(ctx context.Context, workerID string)
}

// noopCooldownStore is used when no distributed store is configured.
type noopCooldownStore struct{}

func (noopCooldownStore) Set(context.Context, string, time.Time) {}
func (noopCooldownStore) Clear(context.Context, string)           {}

// RedisCooldownStore mirrors cooldowns into Redis, modeled on the
// teacher's RedisCache (agent/cache_redis.go): a UniversalClient plus a
// key prefix, so the same code works against a single node, a
// cluster, or (in tests) a github.com/alicebob/miniredis/v2 instance.
type RedisCooldownStore struct {
	client redis.UniversalClient
	prefix string
	logger func(format string, args ...any)
}

// NewRedisCooldownStore wraps an already-constructed redis client.
// Construction (address, pool sizing, TLS) is left to the caller,
// matching the teacher's pattern of accepting options structs rather
// than hiding client configuration behind this package.
func NewRedisCooldownStore(client redis.UniversalClient, keyPrefix string) *RedisCooldownStore {
	if keyPrefix == "" {
		keyPrefix = "llmgateway"
	}
	return &RedisCooldownStore{client: client, prefix: keyPrefix}
}

func (s *RedisCooldownStore) key(workerID string) string {
	return fmt.Sprintf("%s:cooldown:%s", s.prefix, workerID)
}

// Set mirrors a cooldown deadline with a TTL matching the remaining
// cooldown window, so stale entries expire on their own.
func (s *RedisCooldownStore) Set(ctx context.Context, workerID string, until time.Time) {
	ttl := time.Until(until)
	if ttl <= 0 {
		return
	}
	_ = s.client.Set(ctx, s.key(workerID), until.Unix(), ttl).Err()
}

// Clear removes any mirrored cooldown for a worker (on MarkSuccess).
func (s *RedisCooldownStore) Clear(ctx context.Context, workerID string) {
	_ = s.client.Del(ctx, s.key(workerID)).Err()
}
