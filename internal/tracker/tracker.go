// internal/tracker/tracker.go
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tracker records which mailbox message IDs have already been processed.
// MarkSeen returns true exactly once per ID: the first caller wins, every
// later call for the same ID gets false.
type Tracker interface {
	MarkSeen(ctx context.Context, id string) (bool, error)
}

// MemoryTracker is the reference in-memory seen set. It is safe for
// concurrent use and never evicts; entries live for the process lifetime.
type MemoryTracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{seen: make(map[string]struct{})}
}

func (t *MemoryTracker) MarkSeen(_ context.Context, id string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen[id]; ok {
		return false, nil
	}
	t.seen[id] = struct{}{}
	return true, nil
}

// Len reports the current size of the seen set.
func (t *MemoryTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

// RedisTracker is a Redis-backed seen set that survives restarts and ages
// entries out after the configured TTL, bounding memory growth.
type RedisTracker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisTracker(client *redis.Client, ttl time.Duration) *RedisTracker {
	return &RedisTracker{
		client: client,
		prefix: "seen:",
		ttl:    ttl,
	}
}

func (t *RedisTracker) MarkSeen(ctx context.Context, id string) (bool, error) {
	// SETNX gives the first-caller-wins semantics atomically.
	return t.client.SetNX(ctx, t.prefix+id, 1, t.ttl).Result()
}
