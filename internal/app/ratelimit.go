/**
 * @description
 * Fixed-window counters backing both the HTTP rate-limit middleware and the login
 * brute-force guard. LimiterStore abstracts the counter backend: the Redis
 * implementation keeps limits consistent across replicas, while the in-memory
 * implementation serves single-instance deployments and tests. Both are fail-open
 * at the call sites; a counter backend outage must not take logins down with it.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: Distributed counters via an atomic Lua script.
 */

package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LimiterStore is a fixed-window counter. Increment bumps the counter for key,
// starting a new window of the given length if none is active, and reports the
// count plus the time remaining in the window. Peek reads without bumping.
type LimiterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, retryAfter time.Duration, err error)
	Peek(ctx context.Context, key string) (count int64, retryAfter time.Duration, err error)
	Reset(ctx context.Context, key string) error
}

// rateLimitScript increments the counter and stamps the window expiry in a single
// round trip, so concurrent requests cannot observe a counter without a TTL.
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisLimiterStore implements LimiterStore on Redis.
type RedisLimiterStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLimiterStore(client redis.UniversalClient, prefix string) *RedisLimiterStore {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "globepay:rate_limit"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &RedisLimiterStore{
		client: client,
		prefix: trimmedPrefix,
	}
}

func (r *RedisLimiterStore) key(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

func (r *RedisLimiterStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	rawResult, err := rateLimitScript.Run(ctx, r.client, []string{r.key(key)}, windowMs).Result()
	if err != nil {
		return 0, 0, err
	}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis limiter response shape: %T", rawResult)
	}

	count, ok := values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}

	ttlMs, ok := values[1].(int64)
	if !ok {
		return count, 0, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	return count, time.Duration(ttlMs) * time.Millisecond, nil
}

func (r *RedisLimiterStore) Peek(ctx context.Context, key string) (int64, time.Duration, error) {
	namespaced := r.key(key)

	pipe := r.client.Pipeline()
	getCmd := pipe.Get(ctx, namespaced)
	ttlCmd := pipe.PTTL(ctx, namespaced)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, 0, err
	}

	count, err := getCmd.Int64()
	if err == redis.Nil {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}

	ttl, err := ttlCmd.Result()
	if err != nil || ttl < 0 {
		ttl = 0
	}
	return count, ttl, nil
}

func (r *RedisLimiterStore) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

type memoryWindow struct {
	count     int64
	expiresAt time.Time
}

// MemoryLimiterStore is a process-local LimiterStore. Expired windows are dropped
// lazily on access.
type MemoryLimiterStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

func NewMemoryLimiterStore() *MemoryLimiterStore {
	return &MemoryLimiterStore{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

func (m *MemoryLimiterStore) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.windows[key]
	if !ok || !entry.expiresAt.After(now) {
		entry = &memoryWindow{expiresAt: now.Add(window)}
		m.windows[key] = entry
	}
	entry.count++
	return entry.count, entry.expiresAt.Sub(now), nil
}

func (m *MemoryLimiterStore) Peek(_ context.Context, key string) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.windows[key]
	if !ok || !entry.expiresAt.After(now) {
		delete(m.windows, key)
		return 0, 0, nil
	}
	return entry.count, entry.expiresAt.Sub(now), nil
}

func (m *MemoryLimiterStore) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, key)
	return nil
}
