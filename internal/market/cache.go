package market

import (
	"context"
	"sync"
	"time"

	redis "github.com/go-redis/redis/v8"

	"github.com/coinsift/coinsift/internal/config"
)

// Cache stores raw snapshot payloads between scans so back-to-back cycles do
// not hammer the provider.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

// NewCache selects the Redis adapter when an address is configured and falls
// back to the in-process cache otherwise.
func NewCache(cfg config.CacheConfig) Cache {
	if cfg.RedisAddr != "" {
		return NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	}
	return NewMemoryCache()
}

type memoryCache struct {
	mu sync.Mutex
	m  map[string]memoryEntry
}

type memoryEntry struct {
	b   []byte
	exp time.Time
}

// NewMemoryCache returns a process-local TTL cache.
func NewMemoryCache() Cache {
	return &memoryCache{m: make(map[string]memoryEntry)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
		return nil, false
	}
	return e.b, true
}

func (c *memoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memoryEntry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	c.m[key] = e
}

type redisCache struct {
	r *redis.Client
}

// NewRedisCache wraps an existing Redis client as a snapshot cache.
func NewRedisCache(r *redis.Client) Cache {
	return &redisCache{r: r}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	v, err := c.r.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return v, true
}

func (c *redisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	_ = c.r.Set(ctx, key, val, ttl).Err()
}
