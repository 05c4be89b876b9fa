package library

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultCacheTTL        = 5 * time.Minute
	defaultMemoryCacheSize = 512
	redisCachePrefix       = "movieshell:search:"
)

// MatchCache stores the entry names a search query matched. Only names are
// cached; items are rebuilt on every call so subtitle presence stays live.
type MatchCache interface {
	Get(ctx context.Context, key string) ([]string, bool, error)
	Set(ctx context.Context, key string, names []string, ttl time.Duration) error
}

type memoryEntry struct {
	names     []string
	expiresAt time.Time
}

// MemoryCache is a bounded in-process MatchCache.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = defaultMemoryCacheSize
	}
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return append([]string(nil), entry.names...), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, names []string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{
		names:     append([]string(nil), names...),
		expiresAt: now.Add(ttl),
	}
	c.trimLocked(now)
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// trimLocked drops expired entries, then the soonest-to-expire ones until
// the cache fits.
func (c *MemoryCache) trimLocked(now time.Time) {
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	for len(c.entries) > c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for key, entry := range c.entries {
			if oldestKey == "" || entry.expiresAt.Before(oldest) {
				oldestKey, oldest = key, entry.expiresAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

// RedisCache stores matches in Redis as JSON arrays.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]string, bool, error) {
	data, err := r.client.Get(ctx, redisCachePrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, false, err
	}
	return names, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, names []string, ttl time.Duration) error {
	if names == nil {
		names = []string{}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisCachePrefix+key, data, ttl).Err()
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
