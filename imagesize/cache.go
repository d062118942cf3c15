package imagesize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores successful probe results by URL. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, url string) (Dimensions, bool)
	Set(ctx context.Context, url string, d Dimensions)
}

type memoryEntry struct {
	dims    Dimensions
	expires time.Time
}

// MemoryCache is an in-process Cache with a fixed TTL. Expired entries are
// dropped when read and swept from Set at most once per TTL.
type MemoryCache struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	ttl       time.Duration
	lastSweep time.Time
}

// NewMemoryCache creates a MemoryCache whose entries live for ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), ttl: ttl, lastSweep: time.Now()}
}

func (c *MemoryCache) Get(_ context.Context, url string) (Dimensions, bool) {
	c.mu.RLock()
	e, ok := c.entries[url]
	c.mu.RUnlock()
	if !ok {
		return Dimensions{}, false
	}
	if time.Now().After(e.expires) {
		c.mu.Lock()
		if cur, ok := c.entries[url]; ok && cur.expires.Equal(e.expires) {
			delete(c.entries, url)
		}
		c.mu.Unlock()
		return Dimensions{}, false
	}
	return e.dims, true
}

func (c *MemoryCache) Set(_ context.Context, url string, d Dimensions) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Sub(c.lastSweep) >= c.ttl {
		for k, e := range c.entries {
			if now.After(e.expires) {
				delete(c.entries, k)
			}
		}
		c.lastSweep = now
	}
	c.entries[url] = memoryEntry{dims: d, expires: now.Add(c.ttl)}
}

// Len returns the number of entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

const redisKeyPrefix = "blog:imagesize:"

// RedisCache is a Cache shared between processes through Redis.
// Lookup errors are treated as misses; write errors are logged at debug level.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache connects to redisURL and verifies the connection. A nil
// logger means slog.Default().
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("imagesize: parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("imagesize: ping redis: %w", err)
	}
	return NewRedisCacheFromClient(client, ttl, logger), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, url string) (Dimensions, bool) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+url).Bytes()
	if err != nil {
		return Dimensions{}, false
	}
	var d Dimensions
	if err := json.Unmarshal(raw, &d); err != nil || !d.Valid() {
		return Dimensions{}, false
	}
	return d, true
}

func (c *RedisCache) Set(ctx context.Context, url string, d Dimensions) {
	data, err := json.Marshal(d)
	if err == nil {
		err = c.client.Set(ctx, redisKeyPrefix+url, data, c.ttl).Err()
	}
	if err != nil {
		c.logger.Debug("image size cache write failed", "url", url, "error", err)
	}
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	if err := c.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
