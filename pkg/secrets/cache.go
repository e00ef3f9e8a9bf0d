package secrets

import (
	"context"
	"sync"
	"time"
)

type cacheItem[T any] struct {
	value      T
	expiration time.Time
}

// Cache is a simple thread-safe TTL cache for storing values in-memory.
type Cache[T any] struct {
	mu   sync.RWMutex
	data map[string]cacheItem[T]
	ttl  time.Duration
}

// NewCache creates a new TTL-based in-memory cache.
func NewCache[T any](defaultTTL time.Duration) *Cache[T] {
	return &Cache[T]{
		data: make(map[string]cacheItem[T]),
		ttl:  defaultTTL,
	}
}

// Get returns a cached value if present and not expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	item, ok := c.data[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(item.expiration) {
		var zero T
		return zero, false
	}
	return item.value, true
}

// Put inserts or overwrites a cache entry with TTL.
func (c *Cache[T]) Put(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheItem[T]{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// Bust deletes a single entry from the cache (e.g., on secret rotation).
func (c *Cache[T]) Bust(key string) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

// CachedProvider memoizes another Provider's secrets for a TTL, so repeated
// client construction in one process fetches each secret once.
type CachedProvider struct {
	next  Provider
	cache *Cache[map[string]string]
}

// NewCachedProvider wraps next with a TTL cache.
func NewCachedProvider(next Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, cache: NewCache[map[string]string](ttl)}
}

// GetSecret serves key from the cache, fetching it from the wrapped provider on a miss.
func (p *CachedProvider) GetSecret(ctx context.Context, key string) (map[string]string, error) {
	if v, ok := p.cache.Get(key); ok {
		return v, nil
	}
	v, err := p.next.GetSecret(ctx, key)
	if err != nil {
		return nil, err
	}
	p.cache.Put(key, v)
	return v, nil
}

// Invalidate drops key so the next GetSecret refetches it.
func (p *CachedProvider) Invalidate(key string) {
	p.cache.Bust(key)
}
