package cache

import (
	"context"
	"strings"
	"sync"
)

// MemoryCache is a process-local cache, used in demo mode and tests.
type MemoryCache struct {
	mu      sync.Mutex
	buf     strings.Builder
	written bool
}

// NewMemoryCache returns an empty, never-written cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Backend() string { return "memory" }

func (c *MemoryCache) Read(_ context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.written {
		return "", ErrNotFound
	}
	return c.buf.String(), nil
}

func (c *MemoryCache) Write(_ context.Context, content string, appending bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !appending {
		c.buf.Reset()
	}
	c.buf.WriteString(content)
	c.written = true
	return nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	return c.Write(ctx, "", false)
}
