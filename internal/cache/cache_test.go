package cache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisCache(rdb, "ziva:test"), mr
}

// backends returns one fresh instance of every backend that runs without external services.
func backends(t *testing.T) map[string]Cache {
	t.Helper()
	rc, _ := newTestRedisCache(t)
	return map[string]Cache{
		"file":     NewFileCache(filepath.Join(t.TempDir(), "nested", "ziva_cache")),
		"memory":   NewMemoryCache(),
		"redis":    rc,
		"postgres": NewPostgresCache(newFakePG(), "ziva:test"),
	}
}

// ─── Contract shared by every backend ─────────────────────────────────────────

func TestCache_ReadBeforeWriteIsNotFound(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := c.Read(context.Background())
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestCache_OverwriteRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Write(ctx, `{"clientSecret":"old"}`, false))
			require.NoError(t, c.Write(ctx, `{"clientSecret":"s3cr3t"}`, false))

			got, err := c.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, `{"clientSecret":"s3cr3t"}`, got)
		})
	}
}

func TestCache_AppendKeepsWriteOrder(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Write(ctx, `{"a":"b"}`, false))
			require.NoError(t, c.Write(ctx, `{"access_token":"tok123"}`, true))

			got, err := c.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, `{"a":"b"}{"access_token":"tok123"}`, got)
		})
	}
}

func TestCache_AppendWithoutPriorWrite(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Write(ctx, `{"x":"y"}`, true))
			got, err := c.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, `{"x":"y"}`, got)
		})
	}
}

func TestCache_ClearLeavesEmptyBlob(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Write(ctx, `{"clientId":"c1"}`, false))
			require.NoError(t, c.Clear(ctx))

			got, err := c.Read(ctx)
			require.NoError(t, err, "a cleared cache has been written and must not report not-found")
			assert.Empty(t, got)
		})
	}
}

// ─── Backend specifics ────────────────────────────────────────────────────────

func TestFileCache_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	c := NewFileCache(filepath.Join(t.TempDir(), "ziva_cache"))
	require.NoError(t, c.Write(ctx, "", false))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Write(ctx, "{}", true)
		}()
	}
	wg.Wait()

	got, err := c.Read(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 40)
}

func TestRedisCache_UsesSingleKey(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t)

	require.NoError(t, c.Write(ctx, "one", false))
	require.NoError(t, c.Write(ctx, "two", true))

	raw, err := mr.Get("ziva:test")
	require.NoError(t, err)
	assert.Equal(t, "onetwo", raw)
	assert.Equal(t, "redis", c.Backend())
}

func TestRedisCache_ServerDown(t *testing.T) {
	c, mr := newTestRedisCache(t)
	mr.Close()

	_, err := c.Read(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestPostgresCache_EnsureSchema(t *testing.T) {
	pg := newFakePG()
	c := NewPostgresCache(pg, "k")
	require.NoError(t, c.EnsureSchema(context.Background()))
	require.NotEmpty(t, pg.execs)
	assert.Contains(t, pg.execs[0], "CREATE TABLE IF NOT EXISTS ziva_credential_cache")
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "s3"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown cache backend")
}

func TestOpen_FileAndMemory(t *testing.T) {
	c, err := Open(context.Background(), Options{Backend: "file", Path: filepath.Join(t.TempDir(), "c")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "file", c.Backend())

	c, err = Open(context.Background(), Options{Backend: "memory"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", c.Backend())
}

func TestOpen_RedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = Open(context.Background(), Options{Backend: "redis", RedisAddr: addr, Key: "k"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}
