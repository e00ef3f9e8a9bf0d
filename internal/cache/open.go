package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend     string // file | redis | postgres | memory
	Path        string
	Key         string
	RedisAddr   string
	RedisPass   string
	RedisDB     int
	DatabaseURL string
}

// Open builds the configured backend. Backends holding connections also
// implement io.Closer.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		c   Cache
		err error
	)
	switch opts.Backend {
	case "", "file":
		c = NewFileCache(opts.Path)
	case "memory":
		c = NewMemoryCache()
	case "redis":
		c, err = DialRedis(ctx, opts.RedisAddr, opts.RedisPass, opts.RedisDB, opts.Key)
	case "postgres":
		c, err = DialPostgres(ctx, opts.DatabaseURL, opts.Key)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", opts.Backend, err)
	}

	logger.Info("cache.opened", zap.String("backend", c.Backend()))
	return c, nil
}
