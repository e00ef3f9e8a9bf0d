package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGExecutor is the subset of pgxpool.Pool the Postgres cache needs.
type PGExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS ziva_credential_cache (
			cache_key  TEXT PRIMARY KEY,
			blob       TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`

	selectBlobSQL = `SELECT blob FROM ziva_credential_cache WHERE cache_key = $1;`

	replaceBlobSQL = `
		INSERT INTO ziva_credential_cache (cache_key, blob, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (cache_key)
		DO UPDATE SET blob = EXCLUDED.blob, updated_at = NOW();
	`

	appendBlobSQL = `
		INSERT INTO ziva_credential_cache (cache_key, blob, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (cache_key)
		DO UPDATE SET blob = ziva_credential_cache.blob || EXCLUDED.blob, updated_at = NOW();
	`
)

// PostgresCache keeps the blob in one row of ziva_credential_cache.
type PostgresCache struct {
	db   PGExecutor
	key  string
	pool *pgxpool.Pool
}

// NewPostgresCache wraps an executor; the caller owns its lifecycle.
func NewPostgresCache(db PGExecutor, key string) *PostgresCache {
	return &PostgresCache{db: db, key: key}
}

// DialPostgres opens a small pool against dsn and makes sure the table exists.
func DialPostgres(ctx context.Context, dsn, key string) (*PostgresCache, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid pg config: %w", err)
	}
	cfg.MaxConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	c := &PostgresCache{db: pool, key: key, pool: pool}
	if err := c.EnsureSchema(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

// EnsureSchema creates the cache table if it is missing.
func (c *PostgresCache) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create cache table: %w", err)
	}
	return nil
}

func (c *PostgresCache) Backend() string { return "postgres" }

func (c *PostgresCache) Read(ctx context.Context) (string, error) {
	var blob string
	err := c.db.QueryRow(ctx, selectBlobSQL, c.key).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("pg read cache %s: %w", c.key, err)
	}
	return blob, nil
}

func (c *PostgresCache) Write(ctx context.Context, content string, appending bool) error {
	query := replaceBlobSQL
	if appending {
		query = appendBlobSQL
	}
	if _, err := c.db.Exec(ctx, query, c.key, content); err != nil {
		return fmt.Errorf("pg write cache %s: %w", c.key, err)
	}
	return nil
}

func (c *PostgresCache) Clear(ctx context.Context) error {
	return c.Write(ctx, "", false)
}

// Close releases the pool when the cache opened it itself.
func (c *PostgresCache) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}
