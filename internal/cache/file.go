package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileCache keeps the blob in a single file on local disk.
type FileCache struct {
	mu   sync.Mutex
	path string
}

// NewFileCache returns a cache backed by path. Parent directories are created on first write.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Path returns the file location.
func (c *FileCache) Path() string { return c.path }

func (c *FileCache) Backend() string { return "file" }

func (c *FileCache) Read(_ context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read cache file: %w", err)
	}
	return string(b), nil
}

func (c *FileCache) Write(_ context.Context, content string, appending bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if appending {
		return c.appendLocked(content)
	}
	return c.replaceLocked(content)
}

func (c *FileCache) Clear(ctx context.Context) error {
	return c.Write(ctx, "", false)
}

func (c *FileCache) appendLocked(content string) error {
	f, err := os.OpenFile(c.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open cache file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("append cache file: %w", err)
	}
	return f.Close()
}

// replaceLocked writes to a sibling temp file and renames it over the blob so
// readers never observe a truncated file.
func (c *FileCache) replaceLocked(content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}
