package cache

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read when the cache has never been written.
var ErrNotFound = errors.New("cache: not found")

// Cache is the durable text blob credential state is persisted to.
//
// Writes either replace the blob or append raw text to it with no separator,
// so the blob may hold several concatenated JSON fragments.
type Cache interface {
	// Read returns the whole blob, or ErrNotFound if it was never written.
	Read(ctx context.Context) (string, error)
	// Write replaces the blob with content, or appends content when appending is true.
	Write(ctx context.Context, content string, appending bool) error
	// Clear replaces the blob with empty content.
	Clear(ctx context.Context) error
	// Backend names the implementation for logs and metrics.
	Backend() string
}
