package credentials

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Checker-Finance/ziva-sdk/internal/cache"
	"github.com/Checker-Finance/ziva-sdk/internal/metrics"
	"github.com/Checker-Finance/ziva-sdk/pkg/utils"
)

// Store couples the authoritative Record with its durable cache.
//
// Every cache access and every multi-step persistence runs under one mutex, so
// a lazy backfill never reads a blob while a response hook is halfway through
// rewriting it. Cache failures are logged and absorbed; they surface later as
// unset fields.
type Store struct {
	mu     sync.Mutex
	record *Record
	cache  cache.Cache
	logger *zap.Logger
}

// NewStore builds a store around record and c.
func NewStore(record *Record, c cache.Cache, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		record: record,
		cache:  c,
		logger: logger,
	}
}

// Record exposes the underlying record.
func (s *Store) Record() *Record { return s.record }

// Cache exposes the underlying cache.
func (s *Store) Cache() cache.Cache { return s.cache }

// Prime loads the access token from a non-empty cache. Called once at start-up.
func (s *Store) Prime(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, ok := s.readLocked(ctx)
	if !ok || strings.TrimSpace(blob) == "" {
		return
	}
	s.applyLocked(blob, AccessToken)
}

// Value returns f from the record, backfilling it from the cache when unset.
// A field the cache does not hold either stays unset and is retried on the next call.
func (s *Store) Value(ctx context.Context, f Field) (string, bool) {
	if v, ok := s.record.Get(f); ok {
		return v, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.record.Get(f); ok {
		return v, true
	}
	blob, ok := s.readLocked(ctx)
	if !ok {
		return "", false
	}
	s.applyLocked(blob, f)
	return s.record.Get(f)
}

// AccessToken returns the token to attach to resource calls. Demo mode always
// yields DemoToken; an unknown token yields "".
func (s *Store) AccessToken(ctx context.Context) string {
	if s.record.Demo() {
		return DemoToken
	}
	v, _ := s.Value(ctx, AccessToken)
	return v
}

// Seed sets record fields from an external source without touching the cache.
func (s *Store) Seed(values map[Field]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for f, v := range values {
		s.record.Set(f, v)
	}
}

// Apply extracts fields from text into the record and returns those found.
func (s *Store) Apply(text string, fields ...Field) []Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(text, fields...)
}

// PersistLogin stores the access token from a login response and appends the response to the cache.
func (s *Store) PersistLogin(ctx context.Context, body string) {
	body = compact(body)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyLocked(body, AccessToken)
	s.writeLocked(ctx, body, true)
}

// PersistCreateUser restarts the cache with the caller-supplied client secret,
// then stores the identifiers issued in the create-user response.
func (s *Store) PersistCreateUser(ctx context.Context, clientSecret, body string) {
	body = compact(body)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.record.Set(ClientSecret, clientSecret)
	fragment, err := json.MarshalNoEscape(map[string]string{ClientSecret.Key(): clientSecret})
	if err != nil {
		s.logger.Warn("credentials.encode_secret_failed", zap.Error(err))
	} else {
		s.writeLocked(ctx, string(fragment), false)
	}

	s.applyLocked(body, SpecialToken, ClientID, ClientUserID, ClientUserName)
	s.writeLocked(ctx, body, true)
}

// PersistSetUser appends a set-user response to the cache.
func (s *Store) PersistSetUser(ctx context.Context, body string) {
	body = compact(body)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeLocked(ctx, body, true)
}

// Reset empties the cache and unsets every record field. The record is
// cleaned even when the cache write fails.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cache.Clear(ctx); err != nil {
		metrics.IncCacheError(s.cache.Backend(), "clear")
		s.logger.Warn("cache.clear_failed",
			zap.String("backend", s.cache.Backend()),
			zap.Error(err))
	}
	s.record.Clean()
}

// Debug renders every field (secrets masked) and the cache size.
func (s *Store) Debug(ctx context.Context) string {
	var b strings.Builder
	b.WriteString("ZivaCare credentials:")
	fmt.Fprintf(&b, "\n demo: %t", s.record.Demo())
	for _, f := range Fields {
		v, ok := s.Value(ctx, f)
		switch {
		case !ok:
			v = "<unset>"
		case f.Sensitive():
			v = utils.MaskSecret(v)
		}
		fmt.Fprintf(&b, "\n %s: %s", f.Key(), v)
	}

	s.mu.Lock()
	blob, ok := s.readLocked(ctx)
	s.mu.Unlock()
	if ok {
		fmt.Fprintf(&b, "\n cache (%s): %d bytes", s.cache.Backend(), len(blob))
	} else {
		fmt.Fprintf(&b, "\n cache (%s): <empty>", s.cache.Backend())
	}
	return b.String()
}

func (s *Store) applyLocked(text string, fields ...Field) []Field {
	var found []Field
	for _, f := range fields {
		m, ok := Extract(text, f)
		if !ok {
			metrics.IncExtraction(f.Key(), "none")
			s.logger.Debug("credentials.extract_miss", zap.String("field", f.Key()))
			continue
		}
		s.record.Set(f, m.Value)
		metrics.IncExtraction(f.Key(), m.Via.String())
		found = append(found, f)
	}
	return found
}

func (s *Store) readLocked(ctx context.Context) (string, bool) {
	blob, err := s.cache.Read(ctx)
	if errors.Is(err, cache.ErrNotFound) {
		return "", false
	}
	if err != nil {
		metrics.IncCacheError(s.cache.Backend(), "read")
		s.logger.Warn("cache.read_failed",
			zap.String("backend", s.cache.Backend()),
			zap.Error(err))
		return "", false
	}
	return blob, true
}

func (s *Store) writeLocked(ctx context.Context, content string, appending bool) {
	if err := s.cache.Write(ctx, content, appending); err != nil {
		metrics.IncCacheError(s.cache.Backend(), "write")
		s.logger.Warn("cache.write_failed",
			zap.String("backend", s.cache.Backend()),
			zap.Bool("append", appending),
			zap.Error(err))
	}
}

// compact strips insignificant whitespace from a JSON body so every cached
// fragment has the `"key":"value"` shape the fallback scan expects. Non-JSON
// bodies are kept verbatim.
func compact(body string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(body)); err != nil {
		return body
	}
	return buf.String()
}
