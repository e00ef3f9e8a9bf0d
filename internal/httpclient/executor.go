package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/ziva-sdk/internal/metrics"
	"github.com/Checker-Finance/ziva-sdk/internal/rate"
)

// StatusError is a completed exchange with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ziva returned %d: %s", e.StatusCode, Message(e.StatusCode, e.Body))
}

// Message returns body, or the status text when the body is empty.
func Message(status int, body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return http.StatusText(status)
	}
	return string(body)
}

// Result is a successful exchange.
type Result struct {
	StatusCode int
	Body       []byte
}

// Backoff returns the retry sleep duration for the given attempt number.
func Backoff(attempt int) time.Duration {
	switch attempt {
	case 0:
		return 100 * time.Millisecond
	case 1:
		return 250 * time.Millisecond
	default:
		return 500 * time.Millisecond
	}
}

// Executor handles rate-limited, retrying HTTP execution.
type Executor struct {
	logger  *zap.Logger
	rateMgr *rate.Manager
	http    *http.Client
}

// New creates an Executor. rateMgr may be nil to disable rate limiting.
func New(logger *zap.Logger, rateMgr *rate.Manager, httpClient *http.Client) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Executor{
		logger:  logger,
		rateMgr: rateMgr,
		http:    httpClient,
	}
}

// Do sends body to rawURL under policy p. Network failures and attempt
// timeouts are re-sent verbatim up to p.MaxRetries times. A 5xx is retried
// only for GET; any other non-2xx status is returned at once as *StatusError.
// The rate limiter is keyed by host and consulted before every attempt.
func (e *Executor) Do(ctx context.Context, method, rawURL string, body []byte, p Policy) (Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("parse url: %w", err)
	}
	host := u.Host
	start := time.Now()
	defer metrics.ObserveDuration(metrics.RequestDuration, start, host, method)

	var lastErr error
	attempts := p.attempts()
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			metrics.RetriesTotal.WithLabelValues(host).Inc()
			if err := sleep(ctx, Backoff(attempt-1)); err != nil {
				return Result{}, err
			}
		}
		if e.rateMgr != nil {
			if err := e.rateMgr.Wait(ctx, host); err != nil {
				return Result{}, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		status, respBody, err := e.attempt(ctx, method, u, body, p.AttemptTimeout(attempt))
		if err != nil {
			lastErr = err
			e.logger.Warn("ziva.http_failed",
				zap.String("method", method),
				zap.String("host", host),
				zap.String("path", u.Path),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		metrics.IncRequest(host, method, status)

		if status >= 500 {
			e.logger.Warn("ziva.server_error",
				zap.String("method", method),
				zap.String("host", host),
				zap.String("path", u.Path),
				zap.Int("status", status),
				zap.Int("attempt", attempt))
			lastErr = &StatusError{StatusCode: status, Body: respBody}
			if !retriesServerErrors(method) {
				return Result{}, lastErr
			}
			continue
		}
		if status < 200 || status >= 300 {
			return Result{}, &StatusError{StatusCode: status, Body: respBody}
		}

		e.logger.Debug("ziva.http_success",
			zap.String("method", method),
			zap.String("host", host),
			zap.String("path", u.Path),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)))
		return Result{StatusCode: status, Body: respBody}, nil
	}

	var se *StatusError
	if errors.As(lastErr, &se) {
		return Result{}, se
	}
	metrics.IncRequest(host, method, -1)
	return Result{}, fmt.Errorf("%s %s failed after %d attempts: %w", method, u.Path, attempts, lastErr)
}

// retriesServerErrors reports whether a 5xx may be re-sent. Writes may have
// been committed before the server failed.
func retriesServerErrors(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func (e *Executor) attempt(ctx context.Context, method string, u *url.URL, body []byte, timeout time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
