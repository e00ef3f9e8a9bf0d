package transport

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/ziva-sdk/internal/endpoint"
	"github.com/Checker-Finance/ziva-sdk/internal/httpclient"
	"github.com/Checker-Finance/ziva-sdk/internal/metrics"
)

// StatusNetworkError is reported when no HTTP response was received.
const StatusNetworkError = -1

// ErrClosed is reported for requests enqueued after Close.
var ErrClosed = errors.New("transport: queue closed")

// SuccessFunc receives a 2xx status and the response body.
type SuccessFunc func(status int, body string)

// ErrorFunc receives a non-2xx status (or StatusNetworkError) and a message.
type ErrorFunc func(status int, message string)

// Doer executes one request with retries.
type Doer interface {
	Do(ctx context.Context, method, rawURL string, body []byte, p httpclient.Policy) (httpclient.Result, error)
}

// Queue runs requests asynchronously on a bounded set of goroutines. Every
// enqueued request completes with exactly one callback, never on the caller's
// goroutine. Completion order across requests is not defined.
type Queue struct {
	exec   Doer
	logger *zap.Logger
	sem    chan struct{}

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewQueue creates a queue running at most workers requests at once.
func NewQueue(exec Doer, workers int, logger *zap.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		exec:   exec,
		logger: logger,
		sem:    make(chan struct{}, workers),
	}
}

// Enqueue schedules req under policy p and returns its request ID immediately.
// Cancelling ctx after Enqueue returns does not abort the request.
func (q *Queue) Enqueue(ctx context.Context, req endpoint.Request, p httpclient.Policy, onSuccess SuccessFunc, onError ErrorFunc) string {
	id := uuid.NewString()

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		q.logger.Warn("ziva.request_rejected", zap.String("request_id", id), zap.Error(ErrClosed))
		go onError(StatusNetworkError, ErrClosed.Error())
		return id
	}
	q.wg.Add(1)
	q.mu.RUnlock()

	metrics.InFlight.Inc()
	q.logger.Debug("ziva.request_enqueued",
		zap.String("request_id", id),
		zap.String("method", req.Method),
		zap.String("path", pathOf(req.URL)))

	go func() {
		defer q.wg.Done()
		defer metrics.InFlight.Dec()

		q.sem <- struct{}{}
		defer func() { <-q.sem }()

		q.run(context.WithoutCancel(ctx), id, req, p, onSuccess, onError)
	}()
	return id
}

func (q *Queue) run(ctx context.Context, id string, req endpoint.Request, p httpclient.Policy, onSuccess SuccessFunc, onError ErrorFunc) {
	start := time.Now()

	var body []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			q.logger.Error("ziva.encode_failed", zap.String("request_id", id), zap.Error(err))
			onError(StatusNetworkError, err.Error())
			return
		}
		body = b
	}

	res, err := q.exec.Do(ctx, req.Method, req.FullURL(), body, p)
	if err != nil {
		status, msg := classify(err)
		q.logger.Info("ziva.request_failed",
			zap.String("request_id", id),
			zap.String("method", req.Method),
			zap.String("path", pathOf(req.URL)),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)))
		onError(status, msg)
		return
	}

	q.logger.Debug("ziva.request_completed",
		zap.String("request_id", id),
		zap.Int("status", res.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	onSuccess(res.StatusCode, string(res.Body))
}

// Close stops accepting requests and waits for in-flight ones to complete.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
}

// classify maps an executor error to the callback status and message.
func classify(err error) (int, string) {
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		return se.StatusCode, httpclient.Message(se.StatusCode, se.Body)
	}
	return StatusNetworkError, err.Error()
}

// pathOf keeps query strings (which carry tokens) out of logs.
func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}
