package ziva

import (
	"context"
	"net/http"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/ziva-sdk/internal/endpoint"
	"github.com/Checker-Finance/ziva-sdk/internal/events"
	"github.com/Checker-Finance/ziva-sdk/internal/httpclient"
	"github.com/Checker-Finance/ziva-sdk/internal/rate"
	"github.com/Checker-Finance/ziva-sdk/internal/transport"
)

// Transport runs requests asynchronously and reports exactly one completion per request.
type Transport interface {
	Enqueue(ctx context.Context, req endpoint.Request, p httpclient.Policy, onSuccess transport.SuccessFunc, onError transport.ErrorFunc) string
}

// Option configures a Client.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	cache      Cache
	httpClient *http.Client
	policy     httpclient.Policy
	workers    int
	rateLimit  *rate.Config
	notifier   events.Notifier
	demo       bool
	transport  Transport
	nc         *nats.Conn
	closers    []func() error
}

func defaultOptions() options {
	return options{
		logger:  zap.NewNop(),
		policy:  httpclient.DefaultPolicy(),
		workers: 4,
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCache sets the credential cache. Defaults to an in-memory cache.
func WithCache(c Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithHTTPClient sets the HTTP client used by the built-in transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithPolicy overrides the retry policy applied to every request.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithWorkers bounds concurrent requests in the built-in transport.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRateLimit enables a per-host token bucket.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) { o.rateLimit = &rate.Config{RequestsPerSecond: rps, Burst: burst} }
}

// WithNotifier publishes credential lifecycle events.
func WithNotifier(n events.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithDemoMode makes every resource call use the demo access token.
func WithDemoMode(on bool) Option {
	return func(o *options) { o.demo = on }
}

// WithTransport replaces the built-in queue. The client does not close it.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// withCloser registers a resource released by Client.Close.
func withCloser(fn func() error) Option {
	return func(o *options) { o.closers = append(o.closers, fn) }
}

func withNATS(nc *nats.Conn) Option {
	return func(o *options) { o.nc = nc }
}
