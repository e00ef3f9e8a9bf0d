// Package ziva is the ZivaCare health-data client: it authenticates against the
// management host, persists the resulting credentials, and issues versioned
// per-resource calls against the API host. Every call returns once the request
// is enqueued; the outcome arrives later through exactly one Callback method.
package ziva

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/ziva-sdk/internal/cache"
	"github.com/Checker-Finance/ziva-sdk/internal/credentials"
	"github.com/Checker-Finance/ziva-sdk/internal/dispatch"
	"github.com/Checker-Finance/ziva-sdk/internal/endpoint"
	"github.com/Checker-Finance/ziva-sdk/internal/httpclient"
	"github.com/Checker-Finance/ziva-sdk/internal/rate"
	"github.com/Checker-Finance/ziva-sdk/internal/transport"
	"github.com/Checker-Finance/ziva-sdk/pkg/secrets"
)

// ErrNilCallback is returned when a call is made without a callback.
var ErrNilCallback = errors.New("ziva: nil callback")

// Client is the EndpointClient façade. It owns one credential record for its lifetime.
type Client struct {
	builder    *endpoint.Builder
	store      *credentials.Store
	transport  Transport
	dispatcher *dispatch.Dispatcher
	policy     httpclient.Policy
	nc         *nats.Conn
	logger     *zap.Logger

	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// New creates a client for the given API (resource) and management hosts and
// primes the access token from the cache.
func New(apiURL, managementURL string, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.cache == nil {
		o.cache = cache.NewMemoryCache()
	}

	c := &Client{
		builder:    endpoint.NewBuilder(apiURL, managementURL),
		store:      credentials.NewStore(credentials.NewRecord(o.demo), o.cache, o.logger),
		dispatcher: dispatch.New(o.logger, o.notifier),
		policy:     o.policy,
		nc:         o.nc,
		logger:     o.logger,
	}

	if o.transport != nil {
		c.transport = o.transport
	} else {
		var rateMgr *rate.Manager
		if o.rateLimit != nil {
			rateMgr = rate.NewManager(*o.rateLimit)
		}
		q := transport.NewQueue(httpclient.New(o.logger, rateMgr, o.httpClient), o.workers, o.logger)
		c.transport = q
		c.closers = append(c.closers, func() error { q.Close(); return nil })
	}
	c.closers = append(c.closers, o.closers...)

	c.store.Prime(context.Background())
	c.logger.Info("ziva.client_ready",
		zap.String("api_url", c.builder.APIURL()),
		zap.String("management_url", c.builder.ManagementURL()),
		zap.String("cache", o.cache.Backend()),
		zap.Bool("demo", o.demo))
	return c
}

// ─── Resource host ────────────────────────────────────────────────────────────

// Get fetches records of type t narrowed by sel.
func (c *Client) Get(ctx context.Context, t ResourceType, version int, sel Selector, cb Callback) error {
	if cb == nil {
		return ErrNilCallback
	}
	req, err := c.builder.Get(t, version, sel, c.store.AccessToken(ctx))
	if err != nil {
		return err
	}
	return c.send(ctx, dispatch.OpGet, req, nil, cb)
}

// GetAll fetches every record of type t.
func (c *Client) GetAll(ctx context.Context, t ResourceType, version int, cb Callback) error {
	return c.Get(ctx, t, version, endpoint.All(), cb)
}

// GetByCode fetches the record of type t with the given code.
func (c *Client) GetByCode(ctx context.Context, t ResourceType, version int, code string, cb Callback) error {
	return c.Get(ctx, t, version, endpoint.ByCode(code), cb)
}

// GetByDate fetches the records of type t for one day.
func (c *Client) GetByDate(ctx context.Context, t ResourceType, version int, day time.Time, cb Callback) error {
	return c.Get(ctx, t, version, endpoint.ByDate(day), cb)
}

// GetByPeriod fetches the records of type t between start and end.
func (c *Client) GetByPeriod(ctx context.Context, t ResourceType, version int, start, end time.Time, cb Callback) error {
	return c.Get(ctx, t, version, endpoint.ByPeriod(start, end), cb)
}

// Post inserts or updates a batch of rows for the current user.
func (c *Client) Post(ctx context.Context, t ResourceType, version int, p PostParams, cb Callback) error {
	if cb == nil {
		return ErrNilCallback
	}
	userCode, _ := c.store.Value(ctx, credentials.ZivaUserCode)
	req, err := c.builder.Post(t, version, p, userCode, c.store.AccessToken(ctx))
	if err != nil {
		return err
	}
	return c.send(ctx, dispatch.OpPost, req, nil, cb)
}

// ─── Management host ──────────────────────────────────────────────────────────

// Login exchanges the special token for an access token and persists it.
func (c *Client) Login(ctx context.Context, clientSecret, specialToken string, cb Callback) error {
	if cb == nil {
		return ErrNilCallback
	}
	req, err := c.builder.Login(clientSecret, specialToken)
	if err != nil {
		return err
	}
	return c.send(ctx, dispatch.OpLogin, req, c.store.PersistLogin, cb)
}

// LoginStored logs in with the stored client secret and special token.
func (c *Client) LoginStored(ctx context.Context, cb Callback) error {
	secret, _ := c.store.Value(ctx, credentials.ClientSecret)
	special, _ := c.store.Value(ctx, credentials.SpecialToken)
	return c.Login(ctx, secret, special, cb)
}

// CreateUser registers an application user. On success the cache restarts from
// clientSecret and the issued identifiers are stored.
func (c *Client) CreateUser(ctx context.Context, clientID, clientSecret, clientUserID, clientUserName string, cb Callback) error {
	if cb == nil {
		return ErrNilCallback
	}
	req, err := c.builder.CreateUser(clientID, clientSecret, clientUserID, clientUserName)
	if err != nil {
		return err
	}
	hook := func(ctx context.Context, body string) {
		c.store.PersistCreateUser(ctx, clientSecret, body)
	}
	return c.send(ctx, dispatch.OpCreateUser, req, hook, cb)
}

// CreateUserStored registers a user from the stored client identity.
func (c *Client) CreateUserStored(ctx context.Context, cb Callback) error {
	clientID, _ := c.store.Value(ctx, credentials.ClientID)
	secret, _ := c.store.Value(ctx, credentials.ClientSecret)
	userID, _ := c.store.Value(ctx, credentials.ClientUserID)
	userName, _ := c.store.Value(ctx, credentials.ClientUserName)
	return c.CreateUser(ctx, clientID, secret, userID, userName, cb)
}

// SetUser attaches a data-source token to the stored user. secret may be empty.
// The stored clientId and clientSecret must be set (by CreateUser, the cache or
// SeedFromSecrets); otherwise ErrMissingArgument is returned and nothing is sent.
func (c *Client) SetUser(ctx context.Context, dataSourceName, token, secret string, cb Callback) error {
	if cb == nil {
		return ErrNilCallback
	}
	clientID, _ := c.store.Value(ctx, credentials.ClientID)
	clientSecret, _ := c.store.Value(ctx, credentials.ClientSecret)
	userID, _ := c.store.Value(ctx, credentials.ClientUserID)
	req, err := c.builder.SetUser(endpoint.SetUserParams{
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		ClientUserID:   userID,
		DataSourceName: dataSourceName,
		Token:          token,
		Secret:         secret,
	})
	if err != nil {
		return err
	}
	return c.send(ctx, dispatch.OpSetUser, req, c.store.PersistSetUser, cb)
}

// DeleteUser deletes the stored user from the clientID application. On success
// the cache is emptied and every credential unset.
func (c *Client) DeleteUser(ctx context.Context, clientID string, cb Callback) error {
	if cb == nil {
		return ErrNilCallback
	}
	userCode, _ := c.store.Value(ctx, credentials.ZivaUserCode)
	req, err := c.builder.DeleteUser(clientID, userCode)
	if err != nil {
		return err
	}
	hook := func(ctx context.Context, _ string) { c.store.Reset(ctx) }
	return c.send(ctx, dispatch.OpDeleteUser, req, hook, cb)
}

// DeleteCurrentUser deletes the stored user from the stored client application.
func (c *Client) DeleteCurrentUser(ctx context.Context, cb Callback) error {
	clientID, _ := c.store.Value(ctx, credentials.ClientID)
	return c.DeleteUser(ctx, clientID, cb)
}

// RefreshToken requests a new access token. The response is passed through
// unchanged and nothing is persisted.
func (c *Client) RefreshToken(ctx context.Context, clientID, clientSecret string, cb Callback) error {
	if cb == nil {
		return ErrNilCallback
	}
	req, err := c.builder.RefreshToken(clientID, clientSecret)
	if err != nil {
		return err
	}
	return c.send(ctx, dispatch.OpRefreshToken, req, nil, cb)
}

// RefreshStoredToken refreshes with the stored client identity.
func (c *Client) RefreshStoredToken(ctx context.Context, cb Callback) error {
	clientID, _ := c.store.Value(ctx, credentials.ClientID)
	secret, _ := c.store.Value(ctx, credentials.ClientSecret)
	return c.RefreshToken(ctx, clientID, secret, cb)
}

// ─── Credentials ──────────────────────────────────────────────────────────────

// Credential returns a stored field, backfilling it from the cache when unset.
func (c *Client) Credential(ctx context.Context, f Field) (string, bool) {
	return c.store.Value(ctx, f)
}

// AccessToken returns the token attached to resource calls.
func (c *Client) AccessToken(ctx context.Context) string {
	return c.store.AccessToken(ctx)
}

// SetDemoMode switches demo mode on or off.
func (c *Client) SetDemoMode(on bool) {
	c.store.Record().SetDemo(on)
}

// DebugString renders the credential state with secrets masked.
func (c *Client) DebugString(ctx context.Context) string {
	return c.store.Debug(ctx)
}

// HealthCheck reports whether the credential cache is reachable. A cache that
// was never written is healthy.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.store.Cache().Read(ctx)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return fmt.Errorf("%s cache: %w", c.store.Cache().Backend(), err)
	}
	return nil
}

// NATS returns the connection carrying lifecycle events, or nil when events
// are not published over NATS.
func (c *Client) NATS() *nats.Conn { return c.nc }

// SeedFromSecrets loads credential fields from a secrets provider. Keys use the
// API field names (clientId, clientSecret, ...); unknown keys are ignored.
func (c *Client) SeedFromSecrets(ctx context.Context, p secrets.Provider, key string) error {
	values, err := p.GetSecret(ctx, key)
	if err != nil {
		return fmt.Errorf("seed credentials: %w", err)
	}
	seed := make(map[credentials.Field]string, len(values))
	for k, v := range values {
		if f, ok := credentials.FieldByKey(k); ok {
			seed[f] = v
		}
	}
	c.store.Seed(seed)
	c.logger.Info("ziva.credentials_seeded", zap.String("secret", key), zap.Int("fields", len(seed)))
	return nil
}

// Close waits for in-flight requests and releases owned resources.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		for _, fn := range c.closers {
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

func (c *Client) send(ctx context.Context, op dispatch.Op, req endpoint.Request, hook dispatch.Hook, cb Callback) error {
	onSuccess, onError := c.dispatcher.Bind(ctx, op, hook, cb)
	id := c.transport.Enqueue(ctx, req, c.policy, onSuccess, onError)
	c.logger.Debug("ziva.request_dispatched",
		zap.String("request_id", id),
		zap.String("op", string(op)),
		zap.String("method", req.Method))
	return nil
}
