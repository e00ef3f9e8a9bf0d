package ziva

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/ziva-sdk/internal/cache"
	"github.com/Checker-Finance/ziva-sdk/internal/endpoint"
	"github.com/Checker-Finance/ziva-sdk/internal/events"
	"github.com/Checker-Finance/ziva-sdk/internal/httpclient"
	"github.com/Checker-Finance/ziva-sdk/internal/transport"
	"github.com/Checker-Finance/ziva-sdk/pkg/config"
)

// result captures the single completion of one request.
type result struct {
	ok   bool
	resp Response
}

type waiter struct{ ch chan result }

func newWaiter() *waiter { return &waiter{ch: make(chan result, 2)} }

func (w *waiter) OnSuccess(r Response) { w.ch <- result{ok: true, resp: r} }
func (w *waiter) OnError(r Response)   { w.ch <- result{resp: r} }

func (w *waiter) wait(t *testing.T) result {
	t.Helper()
	select {
	case r := <-w.ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
		return result{}
	}
}

// zivaServer fakes both hosts on one listener.
type zivaServer struct {
	*httptest.Server
	mu       sync.Mutex
	bodies   map[string]string
	lastAuth string
}

func newZivaServer(t *testing.T) *zivaServer {
	t.Helper()
	s := &zivaServer{bodies: make(map[string]string)}
	mux := http.NewServeMux()
	record := func(r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.bodies[r.URL.Path] = string(b)
		s.mu.Unlock()
	}
	mux.HandleFunc("POST "+endpoint.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = w.Write([]byte(`{"access_token": "tokA", "expires_in": 3600}`))
	})
	mux.HandleFunc("POST "+endpoint.PathCreateUser, func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = w.Write([]byte(`{"specialToken":"sp1","clientId":"c1","clientUserId":"u1","clientUserName":"Ann","ziva_user_code":"z1"}`))
	})
	mux.HandleFunc("POST "+endpoint.PathSetUser, func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("DELETE /api/v1/app/{client}/users/{code}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = w.Write([]byte(`{"deleted":true}`))
	})
	mux.HandleFunc("GET "+endpoint.PathRefresh, func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if r.URL.Query().Get("client_secret") != "sec" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"refreshed"}`))
	})
	mux.HandleFunc("/api/v1/human/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		s.mu.Lock()
		s.lastAuth = r.URL.Query().Get("access_token")
		s.mu.Unlock()
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *zivaServer) body(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[path]
}

func (s *zivaServer) seen(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bodies[path]
	return ok
}

func (s *zivaServer) auth() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

func newTestClient(t *testing.T, srv *zivaServer, c cache.Cache, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithLogger(zap.NewNop()),
		WithCache(c),
		WithHTTPClient(srv.Client()),
		WithPolicy(Policy{Timeout: 2 * time.Second, MaxRetries: 1, BackoffMultiplier: 1}),
	}
	client := New(srv.URL, srv.URL, append(base, opts...)...)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// ─── Full lifecycle ───────────────────────────────────────────────────────────

func TestClient_Lifecycle(t *testing.T) {
	ctx := context.Background()
	srv := newZivaServer(t)
	mem := cache.NewMemoryCache()
	client := newTestClient(t, srv, mem)

	w := newWaiter()
	require.NoError(t, client.CreateUser(ctx, "c1", "sec", "u1", "Ann", w))
	r := w.wait(t)
	require.True(t, r.ok)
	assert.JSONEq(t, `{"clientId":"c1","clientSecret":"sec","clientUserId":"u1","clientUserName":"Ann"}`, srv.body(endpoint.PathCreateUser))

	// The hook completed before the callback fired.
	v, ok := client.Credential(ctx, SpecialToken)
	require.True(t, ok)
	assert.Equal(t, "sp1", v)
	v, _ = client.Credential(ctx, ClientSecret)
	assert.Equal(t, "sec", v)

	w = newWaiter()
	require.NoError(t, client.LoginStored(ctx, w))
	require.True(t, w.wait(t).ok)
	assert.JSONEq(t, `{"specialToken":"sp1","clientSecret":"sec"}`, srv.body(endpoint.PathLogin))
	assert.Equal(t, "tokA", client.AccessToken(ctx))

	blob, err := mem.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t,
		`{"clientSecret":"sec"}{"specialToken":"sp1","clientId":"c1","clientUserId":"u1","clientUserName":"Ann","ziva_user_code":"z1"}{"access_token":"tokA","expires_in":3600}`,
		blob)

	w = newWaiter()
	require.NoError(t, client.GetByDate(ctx, Steps, 1, time.Date(2015, 6, 22, 0, 0, 0, 0, time.UTC), w))
	r = w.wait(t)
	require.True(t, r.ok)
	assert.JSONEq(t, `{"path":"/api/v1/human/steps/daily/2015-06-22"}`, r.resp.Body)
	assert.Equal(t, "tokA", srv.auth())

	w = newWaiter()
	require.NoError(t, client.SetUser(ctx, "fitbit", "ft", "", w))
	require.True(t, w.wait(t).ok)
	assert.JSONEq(t, `{"clientId":"c1","clientSecret":"sec","clientUserId":"u1","dataSourceName":"fitbit","token":"ft"}`, srv.body(endpoint.PathSetUser))

	w = newWaiter()
	require.NoError(t, client.DeleteCurrentUser(ctx, w))
	require.True(t, w.wait(t).ok)
	assert.True(t, srv.seen("/api/v1/app/c1/users/z1"))

	for _, f := range []Field{AccessToken, ClientID, ClientSecret, ClientUserID, ClientUserName, SpecialToken, ZivaUserCode} {
		_, ok := client.Credential(ctx, f)
		assert.False(t, ok, f.String())
	}
	blob, err = mem.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, blob)
}

// ─── Resource calls ───────────────────────────────────────────────────────────

func TestClient_DemoModeToken(t *testing.T) {
	ctx := context.Background()
	srv := newZivaServer(t)
	mem := cache.NewMemoryCache()
	require.NoError(t, mem.Write(ctx, `{"access_token":"stored"}`, false))
	client := newTestClient(t, srv, mem, WithDemoMode(true))

	w := newWaiter()
	require.NoError(t, client.GetAll(ctx, HeartRates, 1, w))
	require.True(t, w.wait(t).ok)
	assert.Equal(t, "demo", srv.auth())

	client.SetDemoMode(false)
	w = newWaiter()
	require.NoError(t, client.GetByCode(ctx, Meals, 1, "m1", w))
	r := w.wait(t)
	require.True(t, r.ok)
	assert.Equal(t, "stored", srv.auth(), "primed from the cache at construction")
	assert.JSONEq(t, `{"path":"/api/v1/human/meals/m1"}`, r.resp.Body)
}

func TestClient_PostBatch(t *testing.T) {
	ctx := context.Background()
	srv := newZivaServer(t)
	mem := cache.NewMemoryCache()
	require.NoError(t, mem.Write(ctx, `{"a":"b"}{"ziva_user_code":"z7"}{"access_token":"t7"}`, false))
	client := newTestClient(t, srv, mem)

	w := newWaiter()
	require.NoError(t, client.Post(ctx, Weights, 1, PostParams{
		Operation: OpInsert,
		Source:    "scale",
		Rows:      [][]any{{"2015-06-22", "71.5", "UTC"}},
	}, w))
	require.True(t, w.wait(t).ok)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(srv.body("/api/v1/human/weights")), &got))
	assert.Equal(t, "insert", got["op"])
	assert.Equal(t, []any{map[string]any{
		"user_code": "z7", "source": "scale", "date": "2015-06-22", "weight": "71.5", "timezone": "UTC",
	}}, got["data"])
	assert.Equal(t, "t7", srv.auth())
}

func TestClient_GetByPeriod(t *testing.T) {
	ctx := context.Background()
	srv := newZivaServer(t)
	client := newTestClient(t, srv, cache.NewMemoryCache())

	start := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	w := newWaiter()
	require.NoError(t, client.GetByPeriod(ctx, Sleeps, 1, start, start.AddDate(0, 0, 6), w))
	r := w.wait(t)
	require.True(t, r.ok)
	assert.JSONEq(t, `{"path":"/api/v1/human/sleeps/period/2015-06-01/2015-06-07"}`, r.resp.Body)
}

// ─── Errors ───────────────────────────────────────────────────────────────────

func TestClient_ContractViolationsReturnSynchronously(t *testing.T) {
	ctx := context.Background()
	calls := 0
	client := New("https://api", "https://mgmt", WithTransport(transportFunc(func() { calls++ })))

	assert.ErrorIs(t, client.GetAll(ctx, "moods", 1, newWaiter()), endpoint.ErrUnknownResource)
	assert.ErrorIs(t, client.GetAll(ctx, Steps, 0, newWaiter()), endpoint.ErrInvalidVersion)
	assert.ErrorIs(t, client.GetByCode(ctx, Steps, 1, "", newWaiter()), endpoint.ErrMissingSelector)
	assert.ErrorIs(t, client.GetAll(ctx, Steps, 1, nil), ErrNilCallback)
	assert.ErrorIs(t, client.LoginStored(ctx, newWaiter()), endpoint.ErrMissingArgument)
	assert.ErrorIs(t, client.DeleteUser(ctx, "c1", newWaiter()), endpoint.ErrMissingArgument, "no stored user code")
	assert.ErrorIs(t, client.SetUser(ctx, "fitbit", "ft", "", newWaiter()), ErrMissingArgument, "no stored client credentials")
	assert.Zero(t, calls, "nothing is enqueued on a contract violation")
}

func TestClient_HTTPErrorSkipsHook(t *testing.T) {
	ctx := context.Background()
	srv := newZivaServer(t)
	mem := cache.NewMemoryCache()
	client := newTestClient(t, srv, mem)

	w := newWaiter()
	require.NoError(t, client.RefreshToken(ctx, "c1", "wrong", w))
	r := w.wait(t)
	assert.False(t, r.ok)
	assert.Equal(t, http.StatusUnauthorized, r.resp.StatusCode)
	assert.JSONEq(t, `{"error":"invalid_client"}`, r.resp.Body)

	w = newWaiter()
	require.NoError(t, client.RefreshToken(ctx, "c1", "sec", w))
	r = w.wait(t)
	require.True(t, r.ok)
	assert.Empty(t, client.AccessToken(ctx), "refresh passes the response through without persisting")
	_, err := mem.Read(ctx)
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	client := New(addr, addr, WithPolicy(Policy{Timeout: time.Second}))
	t.Cleanup(func() { _ = client.Close() })

	w := newWaiter()
	require.NoError(t, client.Login(context.Background(), "sec", "sp", w))
	r := w.wait(t)
	assert.False(t, r.ok)
	assert.Equal(t, -1, r.resp.StatusCode)
	assert.NotEmpty(t, r.resp.Body)
	assert.Empty(t, client.AccessToken(context.Background()))
}

// ─── Events, secrets, debug ───────────────────────────────────────────────────

type captureNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *captureNotifier) Notify(_ context.Context, ev events.Event) error {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return nil
}

func TestClient_EmitsLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	srv := newZivaServer(t)
	n := &captureNotifier{}
	client := newTestClient(t, srv, cache.NewMemoryCache(), WithNotifier(n))

	w := newWaiter()
	require.NoError(t, client.Login(ctx, "sec", "sp", w))
	w.wait(t)
	w = newWaiter()
	require.NoError(t, client.GetAll(ctx, Steps, 1, w))
	w.wait(t)

	n.mu.Lock()
	defer n.mu.Unlock()
	require.Len(t, n.events, 1)
	assert.Equal(t, events.TypeCredentialsUpdated, n.events[0].Type)
	assert.Equal(t, "login", n.events[0].Operation)
}

type fakeProvider map[string]map[string]string

func (f fakeProvider) GetSecret(_ context.Context, key string) (map[string]string, error) {
	v, ok := f[key]
	if !ok {
		return nil, assert.AnError
	}
	return v, nil
}

func TestClient_SeedFromSecrets(t *testing.T) {
	ctx := context.Background()
	client := New("https://api", "https://mgmt")
	t.Cleanup(func() { _ = client.Close() })

	p := fakeProvider{"ziva/dev": {"clientId": "c9", "clientSecret": "s9", "region": "ignored"}}
	require.NoError(t, client.SeedFromSecrets(ctx, p, "ziva/dev"))

	v, _ := client.Credential(ctx, ClientID)
	assert.Equal(t, "c9", v)
	v, _ = client.Credential(ctx, ClientSecret)
	assert.Equal(t, "s9", v)

	assert.Error(t, client.SeedFromSecrets(ctx, p, "missing"))
}

func TestClient_DebugString(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache()
	require.NoError(t, mem.Write(ctx, `{"clientSecret":"topsecret"}{"clientId":"c1"}`, false))
	client := New("https://api", "https://mgmt", WithCache(mem))
	t.Cleanup(func() { _ = client.Close() })

	out := client.DebugString(ctx)
	assert.Contains(t, out, "clientId: c1")
	assert.Contains(t, out, "clientSecret: tops****")
	assert.NotContains(t, out, "topsecret")
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	client := New("https://api", "https://mgmt")
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
}

func TestClient_HealthCheck(t *testing.T) {
	ctx := context.Background()
	client := New("https://api", "https://mgmt")
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, client.HealthCheck(ctx), "an unwritten cache is healthy")
	assert.Nil(t, client.NATS())

	broken := New("https://api", "https://mgmt", WithCache(failingCache{}))
	t.Cleanup(func() { _ = broken.Close() })
	err := broken.HealthCheck(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken cache")
}

func TestNewFromConfig_InvalidConfig(t *testing.T) {
	_, err := NewFromConfig(context.Background(), &config.Config{CacheBackend: "s3"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ZIVA_API_URL is required")
	assert.Contains(t, err.Error(), "unknown CACHE_BACKEND")
}

func TestNewFromConfig_MemoryBackend(t *testing.T) {
	cfg := &config.Config{
		ServiceName:    "zivactl-test",
		ManagementURL:  "https://mgmt",
		APIURL:         "https://api",
		DemoMode:       true,
		CacheBackend:   config.CacheMemory,
		RequestTimeout: time.Second,
		Workers:        2,
		RateLimitRPS:   5,
		RateLimitBurst: 5,
	}
	client, err := NewFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, "demo", client.AccessToken(context.Background()))
	assert.Nil(t, client.NATS())
}

// failingCache errors on every operation.
type failingCache struct{}

func (failingCache) Read(context.Context) (string, error)      { return "", errors.New("boom") }
func (failingCache) Write(context.Context, string, bool) error { return errors.New("boom") }
func (failingCache) Clear(context.Context) error               { return errors.New("boom") }
func (failingCache) Backend() string                           { return "broken" }

// transportFunc counts enqueues without running anything.
type transportFunc func()

func (f transportFunc) Enqueue(context.Context, endpoint.Request, httpclient.Policy, transport.SuccessFunc, transport.ErrorFunc) string {
	f()
	return "test"
}
