package rpcclient

import (
	"bytes"
	"context"
	"errors"
	"io/ioutil"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/counter/counter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startService(t *testing.T, modify func(*counter.Config)) (*counter.Service, *Client) {
	cfg := counter.DefaultConfig
	cfg.Database = ""
	cfg.RPCPort = 0
	if modify != nil {
		modify(&cfg)
	}
	s, err := counter.New(cfg)
	require.NoError(t, err)
	c := New(s.RPCAddr())
	t.Cleanup(func() {
		assert.NoError(t, c.Close())
		// Fails if a request or an unused connection keeps the server from shutting down in time.
		assert.NoError(t, s.Close())
	})
	return s, c
}

func TestScenario(t *testing.T) {
	ctx := context.Background()
	_, c := startService(t, nil)

	cur, err := c.Incr(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), cur)

	resp, err := c.AtomicIncr(ctx, 5, 3)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(8), resp.Cur)

	resp, err = c.AtomicIncr(ctx, 5, 10)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, int64(8), resp.Cur)

	cur, err = c.Decr(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cur)

	dresp, err := c.AtomicDecr(ctx, 0, 2)
	require.NoError(t, err)
	assert.True(t, dresp.Success)
	assert.Equal(t, int64(-2), dresp.Cur)

	cur, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), cur)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), st.Value)
	assert.Equal(t, uint64(4), st.Revision)
	assert.Equal(t, "ok", st.Health)
	assert.Equal(t, "fail", st.Overflow)
	assert.NotEmpty(t, st.ReplicaID)
	assert.False(t, st.StartedAt.IsZero())
	assert.Equal(t, int64(1), st.Operations.CASFailed)

	v, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, counter.Version, v)
}

func TestConcurrentIncr(t *testing.T) {
	const goroutines = 100
	ctx := context.Background()
	_, c := startService(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Incr(ctx, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines), st.Value)
	assert.Equal(t, uint64(goroutines), st.Revision)
}

func TestCloseAfterConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	cfg := counter.DefaultConfig
	cfg.Database = ""
	cfg.RPCPort = 0
	cfg.RPCShutdownTimeout = 2 * time.Second
	s, err := counter.New(cfg)
	require.NoError(t, err)
	c := New(s.RPCAddr())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.NoError(t, c.Close())
	started := time.Now()
	assert.NoError(t, s.Close())
	assert.Less(t, int64(time.Since(started)), int64(cfg.RPCShutdownTimeout))
}

func TestRemoteErrors(t *testing.T) {
	ctx := context.Background()
	_, c := startService(t, func(cfg *counter.Config) { cfg.InitialValue = math.MaxInt64 })

	_, err := c.Incr(ctx, 1)
	var rerr *RemoteError
	require.True(t, errors.As(err, &rerr), "%#v", err)
	assert.True(t, rerr.Overflow())

	_, err = c.Decr(ctx, math.MinInt64)
	require.True(t, errors.As(err, &rerr))
	assert.True(t, rerr.InvalidInput())

	// The client keeps working after server errors.
	cur, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), cur)
}

func TestRateLimitedError(t *testing.T) {
	ctx := context.Background()
	_, c := startService(t, func(cfg *counter.Config) {
		cfg.MaxMutationsPerSecond = 0.001
		cfg.RateLimitWait = 0
	})

	_, err := c.Incr(ctx, 1)
	require.NoError(t, err)
	_, err = c.Incr(ctx, 1)
	var rerr *RemoteError
	require.True(t, errors.As(err, &rerr))
	assert.True(t, rerr.RateLimited())
}

func TestConnectionError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	c := New(addr)
	defer c.Close()
	_, err = c.Get(context.Background())
	var cerr *ConnectionError
	require.True(t, errors.As(err, &cerr), "%#v", err)
	assert.False(t, cerr.Sent)

	var rerr *RemoteError
	assert.False(t, errors.As(err, &rerr))

	_, err = c.Update(context.Background(), func(int64) int64 { return 1 })
	assert.True(t, errors.As(err, &cerr), "%#v", err)
}

func TestCanceledContext(t *testing.T) {
	_, c := startService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Incr(ctx, 1)
	assert.Equal(t, context.Canceled, err)

	cur, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), cur)
}

func TestUpdate(t *testing.T) {
	const (
		goroutines = 10
		updates    = 20
	)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, c := startService(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < updates; j++ {
				_, err := c.Update(ctx, func(cur int64) int64 { return 1 })
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines*updates), st.Value)
	assert.Equal(t, uint64(goroutines*updates), st.Revision)
}

func TestUpdatePermanentError(t *testing.T) {
	ctx := context.Background()
	_, c := startService(t, func(cfg *counter.Config) { cfg.InitialValue = math.MaxInt64 })

	calls := 0
	_, err := c.Update(ctx, func(cur int64) int64 {
		calls++
		return 1
	})
	var rerr *RemoteError
	require.True(t, errors.As(err, &rerr))
	assert.True(t, rerr.Overflow())
	assert.Equal(t, 1, calls)
}

func TestNewAddr(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:7246/", New("127.0.0.1:7246").URL())
	assert.Equal(t, "https://example.com/rpc", New("https://example.com/rpc").URL())
}

// failingTransport fails the nth round trip without sending it.
type failingTransport struct {
	n     int32
	calls int32
	next  http.RoundTripper
}

func (t *failingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if atomic.AddInt32(&t.calls, 1) == t.n {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, errors.New("connection refused")
	}
	return t.next.RoundTrip(req)
}

func TestUpdateRetriesUnsentRequest(t *testing.T) {
	ctx := context.Background()
	_, c := startService(t, nil)
	transport := c.httpClient.Transport
	// First round trip is Get, second is the first AtomicIncr.
	c.httpClient = &http.Client{Transport: &failingTransport{n: 2, next: transport}}
	defer transport.(*http.Transport).CloseIdleConnections()

	calls := 0
	cur, err := c.Update(ctx, func(int64) int64 {
		calls++
		return 1
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), cur)
	assert.Equal(t, 2, calls)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Value)
	assert.Equal(t, uint64(1), st.Revision)
}

// dropResponse forwards requests to the target and closes the connection instead of
// replying to the first request that calls method.
type dropResponse struct {
	target    string
	method    string
	transport *http.Transport

	m       sync.Mutex
	dropped bool
}

func (p *dropResponse) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	clt := http.Client{Transport: p.transport}
	resp, err := clt.Post(p.target, r.Header.Get("Content-Type"), bytes.NewReader(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	p.m.Lock()
	drop := !p.dropped && bytes.Contains(body, []byte(p.method))
	if drop {
		p.dropped = true
	}
	p.m.Unlock()
	if drop {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
		return
	}

	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(respBody)
}

func TestUpdateLostResponse(t *testing.T) {
	ctx := context.Background()
	s, direct := startService(t, nil)

	proxy := &dropResponse{
		target:    direct.URL(),
		method:    "Counter.AtomicIncr",
		transport: http.DefaultTransport.(*http.Transport).Clone(),
	}
	defer proxy.transport.CloseIdleConnections()
	srv := httptest.NewServer(proxy)
	defer srv.Close()
	c := New(srv.URL)
	defer c.Close()

	calls := 0
	_, err := c.Update(ctx, func(int64) int64 {
		calls++
		return 1
	})
	var cerr *ConnectionError
	require.True(t, errors.As(err, &cerr), "%#v", err)
	assert.True(t, cerr.Sent)
	assert.Equal(t, 1, calls)

	st, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Value)
	assert.Equal(t, uint64(1), st.Revision)
}
