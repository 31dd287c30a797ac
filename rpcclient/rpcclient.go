// Package rpcclient provides a client for the counter RPC service.
package rpcclient

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"net/rpc"
	"strings"
	"sync"

	"github.com/cenkalti/counter/internal/rpctypes"
	"github.com/powerman/rpc-codec/jsonrpc2"
)

// Client for the counter service. Connections are made lazily by the first call,
// so New never fails for an unreachable server.
type Client struct {
	url        string
	httpClient *http.Client
}

// New returns a client for the server at addr.
// addr is either a URL or a "host:port" pair.
func New(addr string) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr + "/"
	}
	return &Client{
		url:        addr,
		httpClient: &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
	}
}

// URL of the server.
func (c *Client) URL() string {
	return c.url
}

// Close releases idle connections to the server.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// doer sends the HTTP requests of a single call and remembers how the transport failed.
// The JSON-RPC codec reports transport failures as internal errors of the server,
// so the error recorded here is the only way to tell them apart.
type doer struct {
	ctx    context.Context
	client *http.Client

	m    sync.Mutex
	err  error
	sent bool
}

func (d *doer) Do(req *http.Request) (*http.Response, error) {
	trace := &httptrace.ClientTrace{
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err == nil {
				d.m.Lock()
				d.sent = true
				d.m.Unlock()
			}
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(d.ctx, trace))
	resp, err := d.client.Do(req)
	if err != nil {
		d.m.Lock()
		d.err = err
		d.m.Unlock()
	}
	return resp, err
}

func (d *doer) transportError() (sent bool, err error) {
	d.m.Lock()
	defer d.m.Unlock()
	return d.sent, d.err
}

// call sends the request and waits for the reply or ctx.
// Cancelling ctx after the request is written does not cancel the operation on the server.
func (c *Client) call(ctx context.Context, method string, args, reply interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := &doer{ctx: ctx, client: c.httpClient}
	clt := jsonrpc2.NewCustomHTTPClient(c.url, d)
	defer clt.Close()
	call := clt.Go(method, args, reply, make(chan *rpc.Call, 1))
	select {
	case <-call.Done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if call.Error == nil {
		return nil
	}
	if sent, terr := d.transportError(); terr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ConnectionError{URL: c.url, Sent: sent, err: terr}
	}
	return c.convertError(call.Error)
}

// Version returns the version of the server.
func (c *Client) Version(ctx context.Context) (string, error) {
	var reply string
	return reply, c.call(ctx, "Counter.Version", struct{}{}, &reply)
}

// Get returns the current value of the counter.
func (c *Client) Get(ctx context.Context) (int64, error) {
	var reply rpctypes.GetResponse
	err := c.call(ctx, "Counter.Get", &rpctypes.GetRequest{}, &reply)
	return reply.Cur, err
}

// Incr adds step to the counter and returns the new value.
func (c *Client) Incr(ctx context.Context, step int64) (int64, error) {
	var reply rpctypes.IncrResponse
	err := c.call(ctx, "Counter.Incr", &rpctypes.IncrRequest{Step: step}, &reply)
	return reply.Cur, err
}

// Decr subtracts step from the counter and returns the new value.
func (c *Client) Decr(ctx context.Context, step int64) (int64, error) {
	var reply rpctypes.DecrResponse
	err := c.call(ctx, "Counter.Decr", &rpctypes.DecrRequest{Step: step}, &reply)
	return reply.Cur, err
}

// AtomicIncr adds step to the counter if its value is equal to before.
func (c *Client) AtomicIncr(ctx context.Context, before, step int64) (*rpctypes.AtomicIncrResponse, error) {
	var reply rpctypes.AtomicIncrResponse
	args := rpctypes.AtomicIncrRequest{Before: before, Step: step}
	return &reply, c.call(ctx, "Counter.AtomicIncr", &args, &reply)
}

// AtomicDecr subtracts step from the counter if its value is equal to before.
func (c *Client) AtomicDecr(ctx context.Context, before, step int64) (*rpctypes.AtomicDecrResponse, error) {
	var reply rpctypes.AtomicDecrResponse
	args := rpctypes.AtomicDecrRequest{Before: before, Step: step}
	return &reply, c.call(ctx, "Counter.AtomicDecr", &args, &reply)
}

// Status returns the status of the replica.
func (c *Client) Status(ctx context.Context) (*rpctypes.Status, error) {
	var reply rpctypes.StatusResponse
	return &reply.Status, c.call(ctx, "Counter.Status", &rpctypes.StatusRequest{}, &reply)
}
