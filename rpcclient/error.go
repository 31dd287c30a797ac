package rpcclient

import (
	"errors"
	"fmt"
	"net/rpc"

	"github.com/cenkalti/counter/internal/rpctypes"
	"github.com/powerman/rpc-codec/jsonrpc2"
)

// ConnectionError is returned when the server cannot be reached or the call did not complete.
type ConnectionError struct {
	URL string
	// Sent is true if the request was written to the server before the failure.
	// The server may have applied it.
	Sent bool
	err  error
}

// Error implements error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot call counter at %s: %s", e.URL, e.err)
}

// Unwrap returns the underlying transport error.
func (e *ConnectionError) Unwrap() error {
	return e.err
}

// RemoteError is an error returned by the server.
type RemoteError struct {
	Code    int
	Message string
}

// Error implements error interface.
func (e *RemoteError) Error() string {
	return e.Message
}

// InvalidInput is true if the server rejected the request before applying it.
func (e *RemoteError) InvalidInput() bool { return e.Code == rpctypes.CodeInvalidInput }

// Overflow is true if the mutation would move the counter out of the int64 range.
func (e *RemoteError) Overflow() bool { return e.Code == rpctypes.CodeOverflow }

// RateLimited is true if the server did not admit the mutation.
func (e *RemoteError) RateLimited() bool { return e.Code == rpctypes.CodeRateLimited }

// convertError handles errors of calls that got a response from the server.
func (c *Client) convertError(err error) error {
	var jerr *jsonrpc2.Error
	if errors.As(err, &jerr) {
		return &RemoteError{Code: jerr.Code, Message: jerr.Message}
	}
	if _, ok := err.(rpc.ServerError); ok {
		jerr = jsonrpc2.ServerError(err)
		return &RemoteError{Code: jerr.Code, Message: jerr.Message}
	}
	return &ConnectionError{URL: c.url, Sent: true, err: err}
}
