// Package rpctypes contains the request and response types of the counter RPC service.
package rpctypes

import "github.com/powerman/rpc-codec/jsonrpc2"

// Error codes sent in JSON-RPC error responses.
const (
	CodeInvalidInput = 1
	CodeOverflow     = 2
	CodeRateLimited  = 3
)

type GetRequest struct {
	jsonrpc2.Ctx
}

type GetResponse struct {
	Cur int64
}

type IncrRequest struct {
	jsonrpc2.Ctx
	Step int64
}

type IncrResponse struct {
	Cur int64
}

type DecrRequest struct {
	jsonrpc2.Ctx
	Step int64
}

type DecrResponse struct {
	Cur int64
}

type AtomicIncrRequest struct {
	jsonrpc2.Ctx
	Before int64
	Step   int64
}

type AtomicIncrResponse struct {
	Cur     int64
	Success bool
}

type AtomicDecrRequest struct {
	jsonrpc2.Ctx
	Before int64
	Step   int64
}

type AtomicDecrResponse struct {
	Cur     int64
	Success bool
}

type StatusRequest struct {
	jsonrpc2.Ctx
}

type StatusResponse struct {
	Status Status
}

// Status describes a single replica of the counter service.
type Status struct {
	ReplicaID  string
	Version    string
	Health     string
	Value      int64
	Revision   uint64
	StartedAt  Time `structs:",omitnested"`
	Uptime     int
	Persistent bool
	Overflow   string
	Operations Operations
}

// Operations are request counts since the service started.
type Operations struct {
	Get        int64
	Incr       int64
	Decr       int64
	AtomicIncr int64
	AtomicDecr int64
	Status     int64
	CASFailed  int64
	Errors     int64
}
