package counter

import (
	"context"
	"errors"

	"github.com/cenkalti/counter/internal/rpctypes"
	"github.com/powerman/rpc-codec/jsonrpc2"
)

type rpcHandler struct {
	service *Service
}

type withContext interface {
	Context() context.Context
}

func requestContext(args withContext) context.Context {
	if ctx := args.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// rpcError converts errors into JSON-RPC errors with codes known by the client.
func rpcError(err error) error {
	var e *InputError
	switch {
	case errors.As(err, &e):
		return jsonrpc2.NewError(rpctypes.CodeInvalidInput, e.Error())
	case errors.Is(err, ErrOverflow):
		return jsonrpc2.NewError(rpctypes.CodeOverflow, err.Error())
	case errors.Is(err, ErrRateLimited):
		return jsonrpc2.NewError(rpctypes.CodeRateLimited, err.Error())
	}
	return err
}

func (h *rpcHandler) Version(args struct{}, reply *string) error {
	*reply = Version
	return nil
}

func (h *rpcHandler) Get(args *rpctypes.GetRequest, reply *rpctypes.GetResponse) error {
	cur, err := h.service.Get(requestContext(args))
	if err != nil {
		return rpcError(err)
	}
	reply.Cur = cur
	return nil
}

func (h *rpcHandler) Incr(args *rpctypes.IncrRequest, reply *rpctypes.IncrResponse) error {
	cur, err := h.service.Incr(requestContext(args), args.Step)
	if err != nil {
		return rpcError(err)
	}
	reply.Cur = cur
	return nil
}

func (h *rpcHandler) Decr(args *rpctypes.DecrRequest, reply *rpctypes.DecrResponse) error {
	cur, err := h.service.Decr(requestContext(args), args.Step)
	if err != nil {
		return rpcError(err)
	}
	reply.Cur = cur
	return nil
}

func (h *rpcHandler) AtomicIncr(args *rpctypes.AtomicIncrRequest, reply *rpctypes.AtomicIncrResponse) error {
	cur, ok, err := h.service.AtomicIncr(requestContext(args), args.Before, args.Step)
	if err != nil {
		return rpcError(err)
	}
	reply.Cur = cur
	reply.Success = ok
	return nil
}

func (h *rpcHandler) AtomicDecr(args *rpctypes.AtomicDecrRequest, reply *rpctypes.AtomicDecrResponse) error {
	cur, ok, err := h.service.AtomicDecr(requestContext(args), args.Before, args.Step)
	if err != nil {
		return rpcError(err)
	}
	reply.Cur = cur
	reply.Success = ok
	return nil
}

func (h *rpcHandler) Status(args *rpctypes.StatusRequest, reply *rpctypes.StatusResponse) error {
	s, err := h.service.Status(requestContext(args))
	if err != nil {
		return rpcError(err)
	}
	reply.Status = rpctypes.Status{
		ReplicaID:  s.ReplicaID,
		Version:    s.Version,
		Health:     s.Health,
		Value:      s.Value,
		Revision:   s.Revision,
		StartedAt:  rpctypes.Time{Time: s.StartedAt},
		Uptime:     int(s.Uptime.Seconds()),
		Persistent: s.Persistent,
		Overflow:   s.Overflow,
		Operations: rpctypes.Operations{
			Get:        s.Operations.Get,
			Incr:       s.Operations.Incr,
			Decr:       s.Operations.Decr,
			AtomicIncr: s.Operations.AtomicIncr,
			AtomicDecr: s.Operations.AtomicDecr,
			Status:     s.Operations.Status,
			CASFailed:  s.Operations.CASFailed,
			Errors:     s.Operations.Errors,
		},
	}
	return nil
}
