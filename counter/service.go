// Package counter provides a network service that holds a single signed 64-bit counter.
package counter

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/counter/internal/counterstore"
	"github.com/cenkalti/counter/internal/logger"
	"github.com/cenkalti/counter/internal/resumer"
	"github.com/cenkalti/counter/internal/resumer/boltdbresumer"
	"github.com/gofrs/uuid"
	"github.com/juju/ratelimit"
	"github.com/mitchellh/go-homedir"
)

// ErrOverflow is returned from mutating operations when the result does not fit into int64
// and the overflow policy is "fail".
var ErrOverflow = counterstore.ErrOverflow

var errNegateMinInt64 = errors.New("step cannot be negated")

// Service owns the counter and dispatches requests to it.
type Service struct {
	config    Config
	store     *counterstore.Store
	db        *boltdbresumer.DB
	limiter   *ratelimit.Bucket
	log       logger.Logger
	rpc       *rpcServer
	metrics   *serviceMetrics
	replicaID string
	createdAt time.Time
}

// New returns a new Service. If RPC is enabled, the RPC server is started before returning.
func New(cfg Config) (*Service, error) {
	policy, err := counterstore.ParseOverflowPolicy(cfg.Overflow)
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	s := &Service{
		config:    cfg,
		log:       logger.New("counter"),
		replicaID: id.String(),
		createdAt: time.Now(),
	}
	var res resumer.Resumer
	if cfg.Database != "" {
		cfg.Database, err = homedir.Expand(cfg.Database)
		if err != nil {
			return nil, err
		}
		s.db, err = boltdbresumer.Open(cfg.Database)
		if err != nil {
			return nil, err
		}
		res = s.db
	}
	defer func() {
		if err != nil && s.db != nil {
			s.db.Close()
		}
	}()
	s.store, err = counterstore.New(cfg.InitialValue, policy, res)
	if err != nil {
		return nil, err
	}
	if cfg.MaxMutationsPerSecond > 0 {
		burst := cfg.MutationBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = ratelimit.NewBucketWithRate(cfg.MaxMutationsPerSecond, burst)
	}
	s.initMetrics()
	snap := s.store.Read()
	s.log.Infof("counter %s loaded: value=%d revision=%d persistent=%t", s.replicaID, snap.Value, snap.Revision, s.store.Persistent())
	if cfg.RPCEnabled {
		s.rpc = newRPCServer(s)
		err = s.rpc.Start(cfg.RPCHost, cfg.RPCPort)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close stops the RPC server and closes the database.
// The database is closed even if the RPC server does not stop in time.
func (s *Service) Close() error {
	var rpcErr error
	if s.rpc != nil {
		rpcErr = s.rpc.Stop(s.config.RPCShutdownTimeout)
		if rpcErr != nil {
			s.log.Errorln("cannot stop RPC server:", rpcErr.Error())
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return err
		}
	}
	return rpcErr
}

// RPCAddr returns the address the RPC server listens on, or empty string if RPC is disabled.
func (s *Service) RPCAddr() string {
	if s.rpc == nil {
		return ""
	}
	return s.rpc.Addr()
}

// Get returns the current value of the counter.
func (s *Service) Get(ctx context.Context) (int64, error) {
	s.metrics.Get.Inc(1)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.store.Read().Value, nil
}

// Incr adds step to the counter and returns the new value.
func (s *Service) Incr(ctx context.Context, step int64) (int64, error) {
	s.metrics.Incr.Inc(1)
	return s.applyDelta(ctx, step)
}

// Decr subtracts step from the counter and returns the new value.
func (s *Service) Decr(ctx context.Context, step int64) (int64, error) {
	s.metrics.Decr.Inc(1)
	if step == math.MinInt64 {
		return 0, s.failed(newInputError(errNegateMinInt64))
	}
	return s.applyDelta(ctx, -step)
}

// AtomicIncr adds step to the counter only if its value equals before.
// If success is false, cur is the unchanged value of the counter.
func (s *Service) AtomicIncr(ctx context.Context, before, step int64) (cur int64, success bool, err error) {
	s.metrics.AtomicIncr.Inc(1)
	return s.applyConditionalDelta(ctx, before, step)
}

// AtomicDecr subtracts step from the counter only if its value equals before.
// If success is false, cur is the unchanged value of the counter.
func (s *Service) AtomicDecr(ctx context.Context, before, step int64) (cur int64, success bool, err error) {
	s.metrics.AtomicDecr.Inc(1)
	if step == math.MinInt64 {
		return 0, false, s.failed(newInputError(errNegateMinInt64))
	}
	return s.applyConditionalDelta(ctx, before, -step)
}

func (s *Service) applyDelta(ctx context.Context, step int64) (int64, error) {
	if err := s.admit(ctx); err != nil {
		return 0, s.failed(err)
	}
	started := time.Now()
	snap, err := s.store.ApplyDelta(step)
	s.metrics.observeMutation(started)
	if err != nil {
		s.log.Debugf("delta %d rejected: %s", step, err)
		return 0, s.failed(err)
	}
	s.log.Debugf("delta %d applied: value=%d revision=%d", step, snap.Value, snap.Revision)
	return snap.Value, nil
}

func (s *Service) applyConditionalDelta(ctx context.Context, before, step int64) (int64, bool, error) {
	if err := s.admit(ctx); err != nil {
		return 0, false, s.failed(err)
	}
	started := time.Now()
	snap, applied, err := s.store.ApplyConditionalDelta(before, step)
	s.metrics.observeMutation(started)
	if err != nil {
		s.log.Debugf("conditional delta %d rejected: %s", step, err)
		return 0, false, s.failed(err)
	}
	if !applied {
		s.metrics.CASFailed.Inc(1)
		s.log.Debugf("conditional delta %d not applied: expected=%d value=%d", step, before, snap.Value)
		return snap.Value, false, nil
	}
	s.log.Debugf("conditional delta %d applied: value=%d revision=%d", step, snap.Value, snap.Revision)
	return snap.Value, true, nil
}

// admit decides whether a mutation may enter the store.
// Once admitted, the mutation runs to completion even if ctx is canceled.
func (s *Service) admit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.limiter == nil {
		return nil
	}
	wait, ok := s.limiter.TakeMaxDuration(1, s.config.RateLimitWait)
	if !ok {
		return ErrRateLimited
	}
	if wait > 0 {
		// The token stays taken if ctx ends first.
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	return ctx.Err()
}

func (s *Service) failed(err error) error {
	s.metrics.Errors.Inc(1)
	return err
}
