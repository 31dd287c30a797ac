package counter

import (
	"context"
	"time"
)

// Status of the counter replica.
type Status struct {
	ReplicaID  string
	Version    string
	Health     string
	Value      int64
	Revision   uint64
	StartedAt  time.Time
	Uptime     time.Duration
	Persistent bool
	Overflow   string
	Operations OperationStats
}

// OperationStats contains request counts since the service started.
type OperationStats struct {
	Get        int64
	Incr       int64
	Decr       int64
	AtomicIncr int64
	AtomicDecr int64
	Status     int64
	CASFailed  int64
	Errors     int64
}

// Status returns the introspection info of the replica. It never mutates the counter.
// Value and Revision come from a single snapshot.
func (s *Service) Status(ctx context.Context) (Status, error) {
	s.metrics.Status.Inc(1)
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	snap := s.store.Read()
	return Status{
		ReplicaID:  s.replicaID,
		Version:    Version,
		Health:     "ok",
		Value:      snap.Value,
		Revision:   snap.Revision,
		StartedAt:  s.createdAt,
		Uptime:     time.Since(s.createdAt),
		Persistent: s.store.Persistent(),
		Overflow:   s.store.OverflowPolicy().String(),
		Operations: OperationStats{
			Get:        s.metrics.Get.Count(),
			Incr:       s.metrics.Incr.Count(),
			Decr:       s.metrics.Decr.Count(),
			AtomicIncr: s.metrics.AtomicIncr.Count(),
			AtomicDecr: s.metrics.AtomicDecr.Count(),
			Status:     s.metrics.Status.Count(),
			CASFailed:  s.metrics.CASFailed.Count(),
			Errors:     s.metrics.Errors.Count(),
		},
	}, nil
}
