package counter

import (
	"time"

	"github.com/rcrowley/go-metrics"
)

type serviceMetrics struct {
	registry metrics.Registry

	Get        metrics.Counter
	Incr       metrics.Counter
	Decr       metrics.Counter
	AtomicIncr metrics.Counter
	AtomicDecr metrics.Counter
	Status     metrics.Counter
	CASFailed  metrics.Counter
	Errors     metrics.Counter

	Value           metrics.Gauge
	Revision        metrics.Gauge
	Uptime          metrics.Gauge
	MutationLatency metrics.Histogram
}

func (s *Service) initMetrics() {
	r := metrics.NewRegistry()
	s.metrics = &serviceMetrics{
		registry: r,

		Get:        metrics.NewRegisteredCounter("requests_get", r),
		Incr:       metrics.NewRegisteredCounter("requests_incr", r),
		Decr:       metrics.NewRegisteredCounter("requests_decr", r),
		AtomicIncr: metrics.NewRegisteredCounter("requests_atomic_incr", r),
		AtomicDecr: metrics.NewRegisteredCounter("requests_atomic_decr", r),
		Status:     metrics.NewRegisteredCounter("requests_status", r),
		CASFailed:  metrics.NewRegisteredCounter("cas_failed", r),
		Errors:     metrics.NewRegisteredCounter("errors", r),

		Value:    metrics.NewRegisteredFunctionalGauge("value", r, func() int64 { return s.store.Read().Value }),
		Revision: metrics.NewRegisteredFunctionalGauge("revision", r, func() int64 { return int64(s.store.Read().Revision) }),
		Uptime:   metrics.NewRegisteredFunctionalGauge("uptime", r, func() int64 { return int64(time.Since(s.createdAt) / time.Second) }),

		// Microseconds spent inside the store, lock wait included.
		MutationLatency: metrics.NewRegisteredHistogram("mutation_latency_us", r, metrics.NewUniformSample(1028)),
	}
}

func (m *serviceMetrics) observeMutation(started time.Time) {
	m.MutationLatency.Update(int64(time.Since(started) / time.Microsecond))
}
