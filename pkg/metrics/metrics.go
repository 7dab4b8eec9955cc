package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the service collectors on one registry
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	Rollbacks     *prometheus.CounterVec
	ObjectStorage *prometheus.CounterVec
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spaces",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spaces",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		Rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spaces",
			Name:      "rollbacks_total",
			Help:      "Compensating actions run after a failed workflow step, by step and result.",
		}, []string{"step", "result"}),
		ObjectStorage: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spaces",
			Name:      "object_storage_ops_total",
			Help:      "Object storage calls by operation and result.",
		}, []string{"op", "result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.Rollbacks,
		m.ObjectStorage,
	)
	return m
}

// Result maps an error to the "result" label value
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RollbackObserver counts compensations; a nil receiver is a no-op
func (m *Metrics) RollbackObserver() func(step string, err error) {
	return func(step string, err error) {
		if m == nil {
			return
		}
		m.Rollbacks.WithLabelValues(step, Result(err)).Inc()
	}
}

// StorageObserver counts object storage calls; a nil receiver is a no-op
func (m *Metrics) StorageObserver() func(op string, err error) {
	return func(op string, err error) {
		if m == nil {
			return
		}
		m.ObjectStorage.WithLabelValues(op, Result(err)).Inc()
	}
}
