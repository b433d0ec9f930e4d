package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the collectors exported on /metrics.
type Registry struct {
	CacheHits       *prometheus.CounterVec
	CacheMisses     *prometheus.CounterVec
	StoreErrors     *prometheus.CounterVec
	ComputeDuration *prometheus.HistogramVec
	ComputeFailures *prometheus.CounterVec
	UpstreamCalls   *prometheus.CounterVec
}

// NewRegistry creates the collectors and registers them with reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stock_scorer",
			Name:      "cache_hits_total",
			Help:      "Score cache hits by layer and category",
		}, []string{"layer", "category"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stock_scorer",
			Name:      "cache_misses_total",
			Help:      "Score cache misses by category",
		}, []string{"category"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stock_scorer",
			Name:      "store_errors_total",
			Help:      "Durable store failures by operation",
		}, []string{"operation"}),
		ComputeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stock_scorer",
			Name:      "compute_duration_seconds",
			Help:      "Time spent computing a score on cache miss",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"category"}),
		ComputeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stock_scorer",
			Name:      "compute_failures_total",
			Help:      "Score computations that ended in an error",
		}, []string{"category", "reason"}),
		UpstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stock_scorer",
			Name:      "upstream_calls_total",
			Help:      "Collaborator calls by upstream and outcome",
		}, []string{"upstream", "outcome"}),
	}

	reg.MustRegister(r.CacheHits, r.CacheMisses, r.StoreErrors, r.ComputeDuration, r.ComputeFailures, r.UpstreamCalls)
	return r
}

// NewNop returns collectors that are not registered anywhere.
func NewNop() *Registry {
	return NewRegistry(prometheus.NewRegistry())
}
