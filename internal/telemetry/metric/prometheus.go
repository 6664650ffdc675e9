package metric

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tssd"

// Keygen result labels.
const (
	ResultOK                 = "ok"
	ResultUninitialized      = "uninitialized"
	ResultDerivation         = "derivation_error"
	ResultDuplicateKey       = "duplicate_key"
	ResultSerialization      = "serialization_error"
	ResultInvalidReservation = "invalid_reservation"
	ResultStorage            = "storage_error"
	ResultInvalidArgument    = "invalid_argument"
	ResultCanceled           = "canceled"
)

// Registry holds all application metrics on a private Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	KeygenTotal      *prometheus.CounterVec
	KeygenDuration   prometheus.Histogram
	OrphanedReserved prometheus.Counter
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RateLimited      prometheus.Counter
	SeedInitialized  prometheus.Gauge
}

// NewRegistry creates a registry with every tssd metric and the Go
// runtime and process collectors registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		KeygenTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keygen",
			Name:      "requests_total",
			Help:      "Keygen requests by result",
		}, []string{"result"}),
		KeygenDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "keygen",
			Name:      "duration_seconds",
			Help:      "Keygen request latency",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		OrphanedReserved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keygen",
			Name:      "orphaned_reservations_total",
			Help:      "Reservations left uncommitted because the commit step failed",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "RPC requests by procedure and status code",
		}, []string{"procedure", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "RPC latency by procedure",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "rate_limited_total",
			Help:      "RPC requests rejected by the rate limiter",
		}),
		SeedInitialized: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "seed_initialized",
			Help:      "1 when the daemon seed is established",
		}),
	}

	reg.MustRegister(
		r.KeygenTotal,
		r.KeygenDuration,
		r.OrphanedReserved,
		r.RequestsTotal,
		r.RequestDuration,
		r.RateLimited,
		r.SeedInitialized,
	)
	return r
}

// Registerer exposes the underlying registry for component metrics
// (e.g. the storage engine).
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for scraping and tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves this registry in Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveKeygen records one keygen outcome.
func (r *Registry) ObserveKeygen(result string, elapsed time.Duration) {
	r.KeygenTotal.WithLabelValues(result).Inc()
	r.KeygenDuration.Observe(elapsed.Seconds())
}

// ObserveRequest records one RPC call.
func (r *Registry) ObserveRequest(procedure, code string, elapsed time.Duration) {
	r.RequestsTotal.WithLabelValues(procedure, code).Inc()
	r.RequestDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())
}

// SetSeedInitialized flips the seed gauge.
func (r *Registry) SetSeedInitialized(ok bool) {
	if ok {
		r.SeedInitialized.Set(1)
		return
	}
	r.SeedInitialized.Set(0)
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() { global = NewRegistry() })
	return global
}

// Handler serves the process-wide registry.
func Handler() http.Handler {
	return Global().Handler()
}
