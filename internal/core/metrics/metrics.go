// Package metrics exposes Prometheus metrics for the condfield service.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Default metric name prefix: condfield_<subsystem>_<name>.
const (
	DefaultNamespace = "condfield"
	DefaultSubsystem = "server"
)

// Save outcomes recorded by RecordSave.
const (
	SaveOK      = "ok"
	SaveInvalid = "invalid"
	SaveError   = "error"
)

// Collector owns a registry and every metric the service records.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	rpcTotal    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec

	savesTotal       *prometheus.CounterVec
	definitionErrors *prometheus.CounterVec
	submissionErrors *prometheus.CounterVec

	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	cacheEntries *prometheus.GaugeVec
}

// NewCollector creates a collector registered with registry. A nil registry
// gets a fresh one.
func NewCollector(namespace, subsystem string, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if subsystem == "" {
		subsystem = DefaultSubsystem
	}

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}

	c := &Collector{
		registry: registry,
		rpcTotal: counter("rpc_requests_total", "Total RPC requests by method and status code", "method", "code"),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rpc_duration_seconds",
			Help:      "RPC handling latency",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"method"}),
		savesTotal:       counter("definition_saves_total", "Condition definition saves by outcome", "result"),
		definitionErrors: counter("definition_errors_total", "Rejected condition definitions by error code", "code"),
		submissionErrors: counter("submission_errors_total", "Submission validation failures by message code", "code"),
		cacheHits:        counter("cache_hits_total", "Total cache hits", "cache"),
		cacheMisses:      counter("cache_misses_total", "Total cache misses", "cache"),
		cacheEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_entries",
			Help:      "Current number of entries in cache",
		}, []string{"cache"}),
	}

	registry.MustRegister(
		c.rpcTotal,
		c.rpcDuration,
		c.savesTotal,
		c.definitionErrors,
		c.submissionErrors,
		c.cacheHits,
		c.cacheMisses,
		c.cacheEntries,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordSave counts one definition save and the codes it was rejected with.
func (c *Collector) RecordSave(result string, codes ...string) {
	if c == nil {
		return
	}
	c.savesTotal.WithLabelValues(result).Inc()
	for _, code := range codes {
		c.definitionErrors.WithLabelValues(code).Inc()
	}
}

// RecordSubmissionErrors counts submission validation failures by code.
func (c *Collector) RecordSubmissionErrors(codes ...string) {
	if c == nil {
		return
	}
	for _, code := range codes {
		c.submissionErrors.WithLabelValues(code).Inc()
	}
}

// CacheHit records a hit in the named cache.
func (c *Collector) CacheHit(cache string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cache).Inc()
}

// CacheMiss records a miss in the named cache.
func (c *Collector) CacheMiss(cache string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cache).Inc()
}

// CacheSize sets the current entry count of the named cache.
func (c *Collector) CacheSize(cache string, n int) {
	if c == nil {
		return
	}
	c.cacheEntries.WithLabelValues(cache).Set(float64(n))
}

// UnaryInterceptor records the count and latency of every unary RPC.
func (c *Collector) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if c == nil {
			return handler(ctx, req)
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		c.rpcDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		c.rpcTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
