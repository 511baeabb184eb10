// Package metrics exposes request counters and latencies for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/niels/page-server/pkg/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "page_server"

// Collector records dispatch outcomes. It satisfies routes.Recorder.
type Collector struct {
	registry         *prometheus.Registry
	requestsTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	bytesServed      prometheus.Counter
}

// NewCollector creates a collector with its own registry, so several servers
// (and tests) can run in one process.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	info := version.Get()
	factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information of the running binary, always 1",
	}, []string{"version", "go_version"}).WithLabelValues(info.Version, info.GoVersion).Set(1)

	return &Collector{
		registry: registry,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests handled by the router, by outcome",
		}, []string{"outcome"}),
		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time from routing a request until its response is complete",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		bytesServed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_bytes_total",
			Help:      "Bytes written to clients",
		}),
	}
}

// ObserveDispatch implements routes.Recorder
func (c *Collector) ObserveDispatch(outcome string, duration time.Duration) {
	c.requestsTotal.WithLabelValues(outcome).Inc()
	c.dispatchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// AddBytes counts bytes written to clients
func (c *Collector) AddBytes(n int) {
	if n > 0 {
		c.bytesServed.Add(float64(n))
	}
}

// Registry returns the registry the collector registers with
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collected metrics in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
