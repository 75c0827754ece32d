// Package metrics exposes Prometheus counters for API calls, retries,
// decoder attempts and gateway traffic. A nil *Collector is valid and
// records nothing, so callers never need to check for it.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "boj"

// Collector holds the metric vectors. It is safe for concurrent use.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	decodeAttempts  *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	seriesTotal     *prometheus.CounterVec
	gatewayRequests *prometheus.CounterVec

	registry *prometheus.Registry
}

// New registers the collector's metrics on a fresh registry.
func New() *Collector {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collector's metrics on registry.
func NewWithRegistry(registry *prometheus.Registry) *Collector {
	f := promauto.With(registry)
	return &Collector{
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests sent to the BOJ API",
			},
			[]string{"endpoint", "status_code"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of BOJ API requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		retriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Total number of retried API calls",
			},
			[]string{"endpoint", "attempt"},
		),
		decodeAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_attempts_total",
				Help:      "Decoder attempts by wire format and outcome",
			},
			[]string{"format", "outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Failed API calls by error kind",
			},
			[]string{"kind", "endpoint"},
		),
		seriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "series_decoded_total",
				Help:      "Series decoded from successful responses",
			},
			[]string{"endpoint"},
		),
		gatewayRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_requests_total",
				Help:      "Requests served by the local HTTP gateway",
			},
			[]string{"route", "code"},
		),
		registry: registry,
	}
}

// RecordRequest records one HTTP round trip.
func (c *Collector) RecordRequest(endpoint string, statusCode int, d time.Duration) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	c.requestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordRetry records a retry before attempt number attempt.
func (c *Collector) RecordRetry(endpoint string, attempt uint32) {
	if c == nil {
		return
	}
	c.retriesTotal.WithLabelValues(endpoint, strconv.FormatUint(uint64(attempt), 10)).Inc()
}

// RecordDecode records one decoder attempt.
func (c *Collector) RecordDecode(format string, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.decodeAttempts.WithLabelValues(format, outcome).Inc()
}

// RecordError records a failed call by error kind.
func (c *Collector) RecordError(kind, endpoint string) {
	if c == nil {
		return
	}
	c.errorsTotal.WithLabelValues(kind, endpoint).Inc()
}

// RecordSeries adds n decoded series for endpoint.
func (c *Collector) RecordSeries(endpoint string, n int) {
	if c == nil {
		return
	}
	c.seriesTotal.WithLabelValues(endpoint).Add(float64(n))
}

// RecordGateway records one request served by the gateway.
func (c *Collector) RecordGateway(route string, code int) {
	if c == nil {
		return
	}
	c.gatewayRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}
