package metrics

import (
	"strconv"
	"time"

	"mercator-hq/ddsguard/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks requests served by the HTTP API.
//
// Metrics:
//   - ddsguard_http_requests_total{route,method,status}
//   - ddsguard_http_request_duration_seconds{route,method}
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRequestMetrics creates and registers request metrics with the provided
// registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	sub := subsystem(cfg, "http")
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: sub,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"route", "method", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: sub,
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}

	registry.MustRegister(rm.requestsTotal, rm.requestDuration)
	return rm
}

// Record records one request. Route is the matched route pattern, never the
// raw path, to keep label cardinality bounded.
func (rm *RequestMetrics) Record(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	rm.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	rm.requestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
