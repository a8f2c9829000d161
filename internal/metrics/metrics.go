// Package metrics collects Prometheus metrics for the API server and the
// client's token refresh machinery.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the set of client-side events the refresh transport reports.
type Recorder interface {
	RecordRefresh()
	RecordRefreshFailure()
	RecordRetry()
}

// Collector records metrics on a caller-supplied registry.
// A nil *Collector is valid and records nothing.
type Collector struct {
	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	refreshes       prometheus.Counter
	refreshFailures prometheus.Counter
	retries         prometheus.Counter
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meniumate_http_requests_total",
			Help: "HTTP requests served, by method, route and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "meniumate_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meniumate_client_token_refresh_total",
			Help: "Token refresh calls made by the client.",
		}),
		refreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meniumate_client_token_refresh_failures_total",
			Help: "Token refresh calls that failed.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meniumate_client_request_retries_total",
			Help: "Requests retried after a 401 response.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.latency,
		c.refreshes,
		c.refreshFailures,
		c.retries,
	)

	return c
}

// ObserveRequest records one served HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordRefresh counts a token refresh call.
func (c *Collector) RecordRefresh() {
	if c == nil {
		return
	}
	c.refreshes.Inc()
}

// RecordRefreshFailure counts a failed token refresh.
func (c *Collector) RecordRefreshFailure() {
	if c == nil {
		return
	}
	c.refreshFailures.Inc()
}

// RecordRetry counts a request replayed after a 401.
func (c *Collector) RecordRetry() {
	if c == nil {
		return
	}
	c.retries.Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
