// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventmanager_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventmanager_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventmanager_login_attempts_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	reportsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventmanager_reports_generated_total",
		Help: "PDF reports rendered by kind and result",
	}, []string{"kind", "result"})

	reportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventmanager_report_duration_seconds",
		Help:    "Duration of PDF rendering",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	authorizationDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventmanager_authorization_denials_total",
		Help: "Requests rejected by the authorization gate",
	}, []string{"capability"})

	panicsRecovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventmanager_panics_recovered_total",
		Help: "Handler panics recovered by middleware",
	})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest records an HTTP request metric. route is the matched
// route template, not the raw path, to keep label cardinality bounded.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	httpRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
}

// ObserveLogin counts a login attempt. result is "success", "failure" or
// "throttled".
func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

// ObserveReport records a PDF render of kind with its outcome.
func ObserveReport(kind string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	reportsGenerated.WithLabelValues(kind, result).Inc()
	reportDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveDenial counts a request refused for lacking capability.
func ObserveDenial(capability string) {
	authorizationDenials.WithLabelValues(capability).Inc()
}

// ObservePanic counts a recovered handler panic.
func ObservePanic() {
	panicsRecovered.Inc()
}
