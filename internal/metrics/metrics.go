// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	datasetLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airquality",
		Name:      "dataset_loads_total",
		Help:      "Dataset loads by origin (source or demo) and fallback reason.",
	}, []string{"origin", "reason"})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airquality",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method and status code.",
	}, []string{"method", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "airquality",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	registry = prometheus.NewRegistry()
)

func init() {
	registry.MustRegister(
		datasetLoads,
		httpRequests,
		httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// DatasetLoaded counts one dataset load. reason is "" for a successful source load.
func DatasetLoaded(origin, reason string) {
	if reason == "" {
		reason = "none"
	}
	datasetLoads.WithLabelValues(origin, reason).Inc()
}

// RequestServed records one finished HTTP request.
func RequestServed(method string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
