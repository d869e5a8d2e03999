package service

import (
	"errors"

	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream
	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_upstream_request_duration_seconds",
		Help:    "Duration of requests to the statistics API",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	upstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_upstream_errors_total",
		Help: "Total number of failed statistics API requests",
	}, []string{"endpoint", "kind"})

	// Selection
	selectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_selections_total",
		Help: "Total number of region and category selections",
	}, []string{"kind"})

	staleResponsesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_stale_responses_discarded_total",
		Help: "Responses dropped because a newer selection was issued",
	})

	// Sessions
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_active_sessions",
		Help: "Number of live dashboard sessions",
	})

	observerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_observer_errors_total",
		Help: "Total number of failed state observer deliveries",
	}, []string{"observer"})

	// HTTP
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "endpoint", "status"})
)

// RecordUpstreamRequest records one statistics API call and classifies its error.
func RecordUpstreamRequest(endpoint string, duration float64, err error) {
	upstreamRequestDuration.WithLabelValues(endpoint).Observe(duration)
	if err == nil {
		return
	}

	kind := "other"
	switch {
	case errors.Is(err, models.ErrNetwork):
		kind = "network"
	case errors.Is(err, models.ErrParse):
		kind = "parse"
	}
	upstreamErrors.WithLabelValues(endpoint, kind).Inc()
}

func RecordSelection(kind string) {
	selectionsTotal.WithLabelValues(kind).Inc()
}

func RecordStaleDiscard() {
	staleResponsesDiscarded.Inc()
}

func RecordObserverError(observer string) {
	observerErrors.WithLabelValues(observer).Inc()
}

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint string, duration float64, statusCode int) {
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
	status := "success"
	if statusCode >= 400 {
		status = "error"
	}
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
}
