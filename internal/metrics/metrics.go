// Package metrics defines the Prometheus collectors for the session layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Request pipeline

	APIRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "searchpanel",
		Name:      "api_request_duration_seconds",
		Help:      "Latency of calls to the search platform API.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "path"})

	APIRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "searchpanel",
		Name:      "api_requests_total",
		Help:      "Calls to the search platform API, by normalized outcome code.",
	}, []string{"method", "path", "outcome"})

	// Session manager

	RefreshesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "searchpanel",
		Name:      "credential_refreshes_total",
		Help:      "Credential refresh network calls, by result.",
	}, []string{"result"})

	SessionTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "searchpanel",
		Name:      "session_transitions_total",
		Help:      "Session state machine transitions, by target phase.",
	}, []string{"phase"})

	SessionSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "searchpanel",
		Name:      "session_subscribers",
		Help:      "Active session state subscribers.",
	})

	// Credential store

	StorageFallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "searchpanel",
		Name:      "storage_fallbacks_total",
		Help:      "Persistent storage operations that failed and fell back to memory.",
	}, []string{"op"})
)

// Register registers every collector with the default registry.
func Register() {
	prometheus.MustRegister(
		APIRequestDuration,
		APIRequestsTotal,
		RefreshesTotal,
		SessionTransitionsTotal,
		SessionSubscribers,
		StorageFallbacksTotal,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
