package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "applications_http_requests_total", Help: "HTTP requests by route and status"},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "applications_http_request_duration_seconds", Help: "HTTP request latency", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)
	ApplicationsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{Name: "applications_submitted_total", Help: "Applications created"})

	ApplicationsDecided = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "applications_decided_total", Help: "Applications moved to a terminal status"},
		[]string{"status"},
	)
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "application_events_published_total", Help: "Notification events by outcome"},
		[]string{"type", "result"},
	)
	PublishAttempts = prometheus.NewCounter(prometheus.CounterOpts{Name: "application_event_publish_attempts_total", Help: "Individual publish attempts including retries"})

	EnrichmentFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "applications_enrichment_failures_total", Help: "Directory lookups that fell back to null"},
		[]string{"directory"},
	)
	NotificationsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notifications_handled_total", Help: "Events consumed by the notification worker"},
		[]string{"type", "result"},
	)
)

// Register adds every collector to the default registry once
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequests,
			HTTPDuration,
			ApplicationsSubmitted,
			ApplicationsDecided,
			EventsPublished,
			PublishAttempts,
			EnrichmentFailures,
			NotificationsHandled,
		)
	})
}

// Handler exposes /metrics with the default registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}
