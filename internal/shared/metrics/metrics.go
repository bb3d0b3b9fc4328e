package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the server.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	ProviderRequestsTotal *prometheus.CounterVec
	PollRoundsTotal       prometheus.Counter
	RehostUploadsTotal    *prometheus.CounterVec
	ArtifactDownloads     *prometheus.CounterVec
}

// New creates metrics registered on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reelforge_http_requests_total",
			Help: "Total HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reelforge_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		HTTPRequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "reelforge_http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),

		ProviderRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reelforge_provider_requests_total",
			Help: "Provider API calls by endpoint, operation and outcome.",
		}, []string{"endpoint", "operation", "outcome"}),
		PollRoundsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "reelforge_poll_rounds_total",
			Help: "Completed polling rounds across all tasks.",
		}),
		RehostUploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reelforge_rehost_uploads_total",
			Help: "Rehost upload attempts by host and outcome.",
		}, []string{"host", "outcome"}),
		ArtifactDownloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reelforge_artifact_downloads_total",
			Help: "Artifact downloads by outcome (fetched, cached, failed).",
		}, []string{"outcome"}),
	}
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordProviderRequest records a provider API call.
func (m *Metrics) RecordProviderRequest(endpoint, operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ProviderRequestsTotal.WithLabelValues(endpoint, operation, outcome).Inc()
}

// RecordRehostUpload records a rehost upload attempt.
func (m *Metrics) RecordRehostUpload(host string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RehostUploadsTotal.WithLabelValues(host, outcome).Inc()
}
