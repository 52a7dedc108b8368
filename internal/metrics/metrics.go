package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// ScoresComputed counts customer scores by tier.
	ScoresComputed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scores_computed_total", Help: "Customer scores computed, by revenue tier."},
		[]string{"tier"},
	)
	// AnalysesSaved counts persisted analysis snapshots by kind.
	AnalysesSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "analyses_saved_total", Help: "Analysis snapshots saved, by kind."},
		[]string{"kind"},
	)
	// BatchDuration records batch scoring wall time in seconds.
	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "batch_score_duration_seconds", Help: "Batch scoring duration in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15}},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status.
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors on the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(ScoresComputed)
		Registry.MustRegister(AnalysesSaved)
		Registry.MustRegister(BatchDuration)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
