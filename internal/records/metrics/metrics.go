package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the records module.
type Metrics struct {
	// Download transitions by attached annotation kind
	Downloads *prometheus.CounterVec

	// Failures on the post-response persist/index path by stage
	PostResponseFailures *prometheus.CounterVec

	// Latency of the caller-visible part of a download request
	DownloadLatency prometheus.Histogram
}

// New creates a Metrics instance with all records module metrics registered.
func New() *Metrics {
	return &Metrics{
		Downloads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_record_downloads_total",
			Help: "Total download transitions by annotation",
		}, []string{"annotation"}), // annotation: "downloaded", "assigned"

		PostResponseFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civreg_record_post_response_failures_total",
			Help: "Failures after the response was sent, by stage",
		}, []string{"stage"}), // stage: "persist", "index"

		DownloadLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "civreg_record_download_duration_seconds",
			Help:    "Duration of a download request up to the response, excluding persistence",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementDownload records a download transition outcome.
func (m *Metrics) IncrementDownload(annotation string) {
	if m != nil {
		m.Downloads.WithLabelValues(annotation).Inc()
	}
}

// IncrementPostResponseFailure records a failure on the detached path.
func (m *Metrics) IncrementPostResponseFailure(stage string) {
	if m != nil {
		m.PostResponseFailures.WithLabelValues(stage).Inc()
	}
}

// ObserveDownloadLatency records the caller-visible request duration.
func (m *Metrics) ObserveDownloadLatency(d time.Duration) {
	if m != nil {
		m.DownloadLatency.Observe(d.Seconds())
	}
}
