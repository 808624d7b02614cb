package upload

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type MetricsProviderInterface interface {
	IncUploads(outcome string)
	ObserveUploadDuration(duration time.Duration)
	SetBusy(busy bool)
}

type MetricsProvider struct {
	uploadsTotal   *prometheus.CounterVec
	uploadDuration prometheus.Histogram
	busy           prometheus.Gauge
}

func (m *MetricsProvider) IncUploads(outcome string) {
	m.uploadsTotal.WithLabelValues(outcome).Inc()
}

func (m *MetricsProvider) ObserveUploadDuration(duration time.Duration) {
	m.uploadDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) SetBusy(busy bool) {
	if busy {
		m.busy.Set(1)
		return
	}
	m.busy.Set(0)
}

// NewMetricsProvider registers the upload metrics with reg, or returns a noop
// provider when metrics are disabled.
func NewMetricsProvider(enabled bool, reg prometheus.Registerer) MetricsProviderInterface {
	if !enabled {
		return &noopMetrics{}
	}
	factory := promauto.With(reg)

	return &MetricsProvider{
		uploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "moodlog_uploads_total",
			Help: "Total number of upload attempts by outcome",
		}, []string{"outcome"}),

		uploadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "moodlog_upload_duration_seconds",
			Help:    "Duration of upload requests in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		busy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "moodlog_upload_busy",
			Help: "1 while an upload job is active",
		}),
	}
}

type noopMetrics struct{}

func (n *noopMetrics) IncUploads(string)                   {}
func (n *noopMetrics) ObserveUploadDuration(time.Duration) {}
func (n *noopMetrics) SetBusy(bool)                        {}
