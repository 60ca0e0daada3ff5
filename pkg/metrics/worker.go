package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerMetrics records batch outcomes for background workers such as the outbox publisher.
type WorkerMetrics struct {
	duration  *prometheus.HistogramVec
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	parked    *prometheus.CounterVec
}

// NewWorkerMetrics registers the worker metrics on the provided registerer.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		return &WorkerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worker_batch_duration_seconds",
		Help:    "Duration of worker batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"worker"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_events_published_total",
		Help: "Events delivered by a worker.",
	}, []string{"worker"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_events_failed_total",
		Help: "Event deliveries that will be retried.",
	}, []string{"worker"})
	parked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_events_parked_total",
		Help: "Events that will never be retried.",
	}, []string{"worker"})
	reg.MustRegister(duration, published, failed, parked)
	return &WorkerMetrics{
		duration:  duration,
		published: published,
		failed:    failed,
		parked:    parked,
	}
}

func (w *WorkerMetrics) ObserveBatch(worker string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(worker)).Observe(duration.Seconds())
}

func (w *WorkerMetrics) IncPublished(worker string) {
	if w == nil || w.published == nil {
		return
	}
	w.published.WithLabelValues(normalizeLabel(worker)).Inc()
}

func (w *WorkerMetrics) IncFailed(worker string) {
	if w == nil || w.failed == nil {
		return
	}
	w.failed.WithLabelValues(normalizeLabel(worker)).Inc()
}

func (w *WorkerMetrics) IncParked(worker string) {
	if w == nil || w.parked == nil {
		return
	}
	w.parked.WithLabelValues(normalizeLabel(worker)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
