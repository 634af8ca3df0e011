package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for Praxis
type Metrics struct {
	// Task queue metrics
	TasksEnqueued  *prometheus.CounterVec
	TasksProcessed *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	QueueDepth     *prometheus.GaugeVec

	// Training session metrics
	SessionsTotal    *prometheus.CounterVec
	SessionDuration  *prometheus.HistogramVec
	PlatformRequests *prometheus.CounterVec
	PlatformLatency  *prometheus.HistogramVec

	// Self-training metrics
	CapabilityScore *prometheus.GaugeVec
	GoalsTotal      *prometheus.GaugeVec
	FeedbackPending prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics.
// Registration with promauto must happen once per process.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			TasksEnqueued: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "praxis_tasks_enqueued_total",
					Help: "Total number of tasks enqueued per worker",
				},
				[]string{"worker", "type"},
			),
			TasksProcessed: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "praxis_tasks_processed_total",
					Help: "Total number of tasks processed per worker",
				},
				[]string{"worker", "type", "result"},
			),
			TaskDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "praxis_task_duration_seconds",
					Help:    "Duration of task processing in seconds",
					Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
				},
				[]string{"worker", "type"},
			),
			QueueDepth: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "praxis_queue_depth",
					Help: "Number of tasks currently waiting per worker queue",
				},
				[]string{"worker"},
			),

			SessionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "praxis_training_sessions_total",
					Help: "Total number of training sessions by mode and outcome",
				},
				[]string{"mode", "status"},
			),
			SessionDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "praxis_training_session_duration_seconds",
					Help:    "Duration of training sessions in seconds",
					Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to 512s
				},
				[]string{"mode"},
			),
			PlatformRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "praxis_platform_requests_total",
					Help: "Total number of chat platform requests by result",
				},
				[]string{"platform", "result"},
			),
			PlatformLatency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "praxis_platform_latency_seconds",
					Help:    "Latency of chat platform requests in seconds",
					Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
				},
				[]string{"platform"},
			),

			CapabilityScore: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "praxis_capability_score",
					Help: "Current capability score per area (0 to 1)",
				},
				[]string{"area"},
			),
			GoalsTotal: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "praxis_goals_total",
					Help: "Number of goals by status",
				},
				[]string{"status"},
			),
			FeedbackPending: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "praxis_feedback_pending",
					Help: "Number of unresolved feedback requests",
				},
			),

			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "praxis_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "praxis_http_request_duration_seconds",
					Help:    "Duration of HTTP requests in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "path"},
			),
		}
	})
	return sharedMetrics
}
