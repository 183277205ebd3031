package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric names accepted by PrometheusMetrics
const (
	MetricAPIError            = "api.error"
	MetricAuthenticationEvent = "authentication_event"
	MetricBudgetNotification  = "budget.notification"
	MetricBudgetCheck         = "budget.check"
	MetricTaskPublished       = "task.published"
	MetricTaskProcessed       = "task.processed"
	MetricCircuitBreakerState = "circuit_breaker.state"
	MetricBudgetSweep         = "budget.sweep"
	MetricTaskProcessing      = "task.processing"
	MetricActiveBudgets       = "budgets.active"
)

type PrometheusMetrics struct {
	apiErrorsTotal            *prometheus.CounterVec
	authenticationEventsTotal *prometheus.CounterVec
	budgetNotificationsTotal  *prometheus.CounterVec
	budgetChecksTotal         *prometheus.CounterVec
	tasksPublishedTotal       *prometheus.CounterVec
	tasksProcessedTotal       *prometheus.CounterVec
	circuitBreakerState       *prometheus.GaugeVec
	activeBudgets             prometheus.Gauge
	sweepDuration             prometheus.Histogram
	taskDuration              prometheus.Histogram
}

// NewPrometheusMetrics registers the collectors on reg. The container passes its
// own registry so /metrics only exposes what this process registers.
func NewPrometheusMetrics(reg prometheus.Registerer) MetricsRecorderInterface {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		apiErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_errors_total",
				Help: "Total number of API error responses by error code",
			},
			[]string{"code", "status"},
		),
		authenticationEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authentication_events_total",
				Help: "Total number of authentication events",
			},
			[]string{"event_type"},
		),
		budgetNotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_notifications_total",
				Help: "Total number of budget threshold notifications",
			},
			[]string{"level", "status"},
		),
		budgetChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_checks_total",
				Help: "Total number of budget threshold evaluations",
			},
			[]string{"result"},
		),
		tasksPublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasks_published_total",
				Help: "Total number of background tasks published",
			},
			[]string{"type", "status"},
		),
		tasksProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasks_processed_total",
				Help: "Total number of background tasks processed by the worker",
			},
			[]string{"type", "status"},
		),
		circuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"service"},
		),
		activeBudgets: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "budgets_swept_last_run",
				Help: "Number of budgets evaluated by the last periodic sweep",
			},
		),
		sweepDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "budget_sweep_duration_milliseconds",
				Help:    "Budget sweep duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 16),
			},
		),
		taskDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "task_processing_duration_milliseconds",
				Help:    "Background task processing duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
	}
}

func (m *PrometheusMetrics) IncrementCounter(name string, tags map[string]string) {
	status := tags["status"]

	switch name {
	case MetricAPIError:
		m.apiErrorsTotal.WithLabelValues(tags["code"], status).Inc()
	case MetricAuthenticationEvent:
		if eventType := tags["event_type"]; eventType != "" {
			m.authenticationEventsTotal.WithLabelValues(eventType).Inc()
		}
	case MetricBudgetNotification:
		m.budgetNotificationsTotal.WithLabelValues(tags["level"], status).Inc()
	case MetricBudgetCheck:
		if result := tags["result"]; result != "" {
			m.budgetChecksTotal.WithLabelValues(result).Inc()
		}
	case MetricTaskPublished:
		m.tasksPublishedTotal.WithLabelValues(tags["type"], status).Inc()
	case MetricTaskProcessed:
		m.tasksProcessedTotal.WithLabelValues(tags["type"], status).Inc()
	}
}

func (m *PrometheusMetrics) RecordProcessingTime(name string, duration time.Duration) {
	switch name {
	case MetricBudgetSweep:
		m.sweepDuration.Observe(float64(duration.Milliseconds()))
	case MetricTaskProcessing:
		m.taskDuration.Observe(float64(duration.Milliseconds()))
	}
}

func (m *PrometheusMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	switch name {
	case MetricCircuitBreakerState:
		m.circuitBreakerState.WithLabelValues(tags["service"]).Set(value)
	case MetricActiveBudgets:
		m.activeBudgets.Set(value)
	}
}
