package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics records assignment state transitions and webhook handling.
type WorkflowMetrics struct {
	transitions   *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewWorkflowMetrics registers the workflow metrics on the provided registerer.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_transitions_total",
		Help: "Assignment state transitions by action and outcome.",
	}, []string{"action", "outcome"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_webhook_events_total",
		Help: "Billing webhook events by type and outcome.",
	}, []string{"event_type", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workflow_operation_duration_seconds",
		Help:    "Duration of workflow operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(transitions, webhookEvents, duration)
	return &WorkflowMetrics{
		transitions:   transitions,
		webhookEvents: webhookEvents,
		duration:      duration,
	}
}

// IncTransition counts a transition attempt for the named action.
func (w *WorkflowMetrics) IncTransition(action, outcome string) {
	if w == nil || w.transitions == nil {
		return
	}
	w.transitions.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

// IncWebhookEvent counts a processed webhook event.
func (w *WorkflowMetrics) IncWebhookEvent(eventType, outcome string) {
	if w == nil || w.webhookEvents == nil {
		return
	}
	w.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveDuration records the duration for the named operation.
func (w *WorkflowMetrics) ObserveDuration(operation string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
