package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWorkflowMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkflowMetrics(reg)

	m.IncTransition("accept", "success")
	m.IncTransition("accept", "success")
	m.IncTransition("complete", "rejected")
	m.IncWebhookEvent("customer.subscription.updated", "applied")
	m.ObserveDuration("complete", 125*time.Millisecond)

	if got := testutil.ToFloat64(m.transitions.WithLabelValues("accept", "success")); got != 2 {
		t.Fatalf("expected 2 accept successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("complete", "rejected")); got != 1 {
		t.Fatalf("expected 1 rejected completion, got %v", got)
	}
	if got := testutil.ToFloat64(m.webhookEvents.WithLabelValues("customer.subscription.updated", "applied")); got != 1 {
		t.Fatalf("expected 1 webhook event, got %v", got)
	}
}

func TestWorkflowMetricsNilSafe(t *testing.T) {
	var m *WorkflowMetrics
	m.IncTransition("accept", "success")
	m.ObserveDuration("accept", time.Second)

	empty := NewWorkflowMetrics(nil)
	empty.IncTransition("", "")
	empty.IncWebhookEvent("", "")
}
