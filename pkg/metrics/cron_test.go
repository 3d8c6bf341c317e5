package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.ObserveDuration("orphan_orders", 250*time.Millisecond)
	m.IncSuccess("orphan_orders")
	m.IncSuccess("orphan_orders")
	m.IncFailure("outbox_retention")
	m.IncFailure("")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 2.0, counterValue(t, mfs, "ordering_cron_job_runs_total", map[string]string{"job": "orphan_orders", "result": "success"}))
	assert.Equal(t, 1.0, counterValue(t, mfs, "ordering_cron_job_runs_total", map[string]string{"job": "outbox_retention", "result": "failure"}))
	assert.Equal(t, 1.0, counterValue(t, mfs, "ordering_cron_job_runs_total", map[string]string{"job": "unknown", "result": "failure"}))

	h := findMetric(t, mfs, "ordering_cron_job_duration_seconds", map[string]string{"job": "orphan_orders"}).GetHistogram()
	assert.EqualValues(t, 1, h.GetSampleCount())
	assert.InDelta(t, 0.25, h.GetSampleSum(), 1e-9)
}

func TestNilRegistererIsNoop(t *testing.T) {
	var cron *CronJobMetrics
	cron.IncSuccess("x")
	NewCronJobMetrics(nil).IncFailure("x")
	NewCronJobMetrics(nil).ObserveDuration("x", time.Second)

	var ordering *OrderingMetrics
	ordering.OutboxPublish("published")
	NewOrderingMetrics(nil).WebhookEvent("checkout.session.completed", "applied")
}

func counterValue(t *testing.T, mfs []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	return findMetric(t, mfs, name, labels).GetCounter().GetValue()
}

func findMetric(t *testing.T, mfs []*dto.MetricFamily, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if hasLabels(metric, labels) {
				return metric
			}
		}
	}
	require.Failf(t, "metric not found", "%s %v", name, labels)
	return nil
}

func hasLabels(metric *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, pair := range metric.GetLabel() {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
