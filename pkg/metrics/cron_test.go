package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	metrics.now = func() time.Time { return time.Unix(1767225600, 0) }
	job := "voucher_expiry"
	metrics.ObserveRun(job, 250*time.Millisecond, nil)
	metrics.ObserveRun(job, 10*time.Millisecond, errors.New("boom"))
	metrics.IncSkippedCycle()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "cron_job_runs_total", "outcome", "success"); err != nil || got != 1 {
		t.Fatalf("expected success=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "cron_job_runs_total", "outcome", "failure"); err != nil || got != 1 {
		t.Fatalf("expected failure=1, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "cron_job_duration_seconds", "job", job); err != nil || got <= 0.25 {
		t.Fatalf("expected duration sum > 0.25, got %f (%v)", got, err)
	}
	gauge := findMetricFamily(mfs, "cron_job_last_success_timestamp_seconds")
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != 1767225600 {
		t.Fatalf("expected last success timestamp to be recorded")
	}
	skipped := findMetricFamily(mfs, "cron_cycles_skipped_total")
	if skipped == nil || skipped.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one skipped cycle")
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("GET", "/api/v1/products", 200, 30*time.Millisecond)
	m.Observe("GET", "", 404, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", "route", "/api/v1/products"); err != nil || got != 1 {
		t.Fatalf("expected 1 request for route, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", "route", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown route label, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "http_request_duration_seconds", "route", "/api/v1/products"); err != nil || got <= 0 {
		t.Fatalf("expected latency sum > 0, got %f (%v)", got, err)
	}
}

func TestEventMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEventMetrics(reg)
	m.IncWebhook("payment_intent.succeeded", "processed")
	m.IncWebhook("payment_intent.succeeded", "processed")
	m.IncPublished("order_paid", "published")
	m.IncConsumed("order-emails", "", "malformed")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "payment_webhooks_total", "type", "payment_intent.succeeded"); err != nil || got != 2 {
		t.Fatalf("expected 2 webhooks, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_published_total", "event_type", "order_paid"); err != nil || got != 1 {
		t.Fatalf("expected 1 publish, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_consumed_total", "event_type", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected 1 consumed with unknown type, got %f (%v)", got, err)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var cron *CronJobMetrics
	cron.ObserveRun("x", time.Second, nil)
	cron.IncSkippedCycle()
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Second)
	NewEventMetrics(nil).IncWebhook("x", "y")
	NewEventMetrics(nil).IncConsumed("c", "x", "y")
}
