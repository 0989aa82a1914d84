package metrics

import "github.com/prometheus/client_golang/prometheus"

// EventMetrics counts payment webhooks plus outbox events on both the
// publishing and the consuming side.
type EventMetrics struct {
	webhooks  *prometheus.CounterVec
	published *prometheus.CounterVec
	consumed  *prometheus.CounterVec
}

// NewEventMetrics registers the event counters on the provided registerer.
func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	if reg == nil {
		return &EventMetrics{}
	}
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_total",
		Help: "Payment webhook events by type and outcome.",
	}, []string{"type", "outcome"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Outbox events by type and publish outcome.",
	}, []string{"event_type", "outcome"})
	consumed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_consumed_total",
		Help: "Delivered events by consumer, type and handling outcome.",
	}, []string{"consumer", "event_type", "outcome"})
	reg.MustRegister(webhooks, published, consumed)
	return &EventMetrics{webhooks: webhooks, published: published, consumed: consumed}
}

// IncWebhook counts a webhook event. Outcome is processed, duplicate, ignored, stale or failed.
func (m *EventMetrics) IncWebhook(eventType, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}

// IncPublished counts an outbox publish attempt. Outcome is published, retry or terminal.
func (m *EventMetrics) IncPublished(eventType, outcome string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}

// IncConsumed counts one delivery handled by consumer. Outcome is sent,
// skipped, duplicate, malformed or retry.
func (m *EventMetrics) IncConsumed(consumer, eventType, outcome string) {
	if m == nil || m.consumed == nil {
		return
	}
	m.consumed.WithLabelValues(consumer, normalizeLabel(eventType), outcome).Inc()
}
