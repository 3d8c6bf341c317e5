package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderingMetrics counts checkout, order, webhook and outbox outcomes.
type OrderingMetrics struct {
	sessions *prometheus.CounterVec
	orders   *prometheus.CounterVec
	webhooks *prometheus.CounterVec
	emails   *prometheus.CounterVec
	outbox   *prometheus.CounterVec
	gateway  *prometheus.HistogramVec
}

// NewOrderingMetrics registers the pipeline metrics on reg. A nil reg yields
// a no-op recorder.
func NewOrderingMetrics(reg prometheus.Registerer) *OrderingMetrics {
	if reg == nil {
		return &OrderingMetrics{}
	}
	m := &OrderingMetrics{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_total",
			Help:      "Payment sessions requested, by result.",
		}, []string{"result"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders materialized, by payment method.",
		}, []string{"payment_method"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Payment webhook events, by type and outcome.",
		}, []string{"type", "outcome"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_notifications_total",
			Help:      "Order event emails, by outcome.",
		}, []string{"outcome"}),
		outbox: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_publish_total",
			Help:      "Outbox rows handed to the broker, by outcome.",
		}, []string{"outcome"}),
		gateway: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_call_duration_seconds",
			Help:      "Latency of payment gateway calls.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 15, 30},
		}, []string{"operation"}),
	}
	reg.MustRegister(m.sessions, m.orders, m.webhooks, m.emails, m.outbox, m.gateway)
	return m
}

func (m *OrderingMetrics) SessionResult(result string) {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *OrderingMetrics) OrderCreated(paymentMethod string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

func (m *OrderingMetrics) WebhookEvent(eventType, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *OrderingMetrics) NotificationResult(outcome string) {
	if m == nil || m.emails == nil {
		return
	}
	m.emails.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *OrderingMetrics) OutboxPublish(outcome string) {
	if m == nil || m.outbox == nil {
		return
	}
	m.outbox.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *OrderingMetrics) ObserveGateway(operation string, d time.Duration) {
	if m == nil || m.gateway == nil {
		return
	}
	m.gateway.WithLabelValues(normalizeLabel(operation)).Observe(d.Seconds())
}
