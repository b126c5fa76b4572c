package metrics

import (
	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PaymentMetrics exposes the counters and histograms of the payment core
type PaymentMetrics interface {
	IncCheckoutSessionCreated(mode string)
	IncCheckoutSessionFailed(mode string)
	IncWebhookEvent(eventType string, outcome string)
	IncOrderMaterialized()
	ObserveOrderTotal(amount float64)
}

// Webhook event outcomes
const (
	WebhookOutcomeHandled  = "handled"
	WebhookOutcomeIgnored  = "ignored"
	WebhookOutcomeRejected = "rejected"
	WebhookOutcomeFailed   = "failed"
)

type paymentMetrics struct {
	log              *logger.Logger
	checkoutSessions *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	ordersCreated    prometheus.Counter
	orderTotals      prometheus.Histogram
}

// NewPaymentMetrics creates the payment core metrics on the given registry
func NewPaymentMetrics(registry *prometheus.Registry, log *logger.Logger) PaymentMetrics {
	checkoutSessions := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_total",
			Help: "The total number of checkout session creations by mode and result",
		},
		[]string{"mode", "result"},
	)

	webhookEvents := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "The total number of webhook deliveries by event type and outcome",
		},
		[]string{"type", "outcome"},
	)

	ordersCreated := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "orders_materialized_total",
			Help: "The total number of orders materialized from completed checkouts",
		},
	)

	orderTotals := promauto.With(registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_total_amount",
			Help:    "Order total amounts distribution",
			Buckets: prometheus.ExponentialBuckets(5, 2, 8), // 5, 10, 20, ... 640
		},
	)

	return &paymentMetrics{
		log:              log,
		checkoutSessions: checkoutSessions,
		webhookEvents:    webhookEvents,
		ordersCreated:    ordersCreated,
		orderTotals:      orderTotals,
	}
}

// IncCheckoutSessionCreated increments the successful checkout session counter
func (m *paymentMetrics) IncCheckoutSessionCreated(mode string) {
	m.checkoutSessions.WithLabelValues(mode, "created").Inc()
}

// IncCheckoutSessionFailed increments the failed checkout session counter
func (m *paymentMetrics) IncCheckoutSessionFailed(mode string) {
	m.checkoutSessions.WithLabelValues(mode, "failed").Inc()
}

// IncWebhookEvent increments the webhook delivery counter
func (m *paymentMetrics) IncWebhookEvent(eventType string, outcome string) {
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// IncOrderMaterialized increments the materialized order counter
func (m *paymentMetrics) IncOrderMaterialized() {
	m.ordersCreated.Inc()
}

// ObserveOrderTotal records an order total
func (m *paymentMetrics) ObserveOrderTotal(amount float64) {
	m.orderTotals.Observe(amount)
}
