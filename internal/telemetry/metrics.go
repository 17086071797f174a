package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for the cart and checkout funnel.
// A nil *BusinessMetrics is valid and records nothing, so services can run without one.
type BusinessMetrics struct {
	CartMutations     *prometheus.CounterVec
	CartRejected      *prometheus.CounterVec
	CouponAttempts    *prometheus.CounterVec
	CheckoutBlocked   *prometheus.CounterVec
	OrdersCreated     *prometheus.CounterVec
	OrderValue        *prometheus.HistogramVec
	PaymentEvents     *prometheus.CounterVec
	OrdersExpired     prometheus.Counter
	WebsocketSessions prometheus.Gauge
}

// NewBusinessMetrics creates and registers all business metrics on reg
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "storefront"
	}
	factory := promauto.With(reg)
	subsystem := "business"

	return &BusinessMetrics{
		CartMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_mutations_total",
				Help:      "Total accepted cart mutations",
			},
			[]string{"action"}, // action: add, update, remove, clear
		),
		CartRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_rejected_total",
				Help:      "Total cart mutations refused before reaching storage",
			},
			[]string{"reason"}, // reason: invalid_quantity, in_flight
		),
		CouponAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "coupon_attempts_total",
				Help:      "Total coupon submissions by outcome",
			},
			[]string{"outcome"}, // outcome: applied, rejected, pending, failed
		),
		CheckoutBlocked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_blocked_total",
				Help:      "Total checkout attempts refused",
			},
			[]string{"reason"}, // reason: empty_cart, stock_exceeded, coupon_rejected
		),
		OrdersCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_created_total",
				Help:      "Total orders placed",
			},
			[]string{"payment_method"},
		),
		OrderValue: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value_cents",
				Help:      "Order grand totals in cents",
				Buckets:   []float64{1000, 2500, 5000, 10000, 25000, 50000, 100000, 250000},
			},
			[]string{"payment_method"},
		),
		PaymentEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payment_events_total",
				Help:      "Total payment provider webhook events by type and result",
			},
			[]string{"type", "result"},
		),
		OrdersExpired: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_expired_total",
				Help:      "Total unpaid orders cancelled by the expiry job",
			},
		),
		WebsocketSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "websocket_sessions",
				Help:      "Open cart sync websocket sessions",
			},
		),
	}
}

func (m *BusinessMetrics) RecordCartMutation(action string) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(action).Inc()
}

func (m *BusinessMetrics) RecordCartRejected(reason string) {
	if m == nil {
		return
	}
	m.CartRejected.WithLabelValues(reason).Inc()
}

func (m *BusinessMetrics) RecordCouponAttempt(outcome string) {
	if m == nil {
		return
	}
	m.CouponAttempts.WithLabelValues(outcome).Inc()
}

func (m *BusinessMetrics) RecordCheckoutBlocked(reason string) {
	if m == nil {
		return
	}
	m.CheckoutBlocked.WithLabelValues(reason).Inc()
}

func (m *BusinessMetrics) RecordOrder(paymentMethod string, totalCents int64) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(paymentMethod).Inc()
	m.OrderValue.WithLabelValues(paymentMethod).Observe(float64(totalCents))
}

func (m *BusinessMetrics) RecordPaymentEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.PaymentEvents.WithLabelValues(eventType, result).Inc()
}

func (m *BusinessMetrics) RecordOrdersExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.OrdersExpired.Add(float64(n))
}

func (m *BusinessMetrics) WebsocketOpened() {
	if m == nil {
		return
	}
	m.WebsocketSessions.Inc()
}

func (m *BusinessMetrics) WebsocketClosed() {
	if m == nil {
		return
	}
	m.WebsocketSessions.Dec()
}
