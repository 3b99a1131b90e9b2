package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics counts payment and order outcomes.
type CheckoutMetrics struct {
	paymentsBegun   prometheus.Counter
	paymentOutcomes *prometheus.CounterVec
	ordersPlaced    prometheus.Counter
	unreconciled    prometheus.Counter
	reconciled      prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	m := &CheckoutMetrics{
		paymentsBegun: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_payments_begun_total",
			Help: "Payment sessions opened at the gateway.",
		}),
		paymentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_payment_outcomes_total",
			Help: "Terminal payment outcomes observed by checkout.",
		}, []string{"outcome"}),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_orders_placed_total",
			Help: "Orders recorded after a successful payment.",
		}),
		unreconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_unreconciled_payments_total",
			Help: "Successful payments whose order could not be recorded.",
		}),
		reconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_reconciled_payments_total",
			Help: "Unrecorded payments later turned into orders.",
		}),
	}
	reg.MustRegister(m.paymentsBegun, m.paymentOutcomes, m.ordersPlaced, m.unreconciled, m.reconciled)
	return m
}

// IncPaymentsBegun counts a new gateway session.
func (m *CheckoutMetrics) IncPaymentsBegun() {
	if m == nil || m.paymentsBegun == nil {
		return
	}
	m.paymentsBegun.Inc()
}

// IncOutcome counts a terminal gateway outcome.
func (m *CheckoutMetrics) IncOutcome(outcome string) {
	if m == nil || m.paymentOutcomes == nil {
		return
	}
	m.paymentOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncOrdersPlaced counts a recorded order.
func (m *CheckoutMetrics) IncOrdersPlaced() {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.Inc()
}

// IncUnreconciled counts a paid attempt left without an order.
func (m *CheckoutMetrics) IncUnreconciled() {
	if m == nil || m.unreconciled == nil {
		return
	}
	m.unreconciled.Inc()
}

// IncReconciled counts an unrecorded attempt that was recovered.
func (m *CheckoutMetrics) IncReconciled() {
	if m == nil || m.reconciled == nil {
		return
	}
	m.reconciled.Inc()
}
