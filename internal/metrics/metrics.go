package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics собирает счетчики бота. Нулевой указатель допустим: все методы
// становятся no-op, поэтому компоненты можно создавать без реестра.
type Metrics struct {
	transitions     *prometheus.CounterVec
	invoices        *prometheus.CounterVec
	paymentChecks   *prometheus.CounterVec
	activations     *prometheus.CounterVec
	removalOrders   prometheus.Counter
	gatewayDuration *prometheus.HistogramVec
	storeErrors     *prometheus.CounterVec
	reconciled      *prometheus.CounterVec
}

func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_state_transitions_total",
				Help: "Conversation state transitions",
			},
			[]string{"from", "to"},
		),
		invoices: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_invoices_total",
				Help: "Invoice creation attempts by outcome",
			},
			[]string{"currency", "outcome"},
		),
		paymentChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_payment_checks_total",
				Help: "Payment status checks requested by users",
			},
			[]string{"result"},
		),
		activations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_subscriptions_activated_total",
				Help: "Subscriptions activated after a confirmed payment",
			},
			[]string{"plan", "source"},
		),
		removalOrders: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bot_removal_orders_total",
				Help: "Accepted account removal orders",
			},
		),
		gatewayDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bot_gateway_request_duration_seconds",
				Help:    "Crypto Pay API request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "outcome"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_store_errors_total",
				Help: "Subscription store failures",
			},
			[]string{"op"},
		),
		reconciled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_reconciled_invoices_total",
				Help: "Orphaned invoices processed by the reconciler",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) InvoiceCreated(currency string) {
	if m == nil {
		return
	}
	m.invoices.WithLabelValues(currency, "created").Inc()
}

func (m *Metrics) InvoiceFailed(currency string) {
	if m == nil {
		return
	}
	m.invoices.WithLabelValues(currency, "failed").Inc()
}

func (m *Metrics) PaymentCheck(result string) {
	if m == nil {
		return
	}
	m.paymentChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) SubscriptionActivated(planID, source string) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(planID, source).Inc()
}

func (m *Metrics) RemovalOrder() {
	if m == nil {
		return
	}
	m.removalOrders.Inc()
}

func (m *Metrics) ObserveGateway(method string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gatewayDuration.WithLabelValues(method, outcome).Observe(time.Since(started).Seconds())
}

func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) Reconciled(result string) {
	if m == nil {
		return
	}
	m.reconciled.WithLabelValues(result).Inc()
}
