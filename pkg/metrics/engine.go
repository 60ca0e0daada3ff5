package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
)

// EngineMetrics counts order lifecycle and ledger activity.
type EngineMetrics struct {
	ordersCreated    prometheus.Counter
	transitions      *prometheus.CounterVec
	paymentsRecorded *prometheus.CounterVec
	paymentsRejected *prometheus.CounterVec
	partialWrites    *prometheus.CounterVec
	paymentAmount    prometheus.Histogram
}

// NewEngineMetrics registers the engine metrics. A nil registerer yields a no-op recorder.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	m := &EngineMetrics{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repairdesk_orders_created_total",
			Help: "Service orders created.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repairdesk_order_status_transitions_total",
			Help: "Status updates applied, by source and target status.",
		}, []string{"from", "to"}),
		paymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repairdesk_payments_recorded_total",
			Help: "Payments written to the ledger.",
		}, []string{"method", "kind"}),
		paymentsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repairdesk_payments_rejected_total",
			Help: "Payments refused before any write.",
		}, []string{"reason"}),
		partialWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repairdesk_partial_writes_total",
			Help: "Operations that left state needing manual reconciliation.",
		}, []string{"operation"}),
		paymentAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "repairdesk_payment_amount",
			Help:    "Distribution of recorded payment amounts.",
			Buckets: prometheus.ExponentialBuckets(10, 2.5, 10),
		}),
	}
	reg.MustRegister(m.ordersCreated, m.transitions, m.paymentsRecorded, m.paymentsRejected, m.partialWrites, m.paymentAmount)
	return m
}

func (m *EngineMetrics) OrderCreated() {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *EngineMetrics) StatusTransition(from, to enums.OrderStatus) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from.String()), normalizeLabel(to.String())).Inc()
}

func (m *EngineMetrics) PaymentRecorded(method enums.PaymentMethod, kind enums.PaymentKind, amount decimal.Decimal) {
	if m == nil || m.paymentsRecorded == nil {
		return
	}
	m.paymentsRecorded.WithLabelValues(normalizeLabel(method.String()), normalizeLabel(kind.String())).Inc()
	m.paymentAmount.Observe(amount.InexactFloat64())
}

func (m *EngineMetrics) PaymentRejected(reason string) {
	if m == nil || m.paymentsRejected == nil {
		return
	}
	m.paymentsRejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *EngineMetrics) PartialWrite(operation string) {
	if m == nil || m.partialWrites == nil {
		return
	}
	m.partialWrites.WithLabelValues(normalizeLabel(operation)).Inc()
}
