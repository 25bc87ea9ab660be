package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PDVMetrics counts register activity.
type PDVMetrics struct {
	salesCreated      *prometheus.CounterVec
	saleFailures      *prometheus.CounterVec
	saleNumberRetries prometheus.Counter
	sessionsOpened    prometheus.Counter
	sessionsClosed    prometheus.Counter
	alertsEnqueued    *prometheus.CounterVec
	alertsDropped     *prometheus.CounterVec
	alertsFailed      *prometheus.CounterVec
}

// NewPDVMetrics registers the register metrics on the provided registerer.
func NewPDVMetrics(reg prometheus.Registerer) *PDVMetrics {
	if reg == nil {
		return &PDVMetrics{}
	}
	m := &PDVMetrics{
		salesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pdv_sales_created_total",
			Help: "Sales committed, by payment method.",
		}, []string{"payment_method"}),
		saleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pdv_sale_failures_total",
			Help: "Sales rejected or rolled back, by error code.",
		}, []string{"code"}),
		saleNumberRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdv_sale_number_retries_total",
			Help: "Sale number collisions retried.",
		}),
		sessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdv_cash_sessions_opened_total",
			Help: "Cash sessions opened.",
		}),
		sessionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdv_cash_sessions_closed_total",
			Help: "Cash sessions closed.",
		}),
		alertsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pdv_alerts_enqueued_total",
			Help: "Alerts accepted by the dispatcher queue.",
		}, []string{"type"}),
		alertsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pdv_alerts_dropped_total",
			Help: "Alerts dropped because the queue was full or closed.",
		}, []string{"type"}),
		alertsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pdv_alerts_failed_total",
			Help: "Alert deliveries that failed, by sink.",
		}, []string{"sink"}),
	}
	reg.MustRegister(
		m.salesCreated,
		m.saleFailures,
		m.saleNumberRetries,
		m.sessionsOpened,
		m.sessionsClosed,
		m.alertsEnqueued,
		m.alertsDropped,
		m.alertsFailed,
	)
	return m
}

func (m *PDVMetrics) IncSaleCreated(paymentMethod string) {
	if m == nil || m.salesCreated == nil {
		return
	}
	m.salesCreated.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

func (m *PDVMetrics) IncSaleFailure(code string) {
	if m == nil || m.saleFailures == nil {
		return
	}
	m.saleFailures.WithLabelValues(normalizeLabel(code)).Inc()
}

func (m *PDVMetrics) IncSaleNumberRetry() {
	if m == nil || m.saleNumberRetries == nil {
		return
	}
	m.saleNumberRetries.Inc()
}

func (m *PDVMetrics) IncSessionOpened() {
	if m == nil || m.sessionsOpened == nil {
		return
	}
	m.sessionsOpened.Inc()
}

func (m *PDVMetrics) IncSessionClosed() {
	if m == nil || m.sessionsClosed == nil {
		return
	}
	m.sessionsClosed.Inc()
}

func (m *PDVMetrics) IncAlertEnqueued(alertType string) {
	if m == nil || m.alertsEnqueued == nil {
		return
	}
	m.alertsEnqueued.WithLabelValues(normalizeLabel(alertType)).Inc()
}

func (m *PDVMetrics) IncAlertDropped(alertType string) {
	if m == nil || m.alertsDropped == nil {
		return
	}
	m.alertsDropped.WithLabelValues(normalizeLabel(alertType)).Inc()
}

func (m *PDVMetrics) IncAlertFailed(sink string) {
	if m == nil || m.alertsFailed == nil {
		return
	}
	m.alertsFailed.WithLabelValues(normalizeLabel(sink)).Inc()
}
