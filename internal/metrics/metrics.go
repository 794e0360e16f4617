// Package metrics exports payment session counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "presto"

// Metrics holds the session counters. A nil *Metrics records nothing.
type Metrics struct {
	InvoicesCreated prometheus.Counter
	InvoiceErrors   prometheus.Counter
	SessionsFunded  prometheus.Counter
	TxPushed        prometheus.Counter
	Messages        *prometheus.CounterVec
}

// New creates the counters and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InvoicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_total",
			Help:      "Invoices created or loaded.",
		}),
		InvoiceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_errors_total",
			Help:      "Invoice service calls that failed.",
		}),
		SessionsFunded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_funded_total",
			Help:      "Sessions whose amount due reached zero.",
		}),
		TxPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_pushed_total",
			Help:      "Signed transactions pushed to the payment UI.",
		}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embed_messages_total",
			Help:      "Inbound UI messages handled, by event.",
		}, []string{"event"}),
	}
	if reg != nil {
		reg.MustRegister(m.InvoicesCreated, m.InvoiceErrors, m.SessionsFunded, m.TxPushed, m.Messages)
	}
	return m
}

func (m *Metrics) InvoiceCreated() {
	if m != nil {
		m.InvoicesCreated.Inc()
	}
}

func (m *Metrics) InvoiceFailed() {
	if m != nil {
		m.InvoiceErrors.Inc()
	}
}

func (m *Metrics) Funded() {
	if m != nil {
		m.SessionsFunded.Inc()
	}
}

func (m *Metrics) Pushed() {
	if m != nil {
		m.TxPushed.Inc()
	}
}

// Message counts one handled inbound message.
func (m *Metrics) Message(event string) {
	if m != nil {
		m.Messages.WithLabelValues(event).Inc()
	}
}
