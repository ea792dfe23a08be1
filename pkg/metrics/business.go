package metrics

import "github.com/prometheus/client_golang/prometheus"

// BusinessMetrics counts garage domain events. A nil receiver is a no-op so services can run without a registry.
type BusinessMetrics struct {
	servicesCreated   prometheus.Counter
	invoicesCreated   prometheus.Counter
	invoicesPaid      prometheus.Counter
	invoicedAmount    prometheus.Counter
	stockAdjustments  *prometheus.CounterVec
	insufficientStock prometheus.Counter
}

// NewBusinessMetrics registers the domain counters on reg.
func NewBusinessMetrics(reg prometheus.Registerer) *BusinessMetrics {
	if reg == nil {
		return nil
	}
	m := &BusinessMetrics{
		servicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "services_created_total",
			Help:      "Service records created.",
		}),
		invoicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_created_total",
			Help:      "Invoices generated from completed services.",
		}),
		invoicesPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_paid_total",
			Help:      "Invoices marked as paid.",
		}),
		invoicedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoiced_amount_total",
			Help:      "Sum of invoice totals generated.",
		}),
		stockAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_adjustments_total",
			Help:      "Inventory ledger adjustments by reason.",
		}, []string{"reason"}),
		insufficientStock: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insufficient_stock_total",
			Help:      "Adjustments refused because stock would go negative.",
		}),
	}
	reg.MustRegister(m.servicesCreated, m.invoicesCreated, m.invoicesPaid, m.invoicedAmount, m.stockAdjustments, m.insufficientStock)
	return m
}

func (m *BusinessMetrics) ServiceCreated() {
	if m == nil {
		return
	}
	m.servicesCreated.Inc()
}

// InvoiceCreated counts an invoice and adds its total.
func (m *BusinessMetrics) InvoiceCreated(total float64) {
	if m == nil {
		return
	}
	m.invoicesCreated.Inc()
	m.invoicedAmount.Add(total)
}

func (m *BusinessMetrics) InvoicePaid() {
	if m == nil {
		return
	}
	m.invoicesPaid.Inc()
}

func (m *BusinessMetrics) StockAdjusted(reason string) {
	if m == nil {
		return
	}
	m.stockAdjustments.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *BusinessMetrics) InsufficientStock() {
	if m == nil {
		return
	}
	m.insufficientStock.Inc()
}
