package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "garage"

// CronJobMetrics records run outcomes for scheduled jobs plus the gauges they maintain.
type CronJobMetrics struct {
	duration       *prometheus.HistogramVec
	success        *prometheus.CounterVec
	failure        *prometheus.CounterVec
	lowStockParts  prometheus.Gauge
	agedUnpaid     prometheus.Gauge
	agedUnpaidDebt prometheus.Gauge
}

// NewCronJobMetrics registers the cron job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of cron jobs in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		success: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_success_total",
			Help:      "Successful cron job executions.",
		}, []string{"job"}),
		failure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_failure_total",
			Help:      "Failed cron job executions.",
		}, []string{"job"}),
		lowStockParts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "parts_low_stock",
			Help:      "Parts at or below their reorder level at the last scan.",
		}),
		agedUnpaid: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "invoices_unpaid_aged",
			Help:      "Unpaid invoices older than the configured aging threshold.",
		}),
		agedUnpaidDebt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "invoices_unpaid_aged_amount",
			Help:      "Total amount owed on aged unpaid invoices.",
		}),
	}
	reg.MustRegister(m.duration, m.success, m.failure, m.lowStockParts, m.agedUnpaid, m.agedUnpaidDebt)
	return m
}

// ObserveDuration records the duration for the named job.
func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

func (c *CronJobMetrics) IncSuccess(job string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(job)).Inc()
}

func (c *CronJobMetrics) IncFailure(job string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// SetLowStockParts publishes the result of the low stock scan.
func (c *CronJobMetrics) SetLowStockParts(count int) {
	if c == nil || c.lowStockParts == nil {
		return
	}
	c.lowStockParts.Set(float64(count))
}

// SetAgedUnpaid publishes the count and outstanding amount of aged unpaid invoices.
func (c *CronJobMetrics) SetAgedUnpaid(count int, amount float64) {
	if c == nil || c.agedUnpaid == nil {
		return
	}
	c.agedUnpaid.Set(float64(count))
	c.agedUnpaidDebt.Set(amount)
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
