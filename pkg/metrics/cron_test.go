package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// sample returns the series of family name whose labels include every pair
// in want, failing the test when there is none.
func sample(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			if hasLabels(m, want) {
				return m
			}
		}
		t.Fatalf("%s has no series with labels %v", name, want)
	}
	t.Fatalf("metric %s not registered", name)
	return nil
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, pair := range m.GetLabel() {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func TestCronJobMetricsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.ObserveDuration("low-stock-scan", 250*time.Millisecond)
	m.IncSuccess("low-stock-scan")
	m.IncFailure("unpaid-invoice-aging")
	m.IncFailure("")

	job := map[string]string{"job": "low-stock-scan"}
	require.Equal(t, 1.0, sample(t, reg, "garage_job_success_total", job).GetCounter().GetValue())
	require.InDelta(t, 0.25, sample(t, reg, "garage_job_duration_seconds", job).GetHistogram().GetSampleSum(), 1e-9)
	require.Equal(t, 1.0, sample(t, reg, "garage_job_failure_total", map[string]string{"job": "unpaid-invoice-aging"}).GetCounter().GetValue())
	require.Equal(t, 1.0, sample(t, reg, "garage_job_failure_total", map[string]string{"job": "unknown"}).GetCounter().GetValue())
}

func TestCronJobMetricsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.SetLowStockParts(4)
	m.SetAgedUnpaid(2, 1500.5)
	m.SetLowStockParts(3)

	require.Equal(t, 3.0, sample(t, reg, "garage_parts_low_stock", nil).GetGauge().GetValue())
	require.Equal(t, 2.0, sample(t, reg, "garage_invoices_unpaid_aged", nil).GetGauge().GetValue())
	require.Equal(t, 1500.5, sample(t, reg, "garage_invoices_unpaid_aged_amount", nil).GetGauge().GetValue())
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewCronJobMetrics(nil).SetLowStockParts(1)
	NewCronJobMetrics(nil).IncFailure("x")
	NewBusinessMetrics(nil).ServiceCreated()
	NewHTTPMetrics(nil).Observe("GET", "/api/parts", 200, time.Millisecond)
}

func TestBusinessMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusinessMetrics(reg)
	m.ServiceCreated()
	m.InvoiceCreated(1044)
	m.InvoiceCreated(56)
	m.InvoicePaid()
	m.StockAdjusted("service_usage")
	m.StockAdjusted("service_usage")
	m.StockAdjusted("restock")
	m.InsufficientStock()

	require.Equal(t, 2.0, sample(t, reg, "garage_stock_adjustments_total", map[string]string{"reason": "service_usage"}).GetCounter().GetValue())
	require.Equal(t, 1.0, sample(t, reg, "garage_stock_adjustments_total", map[string]string{"reason": "restock"}).GetCounter().GetValue())
	require.Equal(t, 2.0, sample(t, reg, "garage_invoices_created_total", nil).GetCounter().GetValue())
	require.Equal(t, 1100.0, sample(t, reg, "garage_invoiced_amount_total", nil).GetCounter().GetValue())
	require.Equal(t, 1.0, sample(t, reg, "garage_insufficient_stock_total", nil).GetCounter().GetValue())
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("POST", "/api/services", 201, 20*time.Millisecond)
	m.Observe("POST", "/api/services", 409, 5*time.Millisecond)

	require.Equal(t, 1.0, sample(t, reg, "garage_http_requests_total", map[string]string{"route": "/api/services", "status": "201"}).GetCounter().GetValue())
	require.Equal(t, 1.0, sample(t, reg, "garage_http_requests_total", map[string]string{"status": "409"}).GetCounter().GetValue())
	require.Greater(t, sample(t, reg, "garage_http_request_duration_seconds", map[string]string{"route": "/api/services"}).GetHistogram().GetSampleSum(), 0.0)
}
