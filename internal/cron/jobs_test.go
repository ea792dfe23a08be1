package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garageworks/garage-backend/internal/invoices"
	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/garageworks/garage-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeParts struct {
	items []models.Part
	err   error
}

func (f fakeParts) LowStock(context.Context) ([]models.Part, error) { return f.items, f.err }

type fakeGauges struct {
	lowStock    int
	agedCount   int
	agedAmount  float64
	lowStockSet bool
}

func (f *fakeGauges) SetLowStockParts(count int) {
	f.lowStock = count
	f.lowStockSet = true
}

func (f *fakeGauges) SetAgedUnpaid(count int, amount float64) {
	f.agedCount = count
	f.agedAmount = amount
}

type fakeAging struct {
	report    invoices.AgingReport
	err       error
	olderThan time.Duration
}

func (f *fakeAging) AgedUnpaid(_ context.Context, olderThan time.Duration) (invoices.AgingReport, error) {
	f.olderThan = olderThan
	return f.report, f.err
}

func TestLowStockJobPublishesCount(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: &buf})
	gauges := &fakeGauges{}
	job, err := NewLowStockJob(LowStockJobParams{
		Logger: logg,
		Parts: fakeParts{items: []models.Part{
			{ID: uuid.New(), PartName: "Oil filter", QuantityInStock: 2, ReorderLevel: 5},
			{ID: uuid.New(), PartName: "Brake pads", QuantityInStock: 0, ReorderLevel: 4},
		}},
		Metrics: gauges,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 2, gauges.lowStock)
	require.Contains(t, buf.String(), "Oil filter")
	require.Contains(t, buf.String(), "parts at or below reorder level")
}

func TestLowStockJobPropagatesErrors(t *testing.T) {
	gauges := &fakeGauges{}
	job, err := NewLowStockJob(LowStockJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test", Output: &bytes.Buffer{}}),
		Parts:   fakeParts{err: errors.New("db down")},
		Metrics: gauges,
	})
	require.NoError(t, err)
	require.Error(t, job.Run(context.Background()))
	require.False(t, gauges.lowStockSet)
}

func TestUnpaidAgingJob(t *testing.T) {
	gauges := &fakeGauges{}
	aging := &fakeAging{report: invoices.AgingReport{Count: 3, Amount: decimal.RequireFromString("2550.75")}}
	job, err := NewUnpaidAgingJob(UnpaidAgingJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: &bytes.Buffer{}}),
		Invoices: aging,
		Metrics:  gauges,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, defaultAgingDays*24*time.Hour, aging.olderThan)
	require.Equal(t, 3, gauges.agedCount)
	require.InDelta(t, 2550.75, gauges.agedAmount, 0.001)
}

func TestJobConstructorsRequireDependencies(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: &bytes.Buffer{}})
	_, err := NewLowStockJob(LowStockJobParams{Logger: logg})
	require.Error(t, err)
	_, err = NewUnpaidAgingJob(UnpaidAgingJobParams{Logger: logg})
	require.Error(t, err)
	_, err = NewLowStockJob(LowStockJobParams{Parts: fakeParts{}})
	require.Error(t, err)
}
