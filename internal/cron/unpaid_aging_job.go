package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/garageworks/garage-backend/internal/invoices"
	"github.com/garageworks/garage-backend/pkg/logger"
)

const defaultAgingDays = 30

type agingReporter interface {
	AgedUnpaid(ctx context.Context, olderThan time.Duration) (invoices.AgingReport, error)
}

type agingGauge interface {
	SetAgedUnpaid(count int, amount float64)
}

// UnpaidAgingJobParams configures the unpaid invoice aging job.
type UnpaidAgingJobParams struct {
	Logger   *logger.Logger
	Invoices agingReporter
	Metrics  agingGauge
	Days     int
}

// NewUnpaidAgingJob publishes totals of invoices left unpaid for more than Days.
func NewUnpaidAgingJob(params UnpaidAgingJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoices service required")
	}
	days := params.Days
	if days <= 0 {
		days = defaultAgingDays
	}
	return &unpaidAgingJob{
		logg:     params.Logger,
		invoices: params.Invoices,
		metrics:  params.Metrics,
		days:     days,
	}, nil
}

type unpaidAgingJob struct {
	logg     *logger.Logger
	invoices agingReporter
	metrics  agingGauge
	days     int
}

func (j *unpaidAgingJob) Name() string { return "unpaid-invoice-aging" }

func (j *unpaidAgingJob) Run(ctx context.Context) error {
	report, err := j.invoices.AgedUnpaid(ctx, time.Duration(j.days)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("aged unpaid invoices: %w", err)
	}
	amount := report.Amount.InexactFloat64()
	if j.metrics != nil {
		j.metrics.SetAgedUnpaid(report.Count, amount)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"count":  report.Count,
		"amount": report.Amount.StringFixed(2),
		"cutoff": report.Cutoff,
		"days":   j.days,
	})
	j.logg.Info(logCtx, "unpaid invoice aging complete")
	return nil
}
