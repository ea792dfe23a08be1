package cron

import (
	"context"
	"fmt"

	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/garageworks/garage-backend/pkg/logger"
)

const lowStockSampleSize = 20

type lowStockLister interface {
	LowStock(ctx context.Context) ([]models.Part, error)
}

type lowStockGauge interface {
	SetLowStockParts(count int)
}

// LowStockJobParams configures the low stock scan.
type LowStockJobParams struct {
	Logger  *logger.Logger
	Parts   lowStockLister
	Metrics lowStockGauge
}

// NewLowStockJob reports parts at or below their reorder level.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Parts == nil {
		return nil, fmt.Errorf("parts service required")
	}
	return &lowStockJob{
		logg:    params.Logger,
		parts:   params.Parts,
		metrics: params.Metrics,
	}, nil
}

type lowStockJob struct {
	logg    *logger.Logger
	parts   lowStockLister
	metrics lowStockGauge
}

func (j *lowStockJob) Name() string { return "low-stock-scan" }

func (j *lowStockJob) Run(ctx context.Context) error {
	items, err := j.parts.LowStock(ctx)
	if err != nil {
		return fmt.Errorf("list low stock parts: %w", err)
	}
	if j.metrics != nil {
		j.metrics.SetLowStockParts(len(items))
	}

	sample := make([]map[string]any, 0, min(len(items), lowStockSampleSize))
	for _, p := range items {
		if len(sample) == lowStockSampleSize {
			break
		}
		sample = append(sample, map[string]any{
			"part_id":       p.ID.String(),
			"name":          p.PartName,
			"stock":         p.QuantityInStock,
			"reorder_level": p.ReorderLevel,
		})
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"count": len(items),
		"parts": sample,
	})
	if len(items) > 0 {
		j.logg.Warn(logCtx, "parts at or below reorder level")
		return nil
	}
	j.logg.Info(logCtx, "low stock scan complete")
	return nil
}
