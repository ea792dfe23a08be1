package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/garageworks/garage-backend/pkg/enums"
	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
	"github.com/garageworks/garage-backend/pkg/logger"
	"github.com/garageworks/garage-backend/pkg/metrics"
	"github.com/garageworks/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Movement describes why a stock adjustment happened.
type Movement struct {
	Reason      enums.StockMovementReason
	ReferenceID *uuid.UUID
	ActorID     *uuid.UUID
	Metadata    map[string]any
}

// AdjustInput is the request behind PATCH /parts/{id}/stock.
type AdjustInput struct {
	PartID    uuid.UUID
	Operation enums.StockOperation
	Quantity  int
	ActorID   *uuid.UUID
	Note      string
}

// Service is the only writer of parts.quantity_in_stock.
type Service interface {
	// AdjustStock locks the part and applies delta inside the caller's transaction.
	AdjustStock(ctx context.Context, tx *gorm.DB, partID uuid.UUID, delta int, movement Movement) (*models.Part, error)
	// ApplyLocked applies delta to a part the caller already locked in tx.
	ApplyLocked(ctx context.Context, tx *gorm.DB, part *models.Part, delta int, movement Movement) error
	LockPart(ctx context.Context, tx *gorm.DB, partID uuid.UUID) (*models.Part, error)
	Adjust(ctx context.Context, input AdjustInput) (*models.Part, error)
	Restock(ctx context.Context, partID uuid.UUID, quantity int, actorID *uuid.UUID) (*models.Part, error)
	Subtract(ctx context.Context, partID uuid.UUID, quantity int, actorID *uuid.UUID) (*models.Part, error)
	ListMovements(ctx context.Context, partID uuid.UUID, params pagination.Params) (pagination.Page[models.StockMovement], error)
}

// ServiceParams wires the inventory ledger.
type ServiceParams struct {
	Repo    Repository
	DB      txRunner
	Logger  *logger.Logger
	Metrics *metrics.BusinessMetrics
}

type service struct {
	repo    Repository
	db      txRunner
	logg    *logger.Logger
	metrics *metrics.BusinessMetrics
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    params.Repo,
		db:      params.DB,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// InsufficientStockError builds the error returned when a part cannot cover a request.
func InsufficientStockError(part *models.Part, requested int) error {
	return pkgerrors.New(
		pkgerrors.CodeInsufficient,
		fmt.Sprintf("Insufficient stock for part %s. Available: %d", part.PartName, part.QuantityInStock),
	).WithDetails(map[string]any{
		"part_id":   part.ID,
		"part_name": part.PartName,
		"available": part.QuantityInStock,
		"requested": requested,
	})
}

func (s *service) LockPart(ctx context.Context, tx *gorm.DB, partID uuid.UUID) (*models.Part, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	part, err := s.repo.WithTx(tx).LockPart(ctx, partID)
	if err != nil {
		return nil, mapPartErr(err, partID)
	}
	return part, nil
}

func (s *service) AdjustStock(ctx context.Context, tx *gorm.DB, partID uuid.UUID, delta int, movement Movement) (*models.Part, error) {
	part, err := s.LockPart(ctx, tx, partID)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyLocked(ctx, tx, part, delta, movement); err != nil {
		return nil, err
	}
	return part, nil
}

func (s *service) ApplyLocked(ctx context.Context, tx *gorm.DB, part *models.Part, delta int, movement Movement) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if part == nil {
		return fmt.Errorf("part required")
	}
	if delta == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock delta must be non-zero")
	}
	if !movement.Reason.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid stock movement reason %q", movement.Reason)
	}

	next := part.QuantityInStock + delta
	if next < 0 {
		s.metrics.InsufficientStock()
		return InsufficientStockError(part, -delta)
	}

	repo := s.repo.WithTx(tx)
	if err := repo.SetQuantity(ctx, part.ID, next); err != nil {
		return mapPartErr(err, part.ID)
	}

	record := &models.StockMovement{
		PartID:        part.ID,
		Delta:         delta,
		QuantityAfter: next,
		Reason:        movement.Reason,
		ReferenceID:   movement.ReferenceID,
		ActorID:       movement.ActorID,
	}
	if len(movement.Metadata) > 0 {
		record.Metadata = datatypes.JSONMap(movement.Metadata)
	}
	if err := repo.CreateMovement(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record stock movement")
	}

	part.QuantityInStock = next
	s.metrics.StockAdjusted(movement.Reason.String())
	return nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.Part, error) {
	if input.PartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	if !input.Operation.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operation must be add or subtract")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	reason := enums.StockMovementReasonAdjustment
	if input.Operation == enums.StockOperationAdd {
		reason = enums.StockMovementReasonRestock
	}
	movement := Movement{Reason: reason, ActorID: input.ActorID}
	if input.Note != "" {
		movement.Metadata = map[string]any{"note": input.Note}
	}

	var part *models.Part
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		part, err = s.AdjustStock(ctx, tx, input.PartID, input.Operation.Sign()*input.Quantity, movement)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithPartID(ctx, part.ID)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"operation":         input.Operation,
			"quantity":          input.Quantity,
			"quantity_in_stock": part.QuantityInStock,
		})
		s.logg.Info(logCtx, "stock adjusted")
		if part.IsLowStock() {
			s.logg.Warn(logCtx, "part at or below reorder level")
		}
	}
	return part, nil
}

func (s *service) Restock(ctx context.Context, partID uuid.UUID, quantity int, actorID *uuid.UUID) (*models.Part, error) {
	return s.Adjust(ctx, AdjustInput{PartID: partID, Operation: enums.StockOperationAdd, Quantity: quantity, ActorID: actorID})
}

func (s *service) Subtract(ctx context.Context, partID uuid.UUID, quantity int, actorID *uuid.UUID) (*models.Part, error) {
	return s.Adjust(ctx, AdjustInput{PartID: partID, Operation: enums.StockOperationSubtract, Quantity: quantity, ActorID: actorID})
}

func (s *service) ListMovements(ctx context.Context, partID uuid.UUID, params pagination.Params) (pagination.Page[models.StockMovement], error) {
	if _, err := s.repo.FindPart(ctx, partID); err != nil {
		return pagination.Page[models.StockMovement]{}, mapPartErr(err, partID)
	}
	items, total, err := s.repo.ListMovements(ctx, partID, params)
	if err != nil {
		return pagination.Page[models.StockMovement]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stock movements")
	}
	return pagination.NewPage(items, params, total), nil
}

func mapPartErr(err error, partID uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "part not found").WithDetails(map[string]any{"part_id": partID})
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load part")
}
