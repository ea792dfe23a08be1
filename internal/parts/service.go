package parts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garageworks/garage-backend/internal/inventory"
	"github.com/garageworks/garage-backend/pkg/db"
	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/garageworks/garage-backend/pkg/enums"
	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
	"github.com/garageworks/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the parts catalog. Stock changes are delegated to the inventory ledger.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Part, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Part, error)
	List(ctx context.Context, input ListInput) (pagination.Page[models.Part], error)
	LowStock(ctx context.Context) ([]models.Part, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Part, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AdjustStock(ctx context.Context, input inventory.AdjustInput) (*models.Part, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	inventory inventory.Service
}

func NewService(repo Repository, tx txRunner, ledger inventory.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("parts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	return &service{repo: repo, tx: tx, inventory: ledger}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Part, error) {
	name := strings.TrimSpace(input.PartName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part_name is required")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit_price must be zero or greater")
	}
	if input.QuantityInStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity_in_stock must be zero or greater")
	}
	reorder := defaultReorderLevel
	if input.ReorderLevel != nil {
		if *input.ReorderLevel < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder_level must be zero or greater")
		}
		reorder = *input.ReorderLevel
	}
	number := normalizeOptional(input.PartNumber)

	part := &models.Part{
		PartName:     name,
		PartNumber:   number,
		Description:  normalizeOptional(input.Description),
		UnitPrice:    input.UnitPrice.Round(2),
		ReorderLevel: reorder,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if number != nil {
			exists, err := repo.PartNumberExists(ctx, *number, nil)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check part number")
			}
			if exists {
				return partNumberConflict(*number)
			}
		}
		if err := repo.Create(ctx, part); err != nil {
			if db.IsUniqueViolation(err, "") {
				return partNumberConflict(deref(number))
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create part")
		}
		if input.QuantityInStock == 0 {
			return nil
		}
		return s.inventory.ApplyLocked(ctx, tx, part, input.QuantityInStock, inventory.Movement{
			Reason:   enums.StockMovementReasonRestock,
			ActorID:  input.ActorID,
			Metadata: map[string]any{"source": "opening_stock"},
		})
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	part, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return part, nil
}

func (s *service) List(ctx context.Context, input ListInput) (pagination.Page[models.Part], error) {
	items, total, err := s.repo.List(ctx, input)
	if err != nil {
		return pagination.Page[models.Part]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list parts")
	}
	return pagination.NewPage(items, input.Pagination, total), nil
}

func (s *service) LowStock(ctx context.Context) ([]models.Part, error) {
	items, err := s.repo.ListLowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list low stock parts")
	}
	if items == nil {
		items = []models.Part{}
	}
	return items, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Part, error) {
	fields := map[string]any{}
	if input.PartName != nil {
		name := strings.TrimSpace(*input.PartName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "part_name cannot be empty")
		}
		fields["part_name"] = name
	}
	var number *string
	if input.PartNumber != nil {
		number = normalizeOptional(input.PartNumber)
		fields["part_number"] = number
	}
	if input.Description != nil {
		fields["description"] = normalizeOptional(input.Description)
	}
	if input.UnitPrice != nil {
		if input.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit_price must be zero or greater")
		}
		fields["unit_price"] = input.UnitPrice.Round(2)
	}
	if input.ReorderLevel != nil {
		if *input.ReorderLevel < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder_level must be zero or greater")
		}
		fields["reorder_level"] = *input.ReorderLevel
	}
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields supplied")
	}
	fields["updated_at"] = time.Now().UTC()

	var part *models.Part
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if number != nil {
			exists, err := repo.PartNumberExists(ctx, *number, &id)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check part number")
			}
			if exists {
				return partNumberConflict(*number)
			}
		}
		if err := repo.Update(ctx, id, fields); err != nil {
			if db.IsUniqueViolation(err, "") {
				return partNumberConflict(deref(number))
			}
			return mapNotFound(err)
		}
		var err error
		part, err = repo.FindByID(ctx, id)
		return mapNotFound(err)
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return mapNotFound(err)
		}
		used, err := repo.UsageCount(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count part usage")
		}
		if used > 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "cannot delete part that has been used in services").
				WithDetails(map[string]any{"usage_count": used})
		}
		if err := repo.Delete(ctx, id); err != nil {
			return mapNotFound(err)
		}
		return nil
	})
}

func (s *service) AdjustStock(ctx context.Context, input inventory.AdjustInput) (*models.Part, error) {
	return s.inventory.Adjust(ctx, input)
}

func partNumberConflict(number string) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "part number %s already exists", number)
}

func mapNotFound(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load part")
}

func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

