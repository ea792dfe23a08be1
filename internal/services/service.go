package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garageworks/garage-backend/internal/inventory"
	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/garageworks/garage-backend/pkg/enums"
	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
	"github.com/garageworks/garage-backend/pkg/logger"
	"github.com/garageworks/garage-backend/pkg/metrics"
	"github.com/garageworks/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type vehicleChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// stockLedger is the part of the inventory ledger a service transaction needs.
type stockLedger interface {
	LockPart(ctx context.Context, tx *gorm.DB, partID uuid.UUID) (*models.Part, error)
	ApplyLocked(ctx context.Context, tx *gorm.DB, part *models.Part, delta int, movement inventory.Movement) error
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*ServiceDetail, error)
	AddPart(ctx context.Context, serviceID uuid.UUID, input AddPartInput) (*ServiceDetail, error)
	Get(ctx context.Context, id uuid.UUID) (*ServiceDetail, error)
	List(ctx context.Context, input ListInput) (pagination.Page[ServiceSummary], error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ServiceDetail, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ServiceParams struct {
	Repo      Repository
	DB        txRunner
	Vehicles  vehicleChecker
	Inventory stockLedger
	Logger    *logger.Logger
	Metrics   *metrics.BusinessMetrics
}

type service struct {
	repo      Repository
	db        txRunner
	vehicles  vehicleChecker
	inventory stockLedger
	logg      *logger.Logger
	metrics   *metrics.BusinessMetrics
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("services repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Vehicles == nil {
		return nil, fmt.Errorf("vehicle checker required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	return &service{
		repo:      params.Repo,
		db:        params.DB,
		vehicles:  params.Vehicles,
		inventory: params.Inventory,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}, nil
}

// Create records a service and consumes its parts in one transaction.
// Any missing part or shortfall rolls back the record, every usage row and every stock change.
func (s *service) Create(ctx context.Context, input CreateInput) (*ServiceDetail, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if input.LaborCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "labor cost cannot be negative")
	}
	status := input.Status
	if status == "" {
		status = enums.ServiceStatusPending
	}
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid service status %q", status)
	}
	if input.Mileage != nil && *input.Mileage < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mileage cannot be negative")
	}
	lines := make([]PartLine, len(input.Parts))
	for i, line := range input.Parts {
		if err := validateLine(line); err != nil {
			return nil, err.WithDetails(map[string]any{"line": i})
		}
		lines[i] = roundLine(line)
	}
	laborCost := input.LaborCost.Round(2)

	exists, err := s.vehicles.Exists(ctx, input.VehicleID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
	}

	partsTotal := decimal.Zero
	for _, line := range lines {
		partsTotal = partsTotal.Add(lineSubtotal(line))
	}

	serviceDate := time.Now().UTC()
	if input.ServiceDate != nil {
		serviceDate = input.ServiceDate.UTC()
	}

	record := &models.ServiceRecord{
		VehicleID:   input.VehicleID,
		Description: description,
		ServiceDate: serviceDate,
		Mileage:     input.Mileage,
		LaborCost:   laborCost,
		PartsTotal:  partsTotal,
		TotalAmount: laborCost.Add(partsTotal),
		Status:      status,
		MechanicID:  input.MechanicID,
		Notes:       input.Notes,
		CreatedBy:   input.CreatedBy,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if input.MechanicID != nil {
			if err := s.checkMechanic(ctx, repo, *input.MechanicID); err != nil {
				return err
			}
		}
		if err := repo.Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create service record")
		}
		for _, line := range lines {
			if err := s.consume(ctx, tx, repo, record.ID, line, input.CreatedBy); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ServiceCreated()
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithServiceID(ctx, record.ID), map[string]any{
			"vehicle_id":   record.VehicleID.String(),
			"part_lines":   len(input.Parts),
			"total_amount": record.TotalAmount.StringFixed(2),
		})
		s.logg.Info(logCtx, "service recorded")
	}
	return s.Get(ctx, record.ID)
}

// AddPart consumes one more part on an existing service and recomputes its totals from every usage row.
func (s *service) AddPart(ctx context.Context, serviceID uuid.UUID, input AddPartInput) (*ServiceDetail, error) {
	if err := validateLine(input.PartLine); err != nil {
		return nil, err
	}
	line := roundLine(input.PartLine)

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.LockByID(ctx, serviceID)
		if err != nil {
			return mapNotFound(err)
		}
		invoiceID, err := repo.InvoiceID(ctx, serviceID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check service invoice")
		}
		if invoiceID != nil {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "cannot add parts to an invoiced service")
		}

		if err := s.consume(ctx, tx, repo, serviceID, line, input.ActorID); err != nil {
			return err
		}

		rows, err := repo.UsageRows(ctx, serviceID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load service parts")
		}
		partsTotal := usageTotal(rows)
		return repo.Update(ctx, serviceID, map[string]any{
			"parts_total":  partsTotal,
			"total_amount": record.LaborCost.Add(partsTotal),
			"updated_at":   time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithServiceID(s.logg.WithPartID(ctx, input.PartID), serviceID)
		logCtx = s.logg.WithField(logCtx, "quantity", input.Quantity)
		s.logg.Info(logCtx, "part added to service")
	}
	return s.Get(ctx, serviceID)
}

// consume locks the part, checks availability, writes the usage row and decrements stock.
func (s *service) consume(ctx context.Context, tx *gorm.DB, repo Repository, serviceID uuid.UUID, line PartLine, actorID *uuid.UUID) error {
	part, err := s.inventory.LockPart(ctx, tx, line.PartID)
	if err != nil {
		return err
	}
	if part.QuantityInStock < line.Quantity {
		s.metrics.InsufficientStock()
		return inventory.InsufficientStockError(part, line.Quantity)
	}

	usage := &models.ServicePart{
		ServiceRecordID: serviceID,
		PartID:          part.ID,
		Quantity:        line.Quantity,
		UnitPrice:       line.UnitPrice,
		Subtotal:        lineSubtotal(line),
	}
	if err := repo.CreateUsage(ctx, usage); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record service part")
	}

	refID := serviceID
	return s.inventory.ApplyLocked(ctx, tx, part, -line.Quantity, inventory.Movement{
		Reason:      enums.StockMovementReasonServiceUsage,
		ReferenceID: &refID,
		ActorID:     actorID,
		Metadata:    map[string]any{"service_part_id": usage.ID.String()},
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ServiceDetail, error) {
	summary, err := s.repo.FindSummary(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	lines, err := s.repo.UsageLines(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load service parts")
	}
	if lines == nil {
		lines = []UsageLine{}
	}
	invoiceID, err := s.repo.InvoiceID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load service invoice")
	}
	return &ServiceDetail{ServiceSummary: *summary, Parts: lines, InvoiceID: invoiceID}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (pagination.Page[ServiceSummary], error) {
	if input.Filters.Status != nil && !input.Filters.Status.IsValid() {
		return pagination.Page[ServiceSummary]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	rows, total, err := s.repo.List(ctx, input)
	if err != nil {
		return pagination.Page[ServiceSummary]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list services")
	}
	return pagination.NewPage(rows, input.Pagination, total), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ServiceDetail, error) {
	fields := map[string]any{}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "description cannot be empty")
		}
		fields["description"] = description
	}
	if input.Notes != nil {
		fields["notes"] = *input.Notes
	}
	if input.MechanicID.Valid {
		fields["mechanic_id"] = input.MechanicID.Value
	}
	if input.Status == nil && len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields supplied")
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.LockByID(ctx, id)
		if err != nil {
			return mapNotFound(err)
		}
		if input.Status != nil {
			next := *input.Status
			if !next.IsValid() {
				return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid service status %q", next)
			}
			if next != record.Status {
				if !record.Status.CanTransitionTo(next) {
					return pkgerrors.New(
						pkgerrors.CodeInvalidState,
						fmt.Sprintf("cannot move service from %s to %s", record.Status, next),
					)
				}
				fields["status"] = next
			}
		}
		if mechanicID, ok := input.MechanicID.Target(); ok {
			if err := s.checkMechanic(ctx, repo, mechanicID); err != nil {
				return err
			}
		}
		if len(fields) == 0 {
			return nil
		}
		fields["updated_at"] = time.Now().UTC()
		return mapNotFound(repo.Update(ctx, id, fields))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a service that has not been invoiced. Consumed stock is not returned.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.LockByID(ctx, id); err != nil {
			return mapNotFound(err)
		}
		invoiceID, err := repo.InvoiceID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check service invoice")
		}
		if invoiceID != nil {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "cannot delete an invoiced service").
				WithDetails(map[string]any{"invoice_id": *invoiceID})
		}
		return mapNotFound(repo.Delete(ctx, id))
	})
}

func (s *service) checkMechanic(ctx context.Context, repo Repository, id uuid.UUID) error {
	ok, err := repo.UserExists(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check mechanic")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "mechanic not found")
	}
	return nil
}

func validateLine(line PartLine) *pkgerrors.Error {
	if line.PartID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "part_id is required")
	}
	if line.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	if line.UnitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	return nil
}

// roundLine fixes the unit price to cents before anything is derived from it.
// Stored subtotals and totals then equal quantity x stored unit price.
func roundLine(line PartLine) PartLine {
	line.UnitPrice = line.UnitPrice.Round(2)
	return line
}

func lineSubtotal(line PartLine) decimal.Decimal {
	return line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
}

// usageTotal recomputes parts cost from the stored unit prices, the same way invoices do.
func usageTotal(rows []models.ServicePart) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.UnitPrice.Mul(decimal.NewFromInt(int64(row.Quantity))))
	}
	return total
}

func mapNotFound(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "service record not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load service record")
}
