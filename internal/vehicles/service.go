package vehicles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garageworks/garage-backend/pkg/db"
	"github.com/garageworks/garage-backend/pkg/db/models"
	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
	"github.com/garageworks/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Vehicle, error)
	// CreateInTx is used when vehicles are registered together with their owner.
	CreateInTx(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Vehicle, error)
	Get(ctx context.Context, id uuid.UUID) (*VehicleDetail, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, input ListInput) (pagination.Page[models.Vehicle], error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Vehicle, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
}

func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vehicles repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Vehicle, error) {
	var vehicle *models.Vehicle
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		vehicle, err = s.CreateInTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return vehicle, nil
}

func (s *service) CreateInTx(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Vehicle, error) {
	registration := NormalizeRegistration(input.RegistrationNumber)
	if registration == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "registration_number is required")
	}
	makeModel := strings.TrimSpace(input.MakeModel)
	if makeModel == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "make_model is required")
	}
	if input.OrganizationID != nil && input.ClientID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a vehicle belongs to either a client or an organization, not both")
	}

	repo := s.repo.WithTx(tx)
	if err := s.checkOwner(ctx, repo, input.ClientID, input.OrganizationID); err != nil {
		return nil, err
	}
	exists, err := repo.RegistrationExists(ctx, registration, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check registration")
	}
	if exists {
		return nil, registrationConflict(registration)
	}

	vehicle := &models.Vehicle{
		RegistrationNumber: registration,
		MakeModel:          makeModel,
		VehicleType:        trimOptional(input.VehicleType),
		Year:               input.Year,
		Color:              trimOptional(input.Color),
		VIN:                trimOptional(input.VIN),
		OrganizationID:     input.OrganizationID,
		ClientID:           input.ClientID,
	}
	if err := repo.Create(ctx, vehicle); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, registrationConflict(registration)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create vehicle")
	}
	return vehicle, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*VehicleDetail, error) {
	vehicle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	owner, err := s.repo.FindOwner(ctx, vehicle)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vehicle owner")
	}
	return &VehicleDetail{Vehicle: *vehicle, Owner: owner}, nil
}

func (s *service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check vehicle")
	}
	return ok, nil
}

func (s *service) List(ctx context.Context, input ListInput) (pagination.Page[models.Vehicle], error) {
	items, total, err := s.repo.List(ctx, input)
	if err != nil {
		return pagination.Page[models.Vehicle]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list vehicles")
	}
	return pagination.NewPage(items, input.Pagination, total), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Vehicle, error) {
	var vehicle *models.Vehicle
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapNotFound(err)
		}

		fields := map[string]any{}
		if input.RegistrationNumber != nil {
			registration := NormalizeRegistration(*input.RegistrationNumber)
			if registration == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "registration_number cannot be empty")
			}
			exists, err := repo.RegistrationExists(ctx, registration, &id)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check registration")
			}
			if exists {
				return registrationConflict(registration)
			}
			fields["registration_number"] = registration
		}
		if input.MakeModel != nil {
			makeModel := strings.TrimSpace(*input.MakeModel)
			if makeModel == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "make_model cannot be empty")
			}
			fields["make_model"] = makeModel
		}
		if input.VehicleType != nil {
			fields["vehicle_type"] = trimOptional(input.VehicleType)
		}
		if input.Year != nil {
			fields["year"] = *input.Year
		}
		if input.Color != nil {
			fields["color"] = trimOptional(input.Color)
		}
		if input.VIN != nil {
			fields["vin"] = trimOptional(input.VIN)
		}

		clientID, orgID := current.ClientID, current.OrganizationID
		if input.ClientID.Valid {
			clientID = input.ClientID.Value
			fields["client_id"] = clientID
		}
		if input.OrganizationID.Valid {
			orgID = input.OrganizationID.Value
			fields["organization_id"] = orgID
		}
		if clientID != nil && orgID != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "a vehicle belongs to either a client or an organization, not both")
		}
		if input.ClientID.Valid || input.OrganizationID.Valid {
			if err := s.checkOwner(ctx, repo, input.ClientID.Value, input.OrganizationID.Value); err != nil {
				return err
			}
		}
		if len(fields) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields supplied")
		}
		fields["updated_at"] = time.Now().UTC()

		if err := repo.Update(ctx, id, fields); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "registration number already exists")
			}
			return mapNotFound(err)
		}
		vehicle, err = repo.FindByID(ctx, id)
		return mapNotFound(err)
	})
	if err != nil {
		return nil, err
	}
	return vehicle, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return mapNotFound(err)
		}
		count, err := repo.ServiceCount(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count vehicle services")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "cannot delete vehicle with service history").
				WithDetails(map[string]any{"service_count": count})
		}
		return mapNotFound(repo.Delete(ctx, id))
	})
}

func (s *service) checkOwner(ctx context.Context, repo Repository, clientID, orgID *uuid.UUID) error {
	if clientID != nil {
		ok, err := repo.ClientExists(ctx, *clientID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check client")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
		}
	}
	if orgID != nil {
		ok, err := repo.OrganizationExists(ctx, *orgID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check organization")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
		}
	}
	return nil
}

// NormalizeRegistration upper-cases a plate and collapses inner whitespace.
func NormalizeRegistration(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), " "))
}

func registrationConflict(registration string) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "vehicle with registration %s already exists", registration).
		WithDetails(map[string]any{"registration_number": registration})
}

func mapNotFound(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vehicle")
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
