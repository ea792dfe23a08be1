package organizations

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
	Create(ctx context.Context, input CreateInput) (*models.Organization, error)
	Get(ctx context.Context, id uuid.UUID) (*OrganizationDetail, error)
	Exists(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, input ListInput) (pagination.Page[OrganizationSummary], error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Organization, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
}

func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("organizations repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Organization, error) {
	name := strings.TrimSpace(input.Name)
	phone := strings.TrimSpace(input.Phone)
	if name == "" || phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and phone are required")
	}

	org := &models.Organization{
		Name:          name,
		ContactPerson: trimOptional(input.ContactPerson),
		Email:         trimOptional(input.Email),
		Phone:         phone,
		Address:       trimOptional(input.Address),
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.PhoneExists(ctx, phone, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check organization phone")
		}
		if exists {
			return phoneConflict(phone)
		}
		if err := repo.Create(ctx, org); err != nil {
			if db.IsUniqueViolation(err, "") {
				return phoneConflict(phone)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create organization")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*OrganizationDetail, error) {
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	fleet, err := s.repo.Vehicles(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load organization vehicles")
	}
	if fleet == nil {
		fleet = []models.Vehicle{}
	}
	return &OrganizationDetail{Organization: *org, Vehicles: fleet}, nil
}

func (s *service) Exists(ctx context.Context, id uuid.UUID) error {
	_, err := s.repo.FindByID(ctx, id)
	return mapNotFound(err)
}

func (s *service) List(ctx context.Context, input ListInput) (pagination.Page[OrganizationSummary], error) {
	rows, total, err := s.repo.List(ctx, input)
	if err != nil {
		return pagination.Page[OrganizationSummary]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list organizations")
	}
	return pagination.NewPage(rows, input.Pagination, total), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Organization, error) {
	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		fields["name"] = name
	}
	var phone string
	if input.Phone != nil {
		phone = strings.TrimSpace(*input.Phone)
		if phone == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone cannot be empty")
		}
		fields["phone"] = phone
	}
	if input.ContactPerson != nil {
		fields["contact_person"] = trimOptional(input.ContactPerson)
	}
	if input.Email != nil {
		fields["email"] = trimOptional(input.Email)
	}
	if input.Address != nil {
		fields["address"] = trimOptional(input.Address)
	}
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields supplied")
	}
	fields["updated_at"] = time.Now().UTC()

	var org *models.Organization
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if phone != "" {
			exists, err := repo.PhoneExists(ctx, phone, &id)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check organization phone")
			}
			if exists {
				return phoneConflict(phone)
			}
		}
		if err := repo.Update(ctx, id, fields); err != nil {
			if db.IsUniqueViolation(err, "") {
				return phoneConflict(phone)
			}
			return mapNotFound(err)
		}
		var err error
		org, err = repo.FindByID(ctx, id)
		return mapNotFound(err)
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return mapNotFound(err)
		}
		count, err := repo.VehicleCount(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count organization vehicles")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "cannot delete organization with registered vehicles").
				WithDetails(map[string]any{"vehicle_count": count})
		}
		return mapNotFound(repo.Delete(ctx, id))
	})
}

func phoneConflict(phone string) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "organization with phone %s already exists", phone)
}

func mapNotFound(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load organization")
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
