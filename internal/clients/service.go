package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garageworks/garage-backend/internal/vehicles"
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

// vehicleCreator registers vehicles inside an outer transaction.
type vehicleCreator interface {
	CreateInTx(ctx context.Context, tx *gorm.DB, input vehicles.CreateInput) (*models.Vehicle, error)
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Client, error)
	CreateWithVehicles(ctx context.Context, input CreateWithVehiclesInput) (*CreateWithVehiclesResult, error)
	Get(ctx context.Context, id uuid.UUID) (*ClientDetail, error)
	Exists(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, input ListInput) (pagination.Page[ClientSummary], error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Client, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     Repository
	tx       txRunner
	vehicles vehicleCreator
}

func NewService(repo Repository, tx txRunner, vehicleSvc vehicleCreator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("clients repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if vehicleSvc == nil {
		return nil, fmt.Errorf("vehicle service required")
	}
	return &service{repo: repo, tx: tx, vehicles: vehicleSvc}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Client, error) {
	var client *models.Client
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		client, err = s.create(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// CreateWithVehicles registers a client and its vehicles in one transaction.
func (s *service) CreateWithVehicles(ctx context.Context, input CreateWithVehiclesInput) (*CreateWithVehiclesResult, error) {
	if len(input.Vehicles) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one vehicle is required")
	}
	seen := make(map[string]struct{}, len(input.Vehicles))
	for _, v := range input.Vehicles {
		reg := vehicles.NormalizeRegistration(v.RegistrationNumber)
		if _, dup := seen[reg]; dup {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "registration %s listed more than once", reg)
		}
		seen[reg] = struct{}{}
	}

	result := &CreateWithVehiclesResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		client, err := s.create(ctx, tx, input.CreateInput)
		if err != nil {
			return err
		}
		result.Client = client
		for _, v := range input.Vehicles {
			vi := v.toVehicleInput()
			vi.ClientID = &client.ID
			vehicle, err := s.vehicles.CreateInTx(ctx, tx, vi)
			if err != nil {
				return err
			}
			result.Vehicles = append(result.Vehicles, *vehicle)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) create(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Client, error) {
	name := strings.TrimSpace(input.Name)
	phone := strings.TrimSpace(input.Phone)
	if name == "" || phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and phone are required")
	}

	repo := s.repo.WithTx(tx)
	exists, err := repo.PhoneExists(ctx, phone, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check client phone")
	}
	if exists {
		return nil, phoneConflict(phone)
	}

	client := &models.Client{
		Name:    name,
		Email:   trimOptional(input.Email),
		Phone:   phone,
		Address: trimOptional(input.Address),
	}
	if err := repo.Create(ctx, client); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, phoneConflict(phone)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create client")
	}
	return client, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ClientDetail, error) {
	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	owned, err := s.repo.Vehicles(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load client vehicles")
	}
	if owned == nil {
		owned = []models.Vehicle{}
	}
	return &ClientDetail{Client: *client, Vehicles: owned}, nil
}

// Exists returns a NotFound error when the client is missing.
func (s *service) Exists(ctx context.Context, id uuid.UUID) error {
	_, err := s.repo.FindByID(ctx, id)
	return mapNotFound(err)
}

func (s *service) List(ctx context.Context, input ListInput) (pagination.Page[ClientSummary], error) {
	rows, total, err := s.repo.List(ctx, input)
	if err != nil {
		return pagination.Page[ClientSummary]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list clients")
	}
	return pagination.NewPage(rows, input.Pagination, total), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Client, error) {
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

	var client *models.Client
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if phone != "" {
			exists, err := repo.PhoneExists(ctx, phone, &id)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check client phone")
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
		client, err = repo.FindByID(ctx, id)
		return mapNotFound(err)
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return mapNotFound(err)
		}
		count, err := repo.VehicleCount(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count client vehicles")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "cannot delete client with registered vehicles").
				WithDetails(map[string]any{"vehicle_count": count})
		}
		return mapNotFound(repo.Delete(ctx, id))
	})
}

func phoneConflict(phone string) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "client with phone %s already exists", phone)
}

func mapNotFound(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load client")
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
