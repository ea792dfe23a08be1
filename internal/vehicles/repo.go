package vehicles

import (
	"context"

	"github.com/garageworks/garage-backend/pkg/db"
	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, vehicle *models.Vehicle) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	RegistrationExists(ctx context.Context, registration string, excludeID *uuid.UUID) (bool, error)
	ClientExists(ctx context.Context, id uuid.UUID) (bool, error)
	OrganizationExists(ctx context.Context, id uuid.UUID) (bool, error)
	FindOwner(ctx context.Context, vehicle *models.Vehicle) (*OwnerSummary, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	ServiceCount(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, input ListInput) ([]models.Vehicle, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, vehicle *models.Vehicle) error {
	return r.db.WithContext(ctx).Create(vehicle).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := r.db.WithContext(ctx).First(&vehicle, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, &models.Vehicle{}, "id = ?", id)
}

func (r *repository) RegistrationExists(ctx context.Context, registration string, excludeID *uuid.UUID) (bool, error) {
	if excludeID != nil {
		return r.exists(ctx, &models.Vehicle{}, "registration_number = ? AND id <> ?", registration, *excludeID)
	}
	return r.exists(ctx, &models.Vehicle{}, "registration_number = ?", registration)
}

func (r *repository) ClientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, &models.Client{}, "id = ?", id)
}

func (r *repository) OrganizationExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, &models.Organization{}, "id = ?", id)
}

func (r *repository) exists(ctx context.Context, model any, where string, args ...any) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(model).Where(where, args...).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) FindOwner(ctx context.Context, vehicle *models.Vehicle) (*OwnerSummary, error) {
	switch {
	case vehicle.ClientID != nil:
		var c models.Client
		if err := r.db.WithContext(ctx).First(&c, "id = ?", *vehicle.ClientID).Error; err != nil {
			return nil, err
		}
		return &OwnerSummary{Kind: OwnerKindClient, ID: c.ID, Name: c.Name, Phone: c.Phone}, nil
	case vehicle.OrganizationID != nil:
		var o models.Organization
		if err := r.db.WithContext(ctx).First(&o, "id = ?", *vehicle.OrganizationID).Error; err != nil {
			return nil, err
		}
		return &OwnerSummary{Kind: OwnerKindOrganization, ID: o.ID, Name: o.Name, Phone: o.Phone}, nil
	}
	return nil, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Vehicle{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Vehicle{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ServiceCount(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ServiceRecord{}).Where("vehicle_id = ?", id).Count(&n).Error
	return n, err
}

func (r *repository) List(ctx context.Context, input ListInput) ([]models.Vehicle, int64, error) {
	q := db.SearchAny(r.db.WithContext(ctx).Model(&models.Vehicle{}), input.Filters.Search, "registration_number", "make_model", "vin")
	if input.Filters.OrganizationID != nil {
		q = q.Where("organization_id = ?", *input.Filters.OrganizationID)
	}
	if input.Filters.ClientID != nil {
		q = q.Where("client_id = ?", *input.Filters.ClientID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var vehicles []models.Vehicle
	if err := q.
		Order("created_at DESC").
		Order("id ASC").
		Limit(input.Pagination.Normalize().Limit).
		Offset(input.Pagination.Offset()).
		Find(&vehicles).Error; err != nil {
		return nil, 0, err
	}
	return vehicles, total, nil
}
