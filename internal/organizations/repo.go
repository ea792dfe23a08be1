package organizations

import (
	"context"

	"github.com/garageworks/garage-backend/pkg/db"
	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const vehicleCountSelect = "organizations.*, (SELECT COUNT(*) FROM vehicles WHERE vehicles.organization_id = organizations.id) AS vehicle_count"

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, org *models.Organization) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	PhoneExists(ctx context.Context, phone string, excludeID *uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	VehicleCount(ctx context.Context, id uuid.UUID) (int64, error)
	Vehicles(ctx context.Context, id uuid.UUID) ([]models.Vehicle, error)
	List(ctx context.Context, input ListInput) ([]OrganizationSummary, int64, error)
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

func (r *repository) Create(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) PhoneExists(ctx context.Context, phone string, excludeID *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Organization{}).Where("phone = ?", phone)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Organization{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Organization{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) VehicleCount(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Vehicle{}).Where("organization_id = ?", id).Count(&n).Error
	return n, err
}

func (r *repository) Vehicles(ctx context.Context, id uuid.UUID) ([]models.Vehicle, error) {
	var out []models.Vehicle
	err := r.db.WithContext(ctx).Where("organization_id = ?", id).Order("registration_number ASC").Find(&out).Error
	return out, err
}

func (r *repository) List(ctx context.Context, input ListInput) ([]OrganizationSummary, int64, error) {
	q := db.SearchAny(r.db.WithContext(ctx).Model(&models.Organization{}), input.Search,
		"organizations.name", "organizations.phone", "organizations.contact_person")

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []OrganizationSummary
	if err := q.
		Select(vehicleCountSelect).
		Order("organizations.name ASC").
		Order("organizations.id ASC").
		Limit(input.Pagination.Normalize().Limit).
		Offset(input.Pagination.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
