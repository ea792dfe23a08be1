package parts

import (
	"context"

	"github.com/garageworks/garage-backend/pkg/db"
	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles catalog persistence for parts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, part *models.Part) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Part, error)
	PartNumberExists(ctx context.Context, number string, excludeID *uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	UsageCount(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, input ListInput) ([]models.Part, int64, error)
	ListLowStock(ctx context.Context) ([]models.Part, error)
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

func (r *repository) Create(ctx context.Context, part *models.Part) error {
	return r.db.WithContext(ctx).Create(part).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).First(&part, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *repository) PartNumberExists(ctx context.Context, number string, excludeID *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Part{}).Where("part_number = ?", number)
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
	res := r.db.WithContext(ctx).Model(&models.Part{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Part{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) UsageCount(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ServicePart{}).Where("part_id = ?", id).Count(&n).Error
	return n, err
}

func (r *repository) List(ctx context.Context, input ListInput) ([]models.Part, int64, error) {
	q := db.SearchAny(r.db.WithContext(ctx).Model(&models.Part{}), input.Filters.Search, "part_name", "part_number")
	if input.Filters.LowStock {
		q = q.Where("quantity_in_stock <= reorder_level")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var parts []models.Part
	if err := q.
		Order("part_name ASC").
		Order("id ASC").
		Limit(input.Pagination.Normalize().Limit).
		Offset(input.Pagination.Offset()).
		Find(&parts).Error; err != nil {
		return nil, 0, err
	}
	return parts, total, nil
}

func (r *repository) ListLowStock(ctx context.Context) ([]models.Part, error) {
	var parts []models.Part
	err := r.db.WithContext(ctx).
		Where("quantity_in_stock <= reorder_level").
		Order("quantity_in_stock ASC").
		Order("part_name ASC").
		Find(&parts).Error
	return parts, err
}
