package inventory

import (
	"context"
	"time"

	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/garageworks/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists part quantities and the stock movement trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockPart(ctx context.Context, partID uuid.UUID) (*models.Part, error)
	FindPart(ctx context.Context, partID uuid.UUID) (*models.Part, error)
	SetQuantity(ctx context.Context, partID uuid.UUID, quantity int) error
	CreateMovement(ctx context.Context, movement *models.StockMovement) error
	ListMovements(ctx context.Context, partID uuid.UUID, params pagination.Params) ([]models.StockMovement, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockPart reads the part with SELECT ... FOR UPDATE. Callers must be inside a transaction.
func (r *repository) LockPart(ctx context.Context, partID uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&part, "id = ?", partID).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *repository) FindPart(ctx context.Context, partID uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).First(&part, "id = ?", partID).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *repository) SetQuantity(ctx context.Context, partID uuid.UUID, quantity int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("id = ?", partID).
		Updates(map[string]any{
			"quantity_in_stock": quantity,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListMovements(ctx context.Context, partID uuid.UUID, params pagination.Params) ([]models.StockMovement, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.StockMovement{}).Where("part_id = ?", partID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var movements []models.StockMovement
	if err := base.
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.Normalize().Limit).
		Offset(params.Offset()).
		Find(&movements).Error; err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}
