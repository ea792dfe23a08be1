package services

import (
	"context"

	"github.com/garageworks/garage-backend/pkg/db"
	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const summarySelect = "service_records.*, vehicles.registration_number AS registration_number, " +
	"vehicles.make_model AS make_model, COALESCE(organizations.name, clients.name) AS owner_name"

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.ServiceRecord) error
	LockByID(ctx context.Context, id uuid.UUID) (*models.ServiceRecord, error)
	FindSummary(ctx context.Context, id uuid.UUID) (*ServiceSummary, error)
	CreateUsage(ctx context.Context, usage *models.ServicePart) error
	UsageRows(ctx context.Context, serviceID uuid.UUID) ([]models.ServicePart, error)
	UsageLines(ctx context.Context, serviceID uuid.UUID) ([]UsageLine, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	InvoiceID(ctx context.Context, serviceID uuid.UUID) (*uuid.UUID, error)
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, input ListInput) ([]ServiceSummary, int64, error)
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

func (r *repository) Create(ctx context.Context, record *models.ServiceRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.ServiceRecord, error) {
	var record models.ServiceRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&record, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.ServiceRecord{}).
		Joins("JOIN vehicles ON vehicles.id = service_records.vehicle_id").
		Joins("LEFT JOIN organizations ON organizations.id = vehicles.organization_id").
		Joins("LEFT JOIN clients ON clients.id = vehicles.client_id")
}

func (r *repository) FindSummary(ctx context.Context, id uuid.UUID) (*ServiceSummary, error) {
	var row ServiceSummary
	res := r.joined(ctx).Select(summarySelect).Where("service_records.id = ?", id).Limit(1).Find(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (r *repository) CreateUsage(ctx context.Context, usage *models.ServicePart) error {
	return r.db.WithContext(ctx).Create(usage).Error
}

func (r *repository) UsageRows(ctx context.Context, serviceID uuid.UUID) ([]models.ServicePart, error) {
	var rows []models.ServicePart
	err := r.db.WithContext(ctx).
		Where("service_record_id = ?", serviceID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) UsageLines(ctx context.Context, serviceID uuid.UUID) ([]UsageLine, error) {
	var rows []UsageLine
	err := r.db.WithContext(ctx).
		Model(&models.ServicePart{}).
		Select("service_parts.*, parts.part_name AS part_name, parts.part_number AS part_number").
		Joins("JOIN parts ON parts.id = service_parts.part_id").
		Where("service_parts.service_record_id = ?", serviceID).
		Order("service_parts.created_at ASC").
		Order("service_parts.id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.ServiceRecord{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.ServiceRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) InvoiceID(ctx context.Context, serviceID uuid.UUID) (*uuid.UUID, error) {
	var invoice models.Invoice
	res := r.db.WithContext(ctx).Select("id").Where("service_record_id = ?", serviceID).Limit(1).Find(&invoice)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &invoice.ID, nil
}

func (r *repository) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *repository) List(ctx context.Context, input ListInput) ([]ServiceSummary, int64, error) {
	q := r.joined(ctx)
	f := input.Filters
	if f.Status != nil {
		q = q.Where("service_records.status = ?", *f.Status)
	}
	if f.VehicleID != nil {
		q = q.Where("service_records.vehicle_id = ?", *f.VehicleID)
	}
	if f.ClientID != nil {
		q = q.Where("vehicles.client_id = ?", *f.ClientID)
	}
	if f.OrganizationID != nil {
		q = q.Where("vehicles.organization_id = ?", *f.OrganizationID)
	}
	q = db.SearchAny(q, f.Search, "service_records.description", "vehicles.registration_number")

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []ServiceSummary
	if err := q.
		Select(summarySelect).
		Order("service_records.service_date DESC").
		Order("service_records.created_at DESC").
		Order("service_records.id ASC").
		Limit(input.Pagination.Normalize().Limit).
		Offset(input.Pagination.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
