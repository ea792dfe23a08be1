package invoices

import (
	"context"
	"time"

	"github.com/garageworks/garage-backend/pkg/db"
	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/garageworks/garage-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	summarySelect = "invoices.*, vehicles.registration_number AS registration_number, " +
		"vehicles.make_model AS make_model, COALESCE(organizations.name, clients.name) AS customer_name"
	detailSelect = summarySelect + ", COALESCE(organizations.phone, clients.phone) AS customer_phone, " +
		"COALESCE(organizations.email, clients.email) AS customer_email, " +
		"COALESCE(organizations.address, clients.address) AS customer_address, " +
		"users.full_name AS mechanic_name, service_records.description AS service_description, " +
		"service_records.service_date AS service_date, service_records.labor_cost AS labor_cost"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockService(ctx context.Context, serviceID uuid.UUID) (*models.ServiceRecord, error)
	ExistsForService(ctx context.Context, serviceID uuid.UUID) (bool, error)
	UsageSnapshot(ctx context.Context, serviceID uuid.UUID) ([]usageSnapshot, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	CreateItems(ctx context.Context, items []models.InvoiceItem) error
	LockByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*InvoiceDetail, error)
	Items(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceItem, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, input ListInput) ([]InvoiceSummary, int64, error)
	RevenueRows(ctx context.Context, from, to time.Time) ([]revenueRow, error)
	UnpaidBefore(ctx context.Context, cutoff time.Time) ([]models.Invoice, error)
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

func (r *repository) LockService(ctx context.Context, serviceID uuid.UUID) (*models.ServiceRecord, error) {
	var record models.ServiceRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&record, "id = ?", serviceID).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) ExistsForService(ctx context.Context, serviceID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Invoice{}).Where("service_record_id = ?", serviceID).Count(&n).Error
	return n > 0, err
}

func (r *repository) UsageSnapshot(ctx context.Context, serviceID uuid.UUID) ([]usageSnapshot, error) {
	var rows []usageSnapshot
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

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Joins("JOIN service_records ON service_records.id = invoices.service_record_id").
		Joins("JOIN vehicles ON vehicles.id = service_records.vehicle_id").
		Joins("LEFT JOIN organizations ON organizations.id = vehicles.organization_id").
		Joins("LEFT JOIN clients ON clients.id = vehicles.client_id")
}

func (r *repository) FindDetail(ctx context.Context, id uuid.UUID) (*InvoiceDetail, error) {
	var row InvoiceDetail
	res := r.joined(ctx).
		Joins("LEFT JOIN users ON users.id = service_records.mechanic_id").
		Select(detailSelect).
		Where("invoices.id = ?", id).
		Limit(1).
		Find(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (r *repository) Items(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceItem, error) {
	var items []models.InvoiceItem
	err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Order("position ASC").Find(&items).Error
	return items, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Delete(&models.Invoice{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, input ListInput) ([]InvoiceSummary, int64, error) {
	q := r.joined(ctx)
	f := input.Filters
	if f.PaymentStatus != nil {
		q = q.Where("invoices.payment_status = ?", *f.PaymentStatus)
	}
	if f.StartDate != nil {
		q = q.Where("invoices.created_at >= ?", f.StartDate.UTC())
	}
	if f.EndDate != nil {
		q = q.Where("invoices.created_at < ?", f.EndDate.UTC())
	}
	q = db.SearchAny(q, f.Search, "invoices.invoice_number", "vehicles.registration_number")

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []InvoiceSummary
	if err := q.
		Select(summarySelect).
		Order("invoices.created_at DESC").
		Order("invoices.id ASC").
		Limit(input.Pagination.Normalize().Limit).
		Offset(input.Pagination.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) RevenueRows(ctx context.Context, from, to time.Time) ([]revenueRow, error) {
	var rows []revenueRow
	err := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Select("created_at, total_amount, payment_status").
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) UnpaidBefore(ctx context.Context, cutoff time.Time) ([]models.Invoice, error) {
	var rows []models.Invoice
	err := r.db.WithContext(ctx).
		Select("id", "total_amount", "created_at").
		Where("payment_status <> ? AND created_at < ?", enums.PaymentStatusPaid, cutoff.UTC()).
		Find(&rows).Error
	return rows, err
}
