package invoices

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/garageworks/garage-backend/pkg/config"
	"github.com/garageworks/garage-backend/pkg/db"
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

type Service interface {
	Create(ctx context.Context, input CreateInput) (*InvoiceDetail, error)
	MarkPaid(ctx context.Context, id uuid.UUID, input MarkPaidInput) (*InvoiceDetail, error)
	Get(ctx context.Context, id uuid.UUID) (*InvoiceDetail, error)
	List(ctx context.Context, input ListInput) (pagination.Page[InvoiceSummary], error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*InvoiceDetail, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RevenueStats(ctx context.Context, year int, month *int) ([]MonthlyRevenue, error)
	AgedUnpaid(ctx context.Context, olderThan time.Duration) (AgingReport, error)
	RenderPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error)
}

type ServiceParams struct {
	Repo    Repository
	DB      txRunner
	Config  config.InvoiceConfig
	Logger  *logger.Logger
	Metrics *metrics.BusinessMetrics
	Clock   func() time.Time
}

type service struct {
	repo       Repository
	db         txRunner
	defaultTax decimal.Decimal
	renderer   *Renderer
	logg       *logger.Logger
	metrics    *metrics.BusinessMetrics
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("invoices repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	defaultTax := decimal.NewFromInt(16)
	if raw := strings.TrimSpace(params.Config.DefaultTaxRate); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid default tax rate %q: %w", raw, err)
		}
		if err := validatePercent("tax_rate", parsed); err != nil {
			return nil, err
		}
		defaultTax = parsed
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:       params.Repo,
		db:         params.DB,
		defaultTax: defaultTax,
		renderer:   NewRenderer(params.Config),
		logg:       params.Logger,
		metrics:    params.Metrics,
		now:        func() time.Time { return clock().UTC() },
	}, nil
}

// Create invoices a completed service. Costs are recomputed from the usage rows, not the
// service's cached totals, and the header and item snapshots commit together.
func (s *service) Create(ctx context.Context, input CreateInput) (*InvoiceDetail, error) {
	if input.ServiceRecordID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service_record_id is required")
	}
	discount := decimal.Zero
	if input.Discount != nil {
		discount = *input.Discount
	}
	taxRate := s.defaultTax
	if input.TaxRate != nil {
		taxRate = *input.TaxRate
	}
	if input.PaymentMethod != nil && !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", *input.PaymentMethod)
	}

	now := s.now()
	var invoice *models.Invoice
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.LockService(ctx, input.ServiceRecordID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "service record not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load service record")
		}
		if record.Status != enums.ServiceStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "cannot invoice incomplete service").
				WithDetails(map[string]any{"status": record.Status})
		}
		exists, err := repo.ExistsForService(ctx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing invoice")
		}
		if exists {
			return duplicateInvoice()
		}

		usage, err := repo.UsageSnapshot(ctx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load service parts")
		}
		rows := make([]models.ServicePart, 0, len(usage))
		for _, u := range usage {
			rows = append(rows, u.ServicePart)
		}
		// Compute range-checks the percentages; duplicates were already rejected above.
		breakdown, err := Compute(record.LaborCost.Add(PartsCost(rows)), discount, taxRate)
		if err != nil {
			return err
		}

		invoice = &models.Invoice{
			InvoiceNumber:   newInvoiceNumber(now),
			ServiceRecordID: record.ID,
			Subtotal:        breakdown.Subtotal,
			Discount:        breakdown.Discount,
			DiscountAmount:  breakdown.DiscountAmount,
			TaxRate:         breakdown.TaxRate,
			TaxAmount:       breakdown.TaxAmount,
			TotalAmount:     breakdown.TotalAmount,
			PaymentStatus:   enums.PaymentStatusUnpaid,
			PaymentMethod:   input.PaymentMethod,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := repo.Create(ctx, invoice); err != nil {
			if db.IsUniqueViolation(err, "") {
				return duplicateInvoice()
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create invoice")
		}

		items := make([]models.InvoiceItem, 0, len(usage))
		for i, u := range usage {
			items = append(items, models.InvoiceItem{
				InvoiceID:  invoice.ID,
				PartID:     u.PartID,
				PartName:   u.PartName,
				PartNumber: u.PartNumber,
				Quantity:   u.Quantity,
				UnitPrice:  u.UnitPrice.Round(2),
				TotalPrice: u.UnitPrice.Mul(decimal.NewFromInt(int64(u.Quantity))).Round(2),
				Position:   i + 1,
			})
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create invoice items")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	total, _ := invoice.TotalAmount.Float64()
	s.metrics.InvoiceCreated(total)
	if s.logg != nil {
		logCtx := s.logg.WithServiceID(s.logg.WithInvoiceID(ctx, invoice.ID), invoice.ServiceRecordID)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"invoice_number": invoice.InvoiceNumber,
			"total_amount":   invoice.TotalAmount.StringFixed(2),
		})
		s.logg.Info(logCtx, "invoice created")
	}
	return s.Get(ctx, invoice.ID)
}

// MarkPaid settles an invoice. The payment method is only replaced when supplied.
func (s *service) MarkPaid(ctx context.Context, id uuid.UUID, input MarkPaidInput) (*InvoiceDetail, error) {
	if input.PaymentMethod != nil && !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", *input.PaymentMethod)
	}
	now := s.now()
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.LockByID(ctx, id); err != nil {
			return mapNotFound(err)
		}
		fields := map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"payment_date":   now,
			"updated_at":     now,
		}
		if input.PaymentMethod != nil {
			fields["payment_method"] = *input.PaymentMethod
		}
		return mapNotFound(repo.Update(ctx, id, fields))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.InvoicePaid()
	if s.logg != nil {
		s.logg.Info(s.logg.WithInvoiceID(ctx, id), "invoice marked paid")
	}
	return s.Get(ctx, id)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*InvoiceDetail, error) {
	detail, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	items, err := s.repo.Items(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load invoice items")
	}
	if items == nil {
		items = []models.InvoiceItem{}
	}
	detail.Items = items
	return detail, nil
}

func (s *service) List(ctx context.Context, input ListInput) (pagination.Page[InvoiceSummary], error) {
	f := input.Filters
	if f.PaymentStatus != nil && !f.PaymentStatus.IsValid() {
		return pagination.Page[InvoiceSummary]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment_status filter")
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return pagination.Page[InvoiceSummary]{}, pkgerrors.New(pkgerrors.CodeValidation, "end_date must not be before start_date")
	}
	rows, total, err := s.repo.List(ctx, input)
	if err != nil {
		return pagination.Page[InvoiceSummary]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list invoices")
	}
	return pagination.NewPage(rows, input.Pagination, total), nil
}

// Update applies allow-listed changes. New discount or tax values reprice the invoice
// from its stored subtotal; the item snapshots are left untouched.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*InvoiceDetail, error) {
	if input.PaymentStatus == nil && input.PaymentMethod == nil && input.Discount == nil && input.TaxRate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields supplied")
	}
	if input.PaymentStatus != nil && !input.PaymentStatus.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment status %q", *input.PaymentStatus)
	}
	if input.PaymentMethod != nil && !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", *input.PaymentMethod)
	}

	now := s.now()
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.LockByID(ctx, id)
		if err != nil {
			return mapNotFound(err)
		}

		fields := map[string]any{"updated_at": now}
		if input.Discount != nil || input.TaxRate != nil {
			discount := current.Discount
			if input.Discount != nil {
				discount = *input.Discount
			}
			taxRate := current.TaxRate
			if input.TaxRate != nil {
				taxRate = *input.TaxRate
			}
			breakdown, err := Compute(current.Subtotal, discount, taxRate)
			if err != nil {
				return err
			}
			fields["discount"] = breakdown.Discount
			fields["discount_amount"] = breakdown.DiscountAmount
			fields["tax_rate"] = breakdown.TaxRate
			fields["tax_amount"] = breakdown.TaxAmount
			fields["total_amount"] = breakdown.TotalAmount
		}
		if input.PaymentMethod != nil {
			fields["payment_method"] = *input.PaymentMethod
		}
		if input.PaymentStatus != nil {
			fields["payment_status"] = *input.PaymentStatus
			switch *input.PaymentStatus {
			case enums.PaymentStatusPaid:
				fields["payment_date"] = now
			case enums.PaymentStatusUnpaid:
				fields["payment_date"] = nil
			}
		}
		return mapNotFound(repo.Update(ctx, id, fields))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return mapNotFound(s.repo.WithTx(tx).Delete(ctx, id))
	})
}

// RevenueStats returns one row per month with at least one invoice, in month order.
func (s *service) RevenueStats(ctx context.Context, year int, month *int) ([]MonthlyRevenue, error) {
	if year < 1970 || year > 9999 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "year is out of range")
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	if month != nil {
		if *month < 1 || *month > 12 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "month must be between 1 and 12")
		}
		from = time.Date(year, time.Month(*month), 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, 0)
	}

	rows, err := s.repo.RevenueRows(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load revenue")
	}

	byMonth := map[int]*MonthlyRevenue{}
	for _, row := range rows {
		m := int(row.CreatedAt.UTC().Month())
		bucket, ok := byMonth[m]
		if !ok {
			bucket = &MonthlyRevenue{
				Year:          year,
				Month:         m,
				TotalRevenue:  decimal.Zero,
				PaidRevenue:   decimal.Zero,
				UnpaidRevenue: decimal.Zero,
			}
			byMonth[m] = bucket
		}
		bucket.InvoiceCount++
		bucket.TotalRevenue = bucket.TotalRevenue.Add(row.TotalAmount)
		if row.PaymentStatus == enums.PaymentStatusPaid {
			bucket.PaidRevenue = bucket.PaidRevenue.Add(row.TotalAmount)
		} else {
			bucket.UnpaidRevenue = bucket.UnpaidRevenue.Add(row.TotalAmount)
		}
	}

	out := make([]MonthlyRevenue, 0, len(byMonth))
	for _, bucket := range byMonth {
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// AgedUnpaid totals invoices that are still not paid after olderThan.
func (s *service) AgedUnpaid(ctx context.Context, olderThan time.Duration) (AgingReport, error) {
	cutoff := s.now().Add(-olderThan)
	rows, err := s.repo.UnpaidBefore(ctx, cutoff)
	if err != nil {
		return AgingReport{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load unpaid invoices")
	}
	report := AgingReport{Count: len(rows), Amount: decimal.Zero, Cutoff: cutoff}
	for _, row := range rows {
		report.Amount = report.Amount.Add(row.TotalAmount)
	}
	return report, nil
}

// RenderPDF returns the invoice document and a download file name.
func (s *service) RenderPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	doc, err := s.renderer.Render(detail)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render invoice pdf")
	}
	return doc, detail.InvoiceNumber + ".pdf", nil
}

func newInvoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), suffix)
}

func duplicateInvoice() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "invoice already exists for this service record")
}

func mapNotFound(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load invoice")
}
