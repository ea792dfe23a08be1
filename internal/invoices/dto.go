package invoices

import (
	"time"

	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/garageworks/garage-backend/pkg/enums"
	"github.com/garageworks/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInput prices a completed service. Nil Discount means 0; nil TaxRate uses the configured default.
// Percentages are range-checked by the service after the duplicate lookup.
type CreateInput struct {
	ServiceRecordID uuid.UUID            `json:"service_record_id" validate:"required"`
	Discount        *decimal.Decimal     `json:"discount,omitempty"`
	TaxRate         *decimal.Decimal     `json:"tax_rate,omitempty"`
	PaymentMethod   *enums.PaymentMethod `json:"payment_method,omitempty"`
}

type MarkPaidInput struct {
	PaymentMethod *enums.PaymentMethod `json:"payment_method,omitempty"`
}

// UpdateInput is the allow-list of mutable invoice fields.
type UpdateInput struct {
	PaymentStatus *enums.PaymentStatus `json:"payment_status,omitempty"`
	PaymentMethod *enums.PaymentMethod `json:"payment_method,omitempty"`
	Discount      *decimal.Decimal     `json:"discount,omitempty" validate:"omitempty,gte=0,lte=100"`
	TaxRate       *decimal.Decimal     `json:"tax_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
}

type ListFilters struct {
	Search        string
	PaymentStatus *enums.PaymentStatus
	StartDate     *time.Time
	EndDate       *time.Time
}

type ListInput struct {
	Filters    ListFilters
	Pagination pagination.Params
}

// InvoiceSummary is an invoice joined with the vehicle and customer it bills.
type InvoiceSummary struct {
	models.Invoice
	RegistrationNumber string  `json:"registration_number"`
	MakeModel          string  `json:"make_model"`
	CustomerName       *string `json:"customer_name,omitempty"`
}

type InvoiceDetail struct {
	InvoiceSummary
	CustomerPhone      *string              `json:"customer_phone,omitempty"`
	CustomerEmail      *string              `json:"customer_email,omitempty"`
	CustomerAddress    *string              `json:"customer_address,omitempty"`
	MechanicName       *string              `json:"mechanic_name,omitempty"`
	ServiceDescription string               `json:"service_description"`
	ServiceDate        time.Time            `json:"service_date"`
	LaborCost          decimal.Decimal      `json:"labor_cost"`
	Items              []models.InvoiceItem `json:"items" gorm:"-"`
}

// MonthlyRevenue aggregates the invoices issued in one calendar month.
type MonthlyRevenue struct {
	Year          int             `json:"year"`
	Month         int             `json:"month"`
	InvoiceCount  int             `json:"invoice_count"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	PaidRevenue   decimal.Decimal `json:"paid_revenue"`
	UnpaidRevenue decimal.Decimal `json:"unpaid_revenue"`
}

// AgingReport describes unpaid invoices older than a cutoff.
type AgingReport struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
	Cutoff time.Time       `json:"cutoff"`
}

type usageSnapshot struct {
	models.ServicePart
	PartName   string
	PartNumber *string
}

type revenueRow struct {
	CreatedAt     time.Time
	TotalAmount   decimal.Decimal
	PaymentStatus enums.PaymentStatus
}
