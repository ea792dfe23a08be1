package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/garageworks/garage-backend/pkg/enums"
)

// Invoice is the billable document for exactly one completed service record.
type Invoice struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNumber   string               `gorm:"column:invoice_number;not null;uniqueIndex" json:"invoice_number"`
	ServiceRecordID uuid.UUID            `gorm:"column:service_record_id;type:uuid;not null;uniqueIndex" json:"service_record_id"`
	Subtotal        decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`
	Discount        decimal.Decimal      `gorm:"column:discount;type:numeric(5,2);not null" json:"discount"`
	DiscountAmount  decimal.Decimal      `gorm:"column:discount_amount;type:numeric(12,2);not null" json:"discount_amount"`
	TaxRate         decimal.Decimal      `gorm:"column:tax_rate;type:numeric(5,2);not null" json:"tax_rate"`
	TaxAmount       decimal.Decimal      `gorm:"column:tax_amount;type:numeric(12,2);not null" json:"tax_amount"`
	TotalAmount     decimal.Decimal      `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	PaymentStatus   enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null" json:"payment_status"`
	PaymentMethod   *enums.PaymentMethod `gorm:"column:payment_method;type:text" json:"payment_method,omitempty"`
	PaymentDate     *time.Time           `gorm:"column:payment_date" json:"payment_date,omitempty"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
