package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceItem snapshots one consumed part line at invoice time.
type InvoiceItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID  uuid.UUID       `gorm:"column:invoice_id;type:uuid;not null;index" json:"invoice_id"`
	PartID     uuid.UUID       `gorm:"column:part_id;type:uuid;not null" json:"part_id"`
	PartName   string          `gorm:"column:part_name;not null" json:"part_name"`
	PartNumber *string         `gorm:"column:part_number" json:"part_number,omitempty"`
	Quantity   int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	TotalPrice decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null" json:"total_price"`
	Position   int             `gorm:"column:position;not null" json:"position"`
}

func (i *InvoiceItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
