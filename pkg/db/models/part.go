package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Part is a stocked catalog item. QuantityInStock only changes through the inventory ledger.
type Part struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PartName        string          `gorm:"column:part_name;not null" json:"part_name"`
	PartNumber      *string         `gorm:"column:part_number;uniqueIndex" json:"part_number,omitempty"`
	Description     *string         `gorm:"column:description" json:"description,omitempty"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	QuantityInStock int             `gorm:"column:quantity_in_stock;not null" json:"quantity_in_stock"`
	ReorderLevel    int             `gorm:"column:reorder_level;not null" json:"reorder_level"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (p *Part) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// IsLowStock reports whether the part is at or below its reorder level.
func (p Part) IsLowStock() bool {
	return p.QuantityInStock <= p.ReorderLevel
}
