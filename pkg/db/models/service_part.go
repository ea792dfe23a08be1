package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ServicePart records parts consumed by a service. UnitPrice is the price at time of use.
type ServicePart struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ServiceRecordID uuid.UUID       `gorm:"column:service_record_id;type:uuid;not null;index" json:"service_record_id"`
	PartID          uuid.UUID       `gorm:"column:part_id;type:uuid;not null" json:"part_id"`
	Quantity        int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	Subtotal        decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ServicePart) TableName() string { return "service_parts" }

func (s *ServicePart) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
