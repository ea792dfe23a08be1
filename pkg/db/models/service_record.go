package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/garageworks/garage-backend/pkg/enums"
)

// ServiceRecord is one unit of work on a vehicle. PartsTotal and TotalAmount are derived.
type ServiceRecord struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	VehicleID   uuid.UUID           `gorm:"column:vehicle_id;type:uuid;not null" json:"vehicle_id"`
	Description string              `gorm:"column:description;not null" json:"description"`
	ServiceDate time.Time           `gorm:"column:service_date;not null" json:"service_date"`
	Mileage     *int                `gorm:"column:mileage" json:"mileage,omitempty"`
	LaborCost   decimal.Decimal     `gorm:"column:labor_cost;type:numeric(12,2);not null" json:"labor_cost"`
	PartsTotal  decimal.Decimal     `gorm:"column:parts_total;type:numeric(12,2);not null" json:"parts_total"`
	TotalAmount decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	Status      enums.ServiceStatus `gorm:"column:status;type:text;not null" json:"status"`
	MechanicID  *uuid.UUID          `gorm:"column:mechanic_id;type:uuid" json:"mechanic_id,omitempty"`
	Notes       string              `gorm:"column:notes;not null" json:"notes"`
	CreatedBy   *uuid.UUID          `gorm:"column:created_by;type:uuid" json:"created_by,omitempty"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ServiceRecord) TableName() string { return "service_records" }

func (s *ServiceRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
