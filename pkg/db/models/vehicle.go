package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vehicle belongs to either a client or an organization.
type Vehicle struct {
	ID                 uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RegistrationNumber string     `gorm:"column:registration_number;not null;uniqueIndex" json:"registration_number"`
	MakeModel          string     `gorm:"column:make_model;not null" json:"make_model"`
	VehicleType        *string    `gorm:"column:vehicle_type" json:"vehicle_type,omitempty"`
	Year               *int       `gorm:"column:year" json:"year,omitempty"`
	Color              *string    `gorm:"column:color" json:"color,omitempty"`
	VIN                *string    `gorm:"column:vin" json:"vin,omitempty"`
	OrganizationID     *uuid.UUID `gorm:"column:organization_id;type:uuid" json:"organization_id,omitempty"`
	ClientID           *uuid.UUID `gorm:"column:client_id;type:uuid" json:"client_id,omitempty"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (v *Vehicle) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
