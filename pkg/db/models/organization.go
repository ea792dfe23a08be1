package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization is a fleet account owning several vehicles.
type Organization struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string    `gorm:"column:name;not null" json:"name"`
	ContactPerson *string   `gorm:"column:contact_person" json:"contact_person,omitempty"`
	Email         *string   `gorm:"column:email" json:"email,omitempty"`
	Phone         string    `gorm:"column:phone;not null;uniqueIndex" json:"phone"`
	Address       *string   `gorm:"column:address" json:"address,omitempty"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (o *Organization) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
