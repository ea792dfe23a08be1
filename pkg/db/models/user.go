package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/garageworks/garage-backend/pkg/enums"
)

// User is a staff account that can sign in to the API.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email        string         `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	FullName     string         `gorm:"column:full_name;not null" json:"full_name"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null" json:"role"`
	IsActive     bool           `gorm:"column:is_active;not null" json:"is_active"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
