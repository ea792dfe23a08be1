package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/garageworks/garage-backend/pkg/enums"
)

// StockMovement is an append-only record of one inventory ledger adjustment.
type StockMovement struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PartID        uuid.UUID                 `gorm:"column:part_id;type:uuid;not null;index" json:"part_id"`
	Delta         int                       `gorm:"column:delta;not null" json:"delta"`
	QuantityAfter int                       `gorm:"column:quantity_after;not null" json:"quantity_after"`
	Reason        enums.StockMovementReason `gorm:"column:reason;type:text;not null" json:"reason"`
	ReferenceID   *uuid.UUID                `gorm:"column:reference_id;type:uuid" json:"reference_id,omitempty"`
	ActorID       *uuid.UUID                `gorm:"column:actor_id;type:uuid" json:"actor_id,omitempty"`
	Metadata      datatypes.JSONMap         `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
