package parts

import (
	"github.com/garageworks/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultReorderLevel = 5

// CreateInput is the payload for creating a catalog part. QuantityInStock is the opening stock.
type CreateInput struct {
	PartName        string          `json:"part_name" validate:"required,max=200"`
	PartNumber      *string         `json:"part_number,omitempty" validate:"omitempty,max=100"`
	Description     *string         `json:"description,omitempty"`
	UnitPrice       decimal.Decimal `json:"unit_price" validate:"gte=0"`
	QuantityInStock int             `json:"quantity_in_stock" validate:"gte=0"`
	ReorderLevel    *int            `json:"reorder_level,omitempty" validate:"omitempty,gte=0"`
	ActorID         *uuid.UUID      `json:"-"`
}

// UpdateInput lists the fields that may change after creation. Stock is adjusted through the ledger only.
type UpdateInput struct {
	PartName     *string          `json:"part_name,omitempty" validate:"omitempty,min=1,max=200"`
	PartNumber   *string          `json:"part_number,omitempty" validate:"omitempty,max=100"`
	Description  *string          `json:"description,omitempty"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	ReorderLevel *int             `json:"reorder_level,omitempty" validate:"omitempty,gte=0"`
}

// ListFilters narrows the parts listing.
type ListFilters struct {
	Search   string
	LowStock bool
}

type ListInput struct {
	Filters    ListFilters
	Pagination pagination.Params
}
