package services

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/garageworks/garage-backend/pkg/enums"
	"github.com/garageworks/garage-backend/pkg/pagination"
	"github.com/garageworks/garage-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartLine is one part consumed by a service, priced by the caller.
type PartLine struct {
	PartID    uuid.UUID       `json:"part_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gte=0"`
}

type CreateInput struct {
	VehicleID   uuid.UUID           `json:"vehicle_id" validate:"required"`
	Description string              `json:"description" validate:"required,max=2000"`
	LaborCost   decimal.Decimal     `json:"labour_cost" validate:"gte=0"`
	Notes       string              `json:"notes" validate:"max=4000"`
	Status      enums.ServiceStatus `json:"status,omitempty"`
	Parts       []PartLine          `json:"parts" validate:"dive"`
	ServiceDate *time.Time          `json:"service_date,omitempty"`
	Mileage     *int                `json:"mileage,omitempty" validate:"omitempty,gte=0"`
	MechanicID  *uuid.UUID          `json:"mechanic_id,omitempty"`
	CreatedBy   *uuid.UUID          `json:"-"`
}

// UnmarshalJSON accepts "labor_cost" as an alias of "labour_cost" and still rejects unknown keys.
func (in *CreateInput) UnmarshalJSON(data []byte) error {
	type plain CreateInput
	var raw struct {
		plain
		LaborCostAlias *decimal.Decimal `json:"labor_cost"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*in = CreateInput(raw.plain)
	if raw.LaborCostAlias != nil && in.LaborCost.IsZero() {
		in.LaborCost = *raw.LaborCostAlias
	}
	return nil
}

type AddPartInput struct {
	PartLine
	ActorID *uuid.UUID `json:"-"`
}

// UpdateInput is the allow-list of mutable service fields.
type UpdateInput struct {
	Status      *enums.ServiceStatus `json:"status,omitempty"`
	Notes       *string              `json:"notes,omitempty" validate:"omitempty,max=4000"`
	Description *string              `json:"description,omitempty" validate:"omitempty,min=1,max=2000"`
	MechanicID  types.NullableUUID   `json:"mechanic_id"`
}

type ListFilters struct {
	Status         *enums.ServiceStatus
	VehicleID      *uuid.UUID
	ClientID       *uuid.UUID
	OrganizationID *uuid.UUID
	Search         string
}

type ListInput struct {
	Filters    ListFilters
	Pagination pagination.Params
}

// ServiceSummary is a list row joined with its vehicle and owner.
type ServiceSummary struct {
	models.ServiceRecord
	RegistrationNumber string  `json:"registration_number"`
	MakeModel          string  `json:"make_model"`
	OwnerName          *string `json:"owner_name,omitempty"`
}

// UsageLine is a usage row with the part's catalog identity.
type UsageLine struct {
	models.ServicePart
	PartName   string  `json:"part_name"`
	PartNumber *string `json:"part_number,omitempty"`
}

type ServiceDetail struct {
	ServiceSummary
	Parts     []UsageLine `json:"parts"`
	InvoiceID *uuid.UUID  `json:"invoice_id,omitempty"`
}
