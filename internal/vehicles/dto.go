package vehicles

import (
	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/garageworks/garage-backend/pkg/pagination"
	"github.com/garageworks/garage-backend/pkg/types"
	"github.com/google/uuid"
)

// CreateInput registers a vehicle. At most one of OrganizationID and ClientID may be set.
type CreateInput struct {
	RegistrationNumber string     `json:"registration_number" validate:"required,max=20"`
	MakeModel          string     `json:"make_model" validate:"required,max=120"`
	VehicleType        *string    `json:"vehicle_type,omitempty" validate:"omitempty,max=50"`
	Year               *int       `json:"year,omitempty" validate:"omitempty,gte=1900,lte=2100"`
	Color              *string    `json:"color,omitempty" validate:"omitempty,max=40"`
	VIN                *string    `json:"vin,omitempty" validate:"omitempty,max=32"`
	OrganizationID     *uuid.UUID `json:"organization_id,omitempty"`
	ClientID           *uuid.UUID `json:"client_id,omitempty"`
}

// UpdateInput is the allow-list of mutable vehicle fields. Owner ids use NullableUUID so null clears them.
type UpdateInput struct {
	RegistrationNumber *string            `json:"registration_number,omitempty" validate:"omitempty,min=1,max=20"`
	MakeModel          *string            `json:"make_model,omitempty" validate:"omitempty,min=1,max=120"`
	VehicleType        *string            `json:"vehicle_type,omitempty" validate:"omitempty,max=50"`
	Year               *int               `json:"year,omitempty" validate:"omitempty,gte=1900,lte=2100"`
	Color              *string            `json:"color,omitempty" validate:"omitempty,max=40"`
	VIN                *string            `json:"vin,omitempty" validate:"omitempty,max=32"`
	OrganizationID     types.NullableUUID `json:"organization_id"`
	ClientID           types.NullableUUID `json:"client_id"`
}

type ListFilters struct {
	Search         string
	OrganizationID *uuid.UUID
	ClientID       *uuid.UUID
}

type ListInput struct {
	Filters    ListFilters
	Pagination pagination.Params
}

// OwnerSummary names whoever owns the vehicle.
type OwnerSummary struct {
	Kind  string    `json:"kind"`
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone"`
}

// VehicleDetail is a vehicle plus its owner.
type VehicleDetail struct {
	models.Vehicle
	Owner *OwnerSummary `json:"owner,omitempty" gorm:"-"`
}

const (
	OwnerKindClient       = "client"
	OwnerKindOrganization = "organization"
)
