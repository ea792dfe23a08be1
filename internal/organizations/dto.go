package organizations

import (
	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/garageworks/garage-backend/pkg/pagination"
)

type CreateInput struct {
	Name          string  `json:"name" validate:"required,max=200"`
	ContactPerson *string `json:"contact_person,omitempty" validate:"omitempty,max=200"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         string  `json:"phone" validate:"required,max=30"`
	Address       *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

type UpdateInput struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	ContactPerson *string `json:"contact_person,omitempty" validate:"omitempty,max=200"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,min=1,max=30"`
	Address       *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

type ListInput struct {
	Search     string
	Pagination pagination.Params
}

type OrganizationSummary struct {
	models.Organization
	VehicleCount int64 `json:"vehicle_count"`
}

// OrganizationDetail is an organization with its fleet.
type OrganizationDetail struct {
	models.Organization
	Vehicles []models.Vehicle `json:"vehicles"`
}
