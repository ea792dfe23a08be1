package clients

import (
	"github.com/garageworks/garage-backend/internal/vehicles"
	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/garageworks/garage-backend/pkg/pagination"
)

type CreateInput struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string  `json:"phone" validate:"required,max=30"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

// VehicleInput is a vehicle registered together with its new client.
type VehicleInput struct {
	RegistrationNumber string  `json:"registration_number" validate:"required,max=20"`
	MakeModel          string  `json:"make_model" validate:"required,max=120"`
	VehicleType        *string `json:"vehicle_type,omitempty" validate:"omitempty,max=50"`
	Year               *int    `json:"year,omitempty" validate:"omitempty,gte=1900,lte=2100"`
	Color              *string `json:"color,omitempty" validate:"omitempty,max=40"`
	VIN                *string `json:"vin,omitempty" validate:"omitempty,max=32"`
}

type CreateWithVehiclesInput struct {
	CreateInput
	Vehicles []VehicleInput `json:"vehicles" validate:"required,min=1,dive"`
}

type UpdateInput struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,min=1,max=30"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

type ListInput struct {
	Search     string
	Pagination pagination.Params
}

// ClientSummary is a client row with its vehicle count.
type ClientSummary struct {
	models.Client
	VehicleCount int64 `json:"vehicle_count"`
}

// ClientDetail is a client with its vehicles.
type ClientDetail struct {
	models.Client
	Vehicles []models.Vehicle `json:"vehicles"`
}

type CreateWithVehiclesResult struct {
	Client   *models.Client   `json:"client"`
	Vehicles []models.Vehicle `json:"vehicles"`
}

func (v VehicleInput) toVehicleInput() vehicles.CreateInput {
	return vehicles.CreateInput{
		RegistrationNumber: v.RegistrationNumber,
		MakeModel:          v.MakeModel,
		VehicleType:        v.VehicleType,
		Year:               v.Year,
		Color:              v.Color,
		VIN:                v.VIN,
	}
}
