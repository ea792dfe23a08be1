package services

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/garageworks/garage-backend/api/middleware"
	"github.com/garageworks/garage-backend/api/responses"
	"github.com/garageworks/garage-backend/api/validators"
	internalservices "github.com/garageworks/garage-backend/internal/services"
	"github.com/garageworks/garage-backend/pkg/enums"
	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
	"github.com/garageworks/garage-backend/pkg/logger"
)

// List returns service records filtered by status, vehicle or owner.
func List(svc internalservices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "services service unavailable"))
			return
		}

		filters, err := parseFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), internalservices.ListInput{Filters: filters, Pagination: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, page)
	}
}

func Detail(svc internalservices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "services service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// Create records a service, consuming its parts from stock atomically.
func Create(svc internalservices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "services service unavailable"))
			return
		}

		var body internalservices.CreateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.CreatedBy = actorID(r)

		detail, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithServiceID(r.Context(), detail.ID)
		logg.Info(ctx, "service recorded")
		responses.WriteMessage(w, http.StatusCreated, "service recorded", detail)
	}
}

// AddPart consumes one more part line on an existing, uninvoiced service.
func AddPart(svc internalservices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "services service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body internalservices.PartLine
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.AddPart(r.Context(), id, internalservices.AddPartInput{PartLine: body, ActorID: actorID(r)})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "part added to service", detail)
	}
}

func Update(svc internalservices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "services service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body internalservices.UpdateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "service updated", detail)
	}
}

func Delete(svc internalservices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "services service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "service deleted", nil)
	}
}

func parseFilters(r *http.Request) (internalservices.ListFilters, error) {
	var filters internalservices.ListFilters
	if raw := validators.QueryString(r, "status"); raw != "" {
		status, err := enums.ParseServiceStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").WithDetails(map[string]any{"field": "status"})
		}
		filters.Status = &status
	}
	var err error
	if filters.VehicleID, err = validators.ParseOptionalUUIDQuery(r, "vehicle_id"); err != nil {
		return filters, err
	}
	if filters.ClientID, err = validators.ParseOptionalUUIDQuery(r, "client_id"); err != nil {
		return filters, err
	}
	if filters.OrganizationID, err = validators.ParseOptionalUUIDQuery(r, "organization_id"); err != nil {
		return filters, err
	}
	filters.Search = validators.QueryString(r, "search")
	return filters, nil
}

func actorID(r *http.Request) *uuid.UUID {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return nil
	}
	return &id
}
