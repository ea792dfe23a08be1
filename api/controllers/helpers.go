package controllers

import (
	"context"
	"net/http"

	"github.com/garageworks/garage-backend/api/middleware"
	"github.com/garageworks/garage-backend/api/responses"
	"github.com/garageworks/garage-backend/api/validators"
	"github.com/garageworks/garage-backend/internal/services"
	"github.com/garageworks/garage-backend/pkg/logger"
	"github.com/garageworks/garage-backend/pkg/pagination"
	"github.com/google/uuid"
)

// ServiceHistoryLister is the slice of the services module the owner history endpoints need.
type ServiceHistoryLister interface {
	List(ctx context.Context, input services.ListInput) (pagination.Page[services.ServiceSummary], error)
}

func actorID(r *http.Request) *uuid.UUID {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return nil
	}
	return &id
}

// writeServiceHistory checks the owner exists, then lists its service records newest first.
func writeServiceHistory(w http.ResponseWriter, r *http.Request, logg *logger.Logger, history ServiceHistoryLister, exists func(context.Context) error, filters services.ListFilters) {
	if err := exists(r.Context()); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	params, err := validators.ParsePagination(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	page, err := history.List(r.Context(), services.ListInput{Filters: filters, Pagination: params})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WritePage(w, page)
}
