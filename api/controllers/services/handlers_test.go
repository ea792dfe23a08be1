package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/garageworks/garage-backend/api/middleware"
	internalservices "github.com/garageworks/garage-backend/internal/services"
	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/garageworks/garage-backend/pkg/enums"
	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
	"github.com/garageworks/garage-backend/pkg/logger"
	"github.com/garageworks/garage-backend/pkg/pagination"
)

type stubServices struct {
	created    internalservices.CreateInput
	createErr  error
	added      internalservices.AddPartInput
	addedTo    uuid.UUID
	listInput  internalservices.ListInput
	updateBody internalservices.UpdateInput
}

func (s *stubServices) Create(ctx context.Context, input internalservices.CreateInput) (*internalservices.ServiceDetail, error) {
	s.created = input
	if s.createErr != nil {
		return nil, s.createErr
	}
	return detail(uuid.New()), nil
}

func (s *stubServices) AddPart(ctx context.Context, serviceID uuid.UUID, input internalservices.AddPartInput) (*internalservices.ServiceDetail, error) {
	s.addedTo = serviceID
	s.added = input
	return detail(serviceID), nil
}

func (s *stubServices) Get(ctx context.Context, id uuid.UUID) (*internalservices.ServiceDetail, error) {
	return detail(id), nil
}

func (s *stubServices) List(ctx context.Context, input internalservices.ListInput) (pagination.Page[internalservices.ServiceSummary], error) {
	s.listInput = input
	return pagination.NewPage([]internalservices.ServiceSummary{}, input.Pagination, 0), nil
}

func (s *stubServices) Update(ctx context.Context, id uuid.UUID, input internalservices.UpdateInput) (*internalservices.ServiceDetail, error) {
	s.updateBody = input
	return detail(id), nil
}

func (s *stubServices) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

func detail(id uuid.UUID) *internalservices.ServiceDetail {
	return &internalservices.ServiceDetail{
		ServiceSummary: internalservices.ServiceSummary{ServiceRecord: models.ServiceRecord{ID: id}},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withID(r *http.Request, id uuid.UUID) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateReturns201WithActor(t *testing.T) {
	svc := &stubServices{}
	actor := uuid.New()
	vehicleID := uuid.New()
	partID := uuid.New()
	payload := `{"vehicle_id":"` + vehicleID.String() + `","description":"Brake job","labour_cost":"80.00","parts":[{"part_id":"` + partID.String() + `","quantity":2,"unit_price":"25.00"}]}`

	req := httptest.NewRequest(http.MethodPost, "/api/services", strings.NewReader(payload))
	req = req.WithContext(middleware.WithIdentity(req.Context(), actor, enums.UserRoleMechanic, "jti"))
	rec := httptest.NewRecorder()
	Create(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, vehicleID, svc.created.VehicleID)
	require.Len(t, svc.created.Parts, 1)
	require.Equal(t, 2, svc.created.Parts[0].Quantity)
	require.Equal(t, actor, *svc.created.CreatedBy)
	require.Equal(t, "80", svc.created.LaborCost.String())
}

func TestCreateAcceptsLaborCostSpelling(t *testing.T) {
	svc := &stubServices{}
	payload := `{"vehicle_id":"` + uuid.NewString() + `","description":"Oil change","labor_cost":"35.50"}`
	rec := httptest.NewRecorder()
	Create(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/services", strings.NewReader(payload)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "35.5", svc.created.LaborCost.String())

	rec = httptest.NewRecorder()
	bad := `{"vehicle_id":"` + uuid.NewString() + `","description":"Oil change","labour":"1"}`
	Create(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/services", strings.NewReader(bad)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRejectsNonPositiveQuantity(t *testing.T) {
	payload := `{"vehicle_id":"` + uuid.NewString() + `","description":"x","parts":[{"part_id":"` + uuid.NewString() + `","quantity":0}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/services", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	Create(&stubServices{}, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateInsufficientStockIs400(t *testing.T) {
	svc := &stubServices{createErr: pkgerrors.New(pkgerrors.CodeInsufficient, "insufficient stock for part Oil filter")}
	payload := `{"vehicle_id":"` + uuid.NewString() + `","description":"Oil change"}`
	req := httptest.NewRequest(http.MethodPost, "/api/services", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	Create(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Oil filter")
}

func TestAddPartReturns201(t *testing.T) {
	svc := &stubServices{}
	serviceID := uuid.New()
	partID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/services/"+serviceID.String()+"/parts", strings.NewReader(`{"part_id":"`+partID.String()+`","quantity":1,"unit_price":"9.99"}`))
	req = withID(req, serviceID)
	rec := httptest.NewRecorder()

	AddPart(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, serviceID, svc.addedTo)
	require.Equal(t, partID, svc.added.PartID)
	require.Nil(t, svc.added.ActorID)
}

func TestListParsesFilters(t *testing.T) {
	svc := &stubServices{}
	vehicleID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/services?status=completed&vehicle_id="+vehicleID.String(), nil)
	rec := httptest.NewRecorder()

	List(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, enums.ServiceStatus("completed"), *svc.listInput.Filters.Status)
	require.Equal(t, vehicleID, *svc.listInput.Filters.VehicleID)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/services?status=exploded", nil)
	rec := httptest.NewRecorder()

	List(&stubServices{}, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateClearsMechanic(t *testing.T) {
	svc := &stubServices{}
	id := uuid.New()
	req := withID(httptest.NewRequest(http.MethodPut, "/api/services/"+id.String(), strings.NewReader(`{"mechanic_id":null}`)), id)
	rec := httptest.NewRecorder()

	Update(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, svc.updateBody.MechanicID.Valid)
	require.Nil(t, svc.updateBody.MechanicID.Value)
}
