package invoices

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	internalinvoices "github.com/garageworks/garage-backend/internal/invoices"
	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/garageworks/garage-backend/pkg/enums"
	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
	"github.com/garageworks/garage-backend/pkg/logger"
	"github.com/garageworks/garage-backend/pkg/pagination"
)

type stubInvoices struct {
	created   internalinvoices.CreateInput
	createErr error
	paid      internalinvoices.MarkPaidInput
	listInput internalinvoices.ListInput
	year      int
	month     *int
}

func (s *stubInvoices) Create(ctx context.Context, input internalinvoices.CreateInput) (*internalinvoices.InvoiceDetail, error) {
	s.created = input
	if s.createErr != nil {
		return nil, s.createErr
	}
	return invoiceDetail(uuid.New()), nil
}

func (s *stubInvoices) MarkPaid(ctx context.Context, id uuid.UUID, input internalinvoices.MarkPaidInput) (*internalinvoices.InvoiceDetail, error) {
	s.paid = input
	return invoiceDetail(id), nil
}

func (s *stubInvoices) Get(ctx context.Context, id uuid.UUID) (*internalinvoices.InvoiceDetail, error) {
	return invoiceDetail(id), nil
}

func (s *stubInvoices) List(ctx context.Context, input internalinvoices.ListInput) (pagination.Page[internalinvoices.InvoiceSummary], error) {
	s.listInput = input
	return pagination.NewPage([]internalinvoices.InvoiceSummary{}, input.Pagination, 0), nil
}

func (s *stubInvoices) Update(ctx context.Context, id uuid.UUID, input internalinvoices.UpdateInput) (*internalinvoices.InvoiceDetail, error) {
	return invoiceDetail(id), nil
}

func (s *stubInvoices) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (s *stubInvoices) RevenueStats(ctx context.Context, year int, month *int) ([]internalinvoices.MonthlyRevenue, error) {
	s.year = year
	s.month = month
	return []internalinvoices.MonthlyRevenue{}, nil
}

func (s *stubInvoices) AgedUnpaid(ctx context.Context, olderThan time.Duration) (internalinvoices.AgingReport, error) {
	return internalinvoices.AgingReport{}, nil
}

func (s *stubInvoices) RenderPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	return []byte("%PDF-1.4 test"), "INV-20260101-ABC123.pdf", nil
}

func invoiceDetail(id uuid.UUID) *internalinvoices.InvoiceDetail {
	return &internalinvoices.InvoiceDetail{
		InvoiceSummary: internalinvoices.InvoiceSummary{Invoice: models.Invoice{ID: id, InvoiceNumber: "INV-20260101-ABC123"}},
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

func TestCreateReturns201(t *testing.T) {
	svc := &stubInvoices{}
	serviceID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/invoices", strings.NewReader(`{"service_record_id":"`+serviceID.String()+`","discount":"10","tax_rate":"16"}`))
	rec := httptest.NewRecorder()

	Create(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, serviceID, svc.created.ServiceRecordID)
	require.Equal(t, "10", svc.created.Discount.String())
	require.Contains(t, rec.Body.String(), "INV-20260101-ABC123")
}

func TestCreateDuplicateIsConflict(t *testing.T) {
	svc := &stubInvoices{createErr: pkgerrors.New(pkgerrors.CodeConflict, "service already invoiced")}
	req := httptest.NewRequest(http.MethodPost, "/api/invoices", strings.NewReader(`{"service_record_id":"`+uuid.NewString()+`"}`))
	rec := httptest.NewRecorder()

	Create(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestMarkPaidAcceptsEmptyBody(t *testing.T) {
	svc := &stubInvoices{}
	id := uuid.New()
	req := withID(httptest.NewRequest(http.MethodPatch, "/api/invoices/"+id.String()+"/pay", nil), id)
	rec := httptest.NewRecorder()

	MarkPaid(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, svc.paid.PaymentMethod)
}

func TestMarkPaidWithMethod(t *testing.T) {
	svc := &stubInvoices{}
	id := uuid.New()
	req := withID(httptest.NewRequest(http.MethodPatch, "/api/invoices/"+id.String()+"/pay", strings.NewReader(`{"payment_method":"card"}`)), id)
	rec := httptest.NewRecorder()

	MarkPaid(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, enums.PaymentMethod("card"), *svc.paid.PaymentMethod)
}

func TestMarkPaidReadsChunkedBody(t *testing.T) {
	svc := &stubInvoices{}
	id := uuid.New()
	req := withID(httptest.NewRequest(http.MethodPatch, "/api/invoices/"+id.String()+"/pay", nil), id)
	req.Body = io.NopCloser(strings.NewReader(`{"payment_method":"mpesa"}`))
	req.ContentLength = -1
	rec := httptest.NewRecorder()

	MarkPaid(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.paid.PaymentMethod)
	require.Equal(t, enums.PaymentMethodMpesa, *svc.paid.PaymentMethod)

	svc = &stubInvoices{}
	req = withID(httptest.NewRequest(http.MethodPatch, "/api/invoices/"+id.String()+"/pay", nil), id)
	req.Body = io.NopCloser(strings.NewReader(""))
	req.ContentLength = -1
	rec = httptest.NewRecorder()

	MarkPaid(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, svc.paid.PaymentMethod)
}

func TestRevenueStatsParsesYearAndMonth(t *testing.T) {
	svc := &stubInvoices{}
	req := httptest.NewRequest(http.MethodGet, "/api/invoices/stats/revenue?year=2025&month=3", nil)
	rec := httptest.NewRecorder()

	RevenueStats(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2025, svc.year)
	require.Equal(t, 3, *svc.month)
}

func TestRevenueStatsRejectsMonth13(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/invoices/stats/revenue?month=13", nil)
	rec := httptest.NewRecorder()

	RevenueStats(&stubInvoices{}, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRejectsInvertedRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/invoices?start_date=2026-03-01&end_date=2026-02-01", nil)
	rec := httptest.NewRecorder()

	List(&stubInvoices{}, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPaymentStatusFilter(t *testing.T) {
	svc := &stubInvoices{}
	req := httptest.NewRequest(http.MethodGet, "/api/invoices?payment_status=unpaid", nil)
	rec := httptest.NewRecorder()

	List(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, enums.PaymentStatus("unpaid"), *svc.listInput.Filters.PaymentStatus)
}

func TestPDFStreamsAttachment(t *testing.T) {
	id := uuid.New()
	req := withID(httptest.NewRequest(http.MethodGet, "/api/invoices/"+id.String()+"/pdf", nil), id)
	rec := httptest.NewRecorder()

	PDF(&stubInvoices{}, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "INV-20260101-ABC123.pdf")
	require.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}
