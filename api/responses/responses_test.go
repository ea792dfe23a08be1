package responses

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
	"github.com/garageworks/garage-backend/pkg/pagination"
	"github.com/garageworks/garage-backend/pkg/types"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	if got := w.Code; got != http.StatusOK {
		t.Fatalf("expected status 200 but got %d", got)
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if !body.Success {
		t.Fatalf("expected success flag")
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWritePageIncludesPagination(t *testing.T) {
	w := httptest.NewRecorder()
	WritePage(w, pagination.NewPage([]string{"a", "b"}, pagination.Params{Page: 1, Limit: 2}, 5))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	meta := body["pagination"].(map[string]any)
	require.EqualValues(t, 3, meta["totalPages"])
	require.EqualValues(t, 5, meta["totalItems"])
	require.Equal(t, true, meta["hasNextPage"])
	require.Len(t, body["data"], 2)
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "bad input").
		WithDetails(map[string]string{"field": "demo"})
	WriteError(t.Context(), nil, w, err)

	if got := w.Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 but got %d", got)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Success || body.Code != string(pkgerrors.CodeValidation) || body.Message != "bad input" {
		t.Fatalf("unexpected envelope %+v", body)
	}
	if body.Details == nil {
		t.Fatalf("expected validation details")
	}
}

func TestWriteErrorInsufficientStockKeepsMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(t.Context(), nil, w, pkgerrors.New(pkgerrors.CodeInsufficient, "Insufficient stock for part Brake pads. Available: 1"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, "Insufficient stock for part Brake pads. Available: 1", body.Message)
}

func TestWriteErrorHidesInternalCause(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(t.Context(), nil, w, errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, string(pkgerrors.CodeInternal), body.Code)
	require.Equal(t, "internal server error", body.Message)
	require.Empty(t, body.Stack)
}

func TestWriteErrorExposesChainWhenEnabled(t *testing.T) {
	ExposeErrorChain(true)
	t.Cleanup(func() { ExposeErrorChain(false) })

	w := httptest.NewRecorder()
	WriteError(t.Context(), nil, w, pkgerrors.Wrap(pkgerrors.CodeInternal, errors.New("boom"), "load"))

	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Contains(t, body.Stack, "boom")
}

func TestWriteErrorConflictNamesConstraintField(t *testing.T) {
	w := httptest.NewRecorder()
	cause := &pgconn.PgError{Code: "23505", ConstraintName: "vehicles_registration_number_key", TableName: "vehicles"}
	WriteError(t.Context(), nil, w, pkgerrors.Wrap(pkgerrors.CodeConflict, cause, "vehicle with registration KA01AB1234 already exists"))

	require.Equal(t, http.StatusConflict, w.Code)
	var body struct {
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, "vehicle with registration KA01AB1234 already exists", body.Message)
	require.Equal(t, "registration_number", body.Details["field"])
}

func TestDumpFieldsSkipsEmptyDiagnostics(t *testing.T) {
	fields := dumpFields(pkgerrors.Dump(pkgerrors.New(pkgerrors.CodeNotFound, "part not found")), http.StatusNotFound)
	require.NotContains(t, fields, "pg_code")
	require.NotContains(t, fields, "field")
	require.Equal(t, http.StatusNotFound, fields["status"])
}
