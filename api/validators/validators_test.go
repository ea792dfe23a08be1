package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
	"github.com/garageworks/garage-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/parts?page=3&limit=500", nil)
	p, err := ParsePagination(r)
	require.NoError(t, err)
	require.Equal(t, pagination.Params{Page: 3, Limit: pagination.MaxLimit}, p)

	r = httptest.NewRequest(http.MethodGet, "/api/parts", nil)
	p, err = ParsePagination(r)
	require.NoError(t, err)
	require.Equal(t, pagination.Params{Page: 1, Limit: pagination.DefaultLimit}, p)

	r = httptest.NewRequest(http.MethodGet, "/api/parts?page=abc", nil)
	_, err = ParsePagination(r)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseOptionalQueries(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?start=2026-03-01&end=2026-03-31T10:00:00Z&low_stock=true&vehicle_id=nope", nil)

	start, err := ParseOptionalDateQuery(r, "start")
	require.NoError(t, err)
	require.Equal(t, 2026, start.Year())

	end, err := ParseOptionalDateQuery(r, "end")
	require.NoError(t, err)
	require.Equal(t, 10, end.Hour())

	low, err := ParseOptionalBoolQuery(r, "low_stock")
	require.NoError(t, err)
	require.True(t, low)

	_, err = ParseOptionalUUIDQuery(r, "vehicle_id")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missing, err := ParseOptionalUUIDQuery(r, "client_id")
	require.NoError(t, err)
	require.Nil(t, missing)
}

type sampleBody struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

func TestDecodeJSONBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Oil","quantity":0}`))
	var body sampleBody
	err := DecodeJSONBody(r, &body)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	require.Equal(t, map[string]string{"quantity": "must be greater than or equal to 1"}, typed.Details())

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Oil","quantity":1,"extra":true}`))
	require.True(t, pkgerrors.IsCode(DecodeJSONBody(r, &body), pkgerrors.CodeValidation))
}

type lineBody struct {
	PartID   string          `json:"part_id" validate:"required"`
	Quantity int             `json:"quantity" validate:"gt=0"`
	Price    decimal.Decimal `json:"unit_price" validate:"gte=0"`
}

type quoteBody struct {
	Discount *decimal.Decimal `json:"discount,omitempty" validate:"omitempty,gte=0,lte=100"`
	Lines    []lineBody       `json:"parts" validate:"dive"`
}

func TestDecodeJSONBodyMoneyAndLinePaths(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(
		`{"discount":"120","parts":[{"part_id":"a","quantity":1,"unit_price":"5.00"},{"part_id":"b","quantity":0,"unit_price":"-1"}]}`))
	var body quoteBody
	typed := pkgerrors.As(DecodeJSONBody(r, &body))
	require.NotNil(t, typed)
	require.Equal(t, map[string]string{
		"discount":            "must be less than or equal to 100",
		"parts[1].quantity":   "must be greater than 0",
		"parts[1].unit_price": "must be greater than or equal to 0",
	}, typed.Details())

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"parts":[{"part_id":"a","quantity":2,"unit_price":"12.50"}]}`))
	body = quoteBody{}
	require.NoError(t, DecodeJSONBody(r, &body))
	require.Nil(t, body.Discount)
}

func TestDecodeJSONBodyRejectsEmptyAndTrailingData(t *testing.T) {
	var body sampleBody
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Contains(t, err.Error(), "required")

	err = DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Oil","quantity":1}{"name":"x"}`)), &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeOptionalJSONBody(t *testing.T) {
	var body sampleBody
	require.NoError(t, DecodeOptionalJSONBody(httptest.NewRequest(http.MethodPatch, "/", nil), &body))
	require.Empty(t, body.Name)

	r := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(""))
	r.ContentLength = -1
	require.NoError(t, DecodeOptionalJSONBody(r, &body))

	r = httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"name":"Oil","quantity":1}`))
	r.ContentLength = -1
	require.NoError(t, DecodeOptionalJSONBody(r, &body))
	require.Equal(t, "Oil", body.Name)

	err := DecodeOptionalJSONBody(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"colour":"red"}`)), &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	require.Equal(t, "abc.def", tok)

	_, err = BearerToken("Bearer ")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "brake pads", SanitizeString("  brake pads\x00 ", 0))
	require.Equal(t, "line one\nline two", SanitizeString("line one\nline two", 100))
	require.Equal(t, "abc", SanitizeString("abcdef", 3))
	// "é" is two bytes; a cut inside it drops the whole rune
	require.Equal(t, "caf", SanitizeString("café", 4))
}
