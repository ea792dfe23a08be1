package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true},
		{code: CodeInvalidState, status: http.StatusBadRequest, publicMsg: "operation not allowed in current state", detailsOK: true},
		{code: CodeInsufficient, status: http.StatusBadRequest, publicMsg: "insufficient stock", detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded", retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeInsufficient, "Insufficient stock for part Brake Pad. Available: 5"))
	if !IsCode(err, CodeInsufficient) {
		t.Fatalf("expected insufficient stock code in chain")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatalf("did not expect not found code")
	}
	if IsCode(nil, CodeInternal) {
		t.Fatalf("nil error carries no code")
	}
}

func TestDumpExtractsPgError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "parts_part_number_key", TableName: "parts", Message: "duplicate key value"}
	err := Wrap(CodeConflict, pgErr, "create part")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if dump.PGCode != "23505" || dump.PGConstraint != "parts_part_number_key" || dump.PGTable != "parts" {
		t.Fatalf("unexpected pg fields: %+v", dump)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected chain of 2, got %v", dump.Chain)
	}
}

func TestConstraintFieldNamesGuardedField(t *testing.T) {
	cases := map[string]error{
		"registration_number": &pgconn.PgError{Code: "23505", ConstraintName: "vehicles_registration_number_key"},
		"service_record_id":   Wrap(CodeConflict, &pgconn.PgError{Code: "23505", ConstraintName: "invoices_service_record_id_key"}, "create invoice"),
		"phone":               &pq.Error{Code: "23505", Constraint: "clients_phone_key"},
		"part_number":         fmt.Errorf("insert: %w", stdErrors.New("UNIQUE constraint failed: parts.part_number")),
		"":                    stdErrors.New("connection reset"),
	}
	for want, err := range cases {
		if got := ConstraintField(err); got != want {
			t.Fatalf("ConstraintField(%v) = %q, want %q", err, got, want)
		}
	}
	if Dump(cases["phone"]).Field != "phone" {
		t.Fatalf("dump should carry the field")
	}
}

func TestNewfAndWrappedErrorText(t *testing.T) {
	err := Newf(CodeValidation, "invalid service status %q", "parked")
	if err.Message() != `invalid service status "parked"` {
		t.Fatalf("unexpected message %q", err.Message())
	}
	if err.Error() != `VALIDATION_ERROR: invalid service status "parked"` {
		t.Fatalf("unexpected text %q", err.Error())
	}
	wrapped := Wrap(CodeDependency, stdErrors.New("dial tcp: refused"), "ping redis")
	if wrapped.Error() != "DEPENDENCY_ERROR: ping redis: dial tcp: refused" {
		t.Fatalf("cause should be part of the text, got %q", wrapped.Error())
	}
}
