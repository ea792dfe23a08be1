package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
	"github.com/garageworks/garage-backend/pkg/logger"
	"github.com/garageworks/garage-backend/pkg/pagination"
	"github.com/garageworks/garage-backend/pkg/types"
)

var exposeErrorChain atomic.Bool

// ExposeErrorChain puts the unwrapped error chain into the "stack" field.
// Development only.
func ExposeErrorChain(on bool) {
	exposeErrorChain.Store(on)
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Success: true, Data: data})
}

func WriteMessage(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Success: true, Message: message, Data: data})
}

func WritePage[T any](w http.ResponseWriter, page pagination.Page[T]) {
	meta := page.Meta
	writeJSON(w, http.StatusOK, types.SuccessEnvelope{Success: true, Data: page.Items, Pagination: &meta})
}

// WriteError renders err as the error envelope. Messages of 4xx codes reach
// the client as written; 5xx codes only ever show their generic text.
// Conflicts raised by a unique or foreign key constraint name the offending
// request field in details.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())
	dump := pkgerrors.Dump(err)

	payload := types.ErrorEnvelope{Message: meta.PublicMessage, Code: string(typed.Code())}
	if meta.HTTPStatus < http.StatusInternalServerError && typed.Message() != "" {
		payload.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		payload.Details = typed.Details()
		if payload.Details == nil && typed.Code() == pkgerrors.CodeConflict && dump.Field != "" {
			payload.Details = map[string]string{"field": dump.Field}
		}
	}
	if exposeErrorChain.Load() {
		payload.Stack = strings.Join(dump.Chain, "\n")
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, dumpFields(dump, meta.HTTPStatus))
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}
	writeJSON(w, meta.HTTPStatus, payload)
}

// dumpFields drops the empty database diagnostics so rejected requests
// without a pg error log only what they have.
func dumpFields(d pkgerrors.ErrorDump, status int) map[string]any {
	fields := map[string]any{
		"status":      status,
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	for key, value := range map[string]string{
		"pg_code":       d.PGCode,
		"pg_detail":     d.PGDetail,
		"pg_message":    d.PGMessage,
		"pg_table":      d.PGTable,
		"pg_column":     d.PGColumn,
		"pg_constraint": d.PGConstraint,
		"field":         d.Field,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}

// WriteBinary sends a download such as an invoice PDF.
func WriteBinary(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("content_type", contentType).Msg("write response body")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Int("status", status).Msg("encode response")
	}
}
