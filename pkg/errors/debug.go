package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the dev-mode view of an error: its wrap chain plus any database diagnostics.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`

	// Field is the request field a constraint guards, when known.
	Field string `json:"field,omitempty"`
}

// constraintFields maps schema constraints to the API field they protect.
var constraintFields = map[string]string{
	"users_email_key":                      "email",
	"clients_phone_key":                    "phone",
	"organizations_phone_key":              "phone",
	"vehicles_registration_number_key":     "registration_number",
	"vehicles_single_owner_check":          "client_id",
	"parts_part_number_key":                "part_number",
	"parts_quantity_in_stock_check":        "quantity_in_stock",
	"invoices_service_record_id_key":       "service_record_id",
	"invoices_invoice_number_key":          "invoice_number",
	"service_records_vehicle_id_fkey":      "vehicle_id",
	"service_records_mechanic_id_fkey":     "mechanic_id",
	"service_parts_part_id_fkey":           "part_id",
	"stock_movements_quantity_after_check": "quantity",
	"service_records_labor_cost_check":     "labour_cost",
}

// Dump unwraps err for logging and dev responses.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.PGCode, d.PGConstraint, d.PGTable = pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName
		d.PGColumn, d.PGDetail, d.PGMessage = pgxErr.ColumnName, pgxErr.Detail, pgxErr.Message
	case errors.As(err, &pqErr):
		d.PGCode, d.PGConstraint, d.PGTable = string(pqErr.Code), pqErr.Constraint, pqErr.Table
		d.PGColumn, d.PGDetail, d.PGMessage = pqErr.Column, pqErr.Detail, pqErr.Message
	}
	d.Field = ConstraintField(err)
	return d
}

// ConstraintField names the API field behind a constraint failure, or "".
// It understands Postgres constraint names and sqlite's "UNIQUE constraint failed: table.column".
func ConstraintField(err error) string {
	if err == nil {
		return ""
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		if f, ok := constraintFields[pgxErr.ConstraintName]; ok {
			return f
		}
		return pgxErr.ColumnName
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if f, ok := constraintFields[pqErr.Constraint]; ok {
			return f
		}
		return pqErr.Column
	}

	msg := err.Error()
	const sqliteUnique = "UNIQUE constraint failed: "
	if i := strings.Index(msg, sqliteUnique); i >= 0 {
		target := msg[i+len(sqliteUnique):]
		if j := strings.IndexAny(target, ", "); j >= 0 {
			target = target[:j]
		}
		if k := strings.LastIndex(target, "."); k >= 0 {
			return target[k+1:]
		}
		return target
	}
	return ""
}
