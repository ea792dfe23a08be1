package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one migration for %s, got %d", pattern, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestPartsMigrationGuardsStock(t *testing.T) {
	content := readMigration(t, "*_create_parts_and_stock_movements.sql")
	for _, sub := range []string{
		"CHECK (quantity_in_stock >= 0)",
		"reorder_level INTEGER NOT NULL DEFAULT 5",
		"CONSTRAINT parts_part_number_key UNIQUE (part_number)",
		"metadata JSONB",
		"DROP TABLE IF EXISTS parts",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestInvoiceMigrationEnforcesOneInvoicePerService(t *testing.T) {
	content := readMigration(t, "*_create_invoices.sql")
	for _, sub := range []string{
		"CONSTRAINT invoices_service_record_id_key UNIQUE (service_record_id)",
		"CONSTRAINT invoices_invoice_number_key UNIQUE (invoice_number)",
		"REFERENCES invoices(id) ON DELETE CASCADE",
		"CHECK (discount >= 0 AND discount <= 100)",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSQLiteSchemaCoversEveryTable(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := ApplySQLiteSchema(context.Background(), conn); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	// applying twice must be a no-op
	if err := ApplySQLiteSchema(context.Background(), conn); err != nil {
		t.Fatalf("re-apply schema: %v", err)
	}

	for _, table := range []string{
		"users", "clients", "organizations", "vehicles", "parts",
		"stock_movements", "service_records", "service_parts", "invoices", "invoice_items",
	} {
		if !conn.Migrator().HasTable(table) {
			t.Errorf("sqlite schema missing table %s", table)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Part Supplier!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_part_supplier.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
	if _, err := CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected error for empty sanitized name")
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestCreateSQLMigrationKeepsVersionsIncreasing(t *testing.T) {
	dir := t.TempDir()
	future := "29990101000000_from_a_fast_clock.sql"
	if err := os.WriteFile(filepath.Join(dir, future), []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	path, err := CreateSQLMigration(dir, "add supplier")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "29990101000001_add_supplier.sql" {
		t.Fatalf("expected version after %s, got %s", future, filepath.Base(path))
	}
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"20260101000000_suppliers.sql": "-- +goose Up\nCREATE TABLE suppliers (id uuid);\n-- +goose Down\nDROP TABLE suppliers;\n",
		"20260101000001_no_down.sql":   "-- +goose Up\nSELECT 1;\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	err := ValidateDir(dir)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"missing \"-- +goose Down\"", "table suppliers"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}
