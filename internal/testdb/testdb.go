// Package testdb opens throwaway databases and seeds fixtures for package tests.
package testdb

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/garageworks/garage-backend/pkg/enums"
	"github.com/garageworks/garage-backend/pkg/migrate"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresDSNEnv gates the tests that need a real Postgres server.
const PostgresDSNEnv = "GARAGE_DB_DSN"

// New opens a private in-memory sqlite database with the full schema applied.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:garage_%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := migrate.ApplySQLiteSchema(context.Background(), conn); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return conn
}

// OpenPostgres connects to the database named by GARAGE_DB_DSN or skips the test.
// The schema is expected to be migrated already.
func OpenPostgres(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s is not set", PostgresDSNEnv)
	}
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return conn
}

func CreateUser(t testing.TB, conn *gorm.DB, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Email:        fmt.Sprintf("staff_%s@garage.test", uuid.NewString()),
		PasswordHash: "hash",
		FullName:     "Test " + role.String(),
		Role:         role,
		IsActive:     true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func CreateClient(t testing.TB, conn *gorm.DB) *models.Client {
	t.Helper()
	client := &models.Client{
		Name:  "Jane Driver",
		Phone: "07" + uuid.NewString()[:8],
	}
	if err := conn.Create(client).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}

func CreateOrganization(t testing.TB, conn *gorm.DB) *models.Organization {
	t.Helper()
	org := &models.Organization{
		Name:  "Fleet Logistics",
		Phone: "02" + uuid.NewString()[:8],
	}
	if err := conn.Create(org).Error; err != nil {
		t.Fatalf("create organization: %v", err)
	}
	return org
}

// CreateVehicle creates a vehicle owned by a fresh client.
func CreateVehicle(t testing.TB, conn *gorm.DB) *models.Vehicle {
	t.Helper()
	owner := CreateClient(t, conn)
	vehicle := &models.Vehicle{
		RegistrationNumber: "KAA " + strings.ToUpper(uuid.NewString()[:6]),
		MakeModel:          "Toyota Probox",
		ClientID:           &owner.ID,
	}
	if err := conn.Create(vehicle).Error; err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	return vehicle
}

// CreatePart inserts a part directly with the given stock, bypassing the ledger.
func CreatePart(t testing.TB, conn *gorm.DB, name string, price string, stock int) *models.Part {
	t.Helper()
	number := "PN-" + uuid.NewString()[:8]
	part := &models.Part{
		PartName:        name,
		PartNumber:      &number,
		UnitPrice:       decimal.RequireFromString(price),
		QuantityInStock: stock,
		ReorderLevel:    5,
	}
	if err := conn.Create(part).Error; err != nil {
		t.Fatalf("create part: %v", err)
	}
	return part
}

// CreateService inserts a service record with no part usage.
func CreateService(t testing.TB, conn *gorm.DB, vehicleID uuid.UUID, labor string, status enums.ServiceStatus) *models.ServiceRecord {
	t.Helper()
	cost := decimal.RequireFromString(labor)
	record := &models.ServiceRecord{
		VehicleID:   vehicleID,
		Description: "General service",
		ServiceDate: time.Now().UTC(),
		LaborCost:   cost,
		PartsTotal:  decimal.Zero,
		TotalAmount: cost,
		Status:      status,
	}
	if err := conn.Create(record).Error; err != nil {
		t.Fatalf("create service: %v", err)
	}
	return record
}

// PartStock re-reads the current stock of a part.
func PartStock(t testing.TB, conn *gorm.DB, partID uuid.UUID) int {
	t.Helper()
	var part models.Part
	if err := conn.First(&part, "id = ?", partID).Error; err != nil {
		t.Fatalf("load part: %v", err)
	}
	return part.QuantityInStock
}

// Count returns the number of rows in table matching the optional where clause.
func Count(t testing.TB, conn *gorm.DB, table string, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := conn.Table(table)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
