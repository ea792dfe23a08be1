package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/garageworks/garage-backend/pkg/config"
	"github.com/garageworks/garage-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:client_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	client := NewFromConn(db)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Name: "panicked"}).Error; err != nil {
				return err
			}
			panic("boom")
		})
	}()

	var count int64
	if err := db.Model(&testModel{}).Where("name = ?", "panicked").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected panic to roll back insert, got %d rows", count)
	}
	if client.Dialect() != "sqlite" {
		t.Fatalf("unexpected dialect %q", client.Dialect())
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{Driver: "oracle"}, nil); err == nil {
		t.Fatal("expected unsupported driver error")
	}
	if _, err := New(context.Background(), config.DBConfig{Driver: DriverPostgres}, nil); err == nil {
		t.Fatal("expected missing dsn error")
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestDialectorFor(t *testing.T) {
	d, err := dialectorFor(config.DBConfig{Driver: DriverSQLite, SQLitePath: "garage.db"})
	require.NoError(t, err)
	require.Equal(t, DriverSQLite, d.Name())
	require.Equal(t, "garage.db?"+sqliteParams, d.(*sqlite.Dialector).DSN)

	d, err = dialectorFor(config.DBConfig{Driver: DriverSQLite, SQLitePath: "file:garage.db?cache=shared"})
	require.NoError(t, err)
	require.Equal(t, "file:garage.db?cache=shared&"+sqliteParams, d.(*sqlite.Dialector).DSN)

	_, err = dialectorFor(config.DBConfig{Driver: DriverSQLite, SQLitePath: " "})
	require.Error(t, err)

	d, err = dialectorFor(config.DBConfig{DSN: "postgres://garage@localhost/garage"})
	require.NoError(t, err)
	require.Equal(t, DriverPostgres, d.Name())
}

func TestQueryLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{Level: zerolog.DebugLevel, Output: &buf})
	ql := newQueryLogger(logg, 50*time.Millisecond)
	ctx := context.Background()
	stmt := func() (string, int64) { return "UPDATE parts SET quantity = quantity - 1", 1 }

	ql.Trace(ctx, time.Now(), stmt, nil)
	ql.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	require.Empty(t, buf.String(), "fast successful and not-found queries are quiet")

	ql.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	require.Contains(t, buf.String(), `"message":"slow query"`)
	require.Contains(t, buf.String(), `"sql":"UPDATE parts SET quantity = quantity - 1"`)
	buf.Reset()

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "vehicles_registration_number_key"}
	ql.Trace(ctx, time.Now(), stmt, dup)
	require.Contains(t, buf.String(), `"level":"debug"`)
	require.Contains(t, buf.String(), "query rejected by constraint")
	buf.Reset()

	ql.Trace(ctx, time.Now(), stmt, errors.New("connection reset by peer"))
	require.Contains(t, buf.String(), `"level":"error"`)
	require.True(t, strings.Contains(buf.String(), "connection reset by peer"))
	buf.Reset()

	ql.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), stmt, errors.New("ignored"))
	require.Empty(t, buf.String())

	require.Equal(t, gormlogger.Discard, newQueryLogger(nil, time.Second))
}
