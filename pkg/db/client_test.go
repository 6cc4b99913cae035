package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
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
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
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

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	var before int64
	if err := db.Model(&testModel{}).Count(&before).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}

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

	var after int64
	if err := db.Model(&testModel{}).Count(&after).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if after != before {
		t.Fatalf("expected rollback after panic, before=%d after=%d", before, after)
	}
}

func TestDialectorFor(t *testing.T) {
	if _, err := dialectorFor(config.DBConfig{Driver: config.DBDriverPostgres}); err == nil {
		t.Fatal("expected error without DSN")
	}
	d, err := dialectorFor(config.DBConfig{Driver: config.DBDriverSQLite, SQLitePath: "file::memory:"})
	if err != nil {
		t.Fatalf("sqlite dialector: %v", err)
	}
	if d.Name() != "sqlite" {
		t.Fatalf("unexpected dialect %q", d.Name())
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil is not a violation")
	}
	if !IsUniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}, "users_username_key") {
		t.Fatal("expected pgx violation")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, "users_username_key") {
		t.Fatal("other constraint must not match")
	}
	if !IsUniqueViolation(fmt.Errorf("create user: %w", &pq.Error{Code: "23505"}), "") {
		t.Fatal("expected wrapped lib/pq violation")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: users.username"), "users.username") {
		t.Fatal("expected sqlite violation")
	}
	if IsUniqueViolation(errors.New("FOREIGN KEY constraint failed"), "") {
		t.Fatal("foreign key failure is not a unique violation")
	}
}

func TestFaultOfReadsSQLiteMessages(t *testing.T) {
	f := FaultOf(errors.New("NOT NULL constraint failed: queries.client"))
	if f == nil || f.Violation != ViolationNotNull || f.Table != "queries" || f.Column != "client" {
		t.Fatalf("unexpected fault %+v", f)
	}
	if FaultOf(errors.New("connection refused")) != nil {
		t.Fatal("plain errors carry no fault")
	}
	fields := FaultOf(&pgconn.PgError{Code: "23503", TableName: "cables"}).LogFields()
	if fields["db_violation"] != "foreign_key" || fields["db_table"] != "cables" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, ok := fields["db_column"]; ok {
		t.Fatal("empty values should be omitted")
	}
}

func TestGormLoggerReportsSlowAndFailedStatements(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	gl := newGormLogger(logg, 10*time.Millisecond)
	ctx := context.Background()
	stmt := func() (string, int64) { return `SELECT * FROM "queries"`, 3 }

	gl.Trace(ctx, time.Now(), stmt, nil)
	gl.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("fast and not-found statements must stay quiet, got %s", buf.String())
	}

	gl.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	if !strings.Contains(buf.String(), "slow sql statement") || !strings.Contains(buf.String(), `"rows":3`) {
		t.Fatalf("expected slow statement log, got %s", buf.String())
	}

	buf.Reset()
	gl.Trace(ctx, time.Now(), stmt, &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})
	if !strings.Contains(buf.String(), "sql constraint violation") || !strings.Contains(buf.String(), "users_username_key") {
		t.Fatalf("expected violation log, got %s", buf.String())
	}

	buf.Reset()
	gl.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), stmt, errors.New("boom"))
	if buf.Len() != 0 {
		t.Fatalf("silent mode logged %s", buf.String())
	}
}

func TestDialectorForRejectsUnknownDriver(t *testing.T) {
	if _, err := dialectorFor(config.DBConfig{Driver: "mysql", DSN: "x"}); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}
