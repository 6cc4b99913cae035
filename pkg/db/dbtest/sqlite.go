// Package dbtest opens throwaway SQLite databases migrated with the domain models.
package dbtest

import (
	"testing"

	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns an in-memory database holding every domain table.
// A single connection is kept so the memory database survives between statements.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(Models()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return conn
}

// Models lists the tables in dependency order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Query{},
		&models.Cable{},
		&models.CableResponse{},
		&models.Comment{},
	}
}
