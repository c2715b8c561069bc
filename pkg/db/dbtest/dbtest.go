// Package dbtest opens isolated in-memory sqlite stores for package tests.
package dbtest

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/stockledger/pkg/db"
	"github.com/angelmondragon/stockledger/pkg/db/models"
)

// Models lists every table the services touch, in dependency order.
func Models() []any {
	return []any{
		&models.Category{},
		&models.Metric{},
		&models.Item{},
		&models.Warehouse{},
		&models.Location{},
		&models.Stock{},
		&models.Movement{},
		&models.AssemblyPart{},
		&models.ItemCode{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	}
}

// Open returns a migrated client backed by a private shared-cache database.
func Open(tb testing.TB) *db.Client {
	tb.Helper()
	dsn := "file:stockledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(log.New(io.Discard, "", log.LstdFlags), gormlogger.Config{LogLevel: gormlogger.Silent}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		tb.Fatalf("sql handle: %v", err)
	}
	tb.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db.FromGorm(conn)
}
