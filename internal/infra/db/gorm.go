package db

import (
	"stocknet/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(dsn string, debug bool) (*gorm.DB, error) {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}

	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
		// 23505 などを gorm.ErrDuplicatedKey に寄せる
		TranslateError: true,
	})
}

// Migrate はテーブルを作る（inventory_logs は追記のみ）。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Product{},
		&model.Warehouse{},
		&model.InventoryItem{},
		&model.InventoryLog{},
		&model.TransferRequest{},
		&model.TransferRequestItem{},
		&model.DebtOrder{},
		&model.DebtItem{},
		&model.AuditLog{},
	)
}
