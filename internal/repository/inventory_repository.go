package repository

import (
	"context"

	"stocknet/internal/domain/model"
)

// 商品1つについて全倉庫の在庫を読む。引当はこれだけに依存する。
type StockReader interface {
	ListStockByProduct(ctx context.Context, productID int64) ([]model.WarehouseStock, error)
}

type InventoryLogFilter struct {
	WarehouseID *int64
	ProductID   *int64
	Limit       int
	Offset      int
}

type InventoryRepository interface {
	StockReader

	// ListStockByProduct と同じ結果を行ロック付きで返す（Tx内で使う）
	LockStockByProduct(ctx context.Context, productID int64) ([]model.WarehouseStock, error)

	FindItem(ctx context.Context, warehouseID int64, productID int64) (model.InventoryItem, error)
	// 行ロック付きで1件取得
	LockItem(ctx context.Context, warehouseID int64, productID int64) (model.InventoryItem, error)
	// 在庫行を作る。既にあればErrDuplicate
	CreateItem(ctx context.Context, item model.InventoryItem) (model.InventoryItem, error)

	// available >= qty のときだけ減算
	DecreaseIfAvailable(ctx context.Context, itemID int64, qty int64) (bool, error)
	// 入荷
	IncreaseQuantity(ctx context.Context, itemID int64, qty int64) error
	// 現在値を設定。reserved_quantityを下回るならfalse
	SetQuantity(ctx context.Context, itemID int64, newQty int64) (bool, error)

	// 引当（available >= qty のときだけ）
	Reserve(ctx context.Context, itemID int64, qty int64) (bool, error)
	// 引当分を出庫する（quantityとreserved_quantityを同時に減らす）
	ConsumeReservation(ctx context.Context, itemID int64, qty int64) (bool, error)

	// 在庫履歴（追記のみ）
	CreateLog(ctx context.Context, log model.InventoryLog) error
	ListLogs(ctx context.Context, filter InventoryLogFilter) ([]model.InventoryLog, error)
}
