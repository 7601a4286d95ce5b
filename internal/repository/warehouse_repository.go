package repository

import (
	"context"

	"stocknet/internal/domain/model"
)

// 倉庫レジストリ
type WarehouseRepository interface {
	//MAIN倉庫。無ければErrNotFound
	FindMainWarehouse(ctx context.Context) (model.Warehouse, error)
	FindStoreWarehouses(ctx context.Context) ([]model.Warehouse, error)
	FindWarehouseByStore(ctx context.Context, storeID int64) (model.Warehouse, error)
	FindByID(ctx context.Context, warehouseID int64) (model.Warehouse, error)
	//すでにあればErrDuplicate
	Create(ctx context.Context, w model.Warehouse) (model.Warehouse, error)
}
