package usecase

import (
	"context"
	"errors"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"

	"go.uber.org/zap"
)

// WarehouseUsecase は倉庫レジストリ（MAIN倉庫の用意・店舗倉庫の追加）。
type WarehouseUsecase struct {
	warehouses repo.WarehouseRepository
	logger     *zap.Logger
}

func NewWarehouseUsecase(warehouses repo.WarehouseRepository, logger *zap.Logger) *WarehouseUsecase {
	return &WarehouseUsecase{warehouses: warehouses, logger: logger}
}

// LoadMainWarehouse は起動時に1回だけ呼ぶ。
// 無ければ bootstrap=true のとき作る。false なら nil（設定ミスとして各処理がエラーを返す）。
func (u *WarehouseUsecase) LoadMainWarehouse(ctx context.Context, bootstrap bool) (*model.Warehouse, error) {
	w, err := u.warehouses.FindMainWarehouse(ctx)
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if !bootstrap {
		u.logger.Warn("main warehouse not found and bootstrap is disabled")
		return nil, nil
	}

	w, err = u.EnsureMainWarehouse(ctx)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// EnsureMainWarehouse はMAIN倉庫を返す。無ければ作る。
func (u *WarehouseUsecase) EnsureMainWarehouse(ctx context.Context) (model.Warehouse, error) {
	w, err := u.warehouses.FindMainWarehouse(ctx)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return model.Warehouse{}, dbError()
	}

	created, err := u.warehouses.Create(ctx, model.Warehouse{Type: model.WarehouseTypeMain})
	if errors.Is(err, repo.ErrDuplicate) {
		//別プロセスが先に作った
		return u.warehouses.FindMainWarehouse(ctx)
	}
	if err != nil {
		return model.Warehouse{}, dbError()
	}

	u.logger.Info("main warehouse created", zap.Int64("warehouse_id", created.ID))
	return created, nil
}

// GetMainWarehouse は登録済みのMAIN倉庫。無ければ設定ミス。
func (u *WarehouseUsecase) GetMainWarehouse(ctx context.Context) (model.Warehouse, error) {
	w, err := u.warehouses.FindMainWarehouse(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Warehouse{}, configurationError("main warehouse is not configured")
	}
	if err != nil {
		return model.Warehouse{}, dbError()
	}
	return w, nil
}

// OnboardStore は店舗倉庫を作る。既にあれば409。
func (u *WarehouseUsecase) OnboardStore(ctx context.Context, storeID int64) (model.Warehouse, error) {
	if storeID <= 0 {
		return model.Warehouse{}, validationError("invalid store_id")
	}

	sid := storeID
	created, err := u.warehouses.Create(ctx, model.Warehouse{
		Type:    model.WarehouseTypeStore,
		StoreID: &sid,
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Warehouse{}, conflictError("store warehouse already exists")
	}
	if err != nil {
		return model.Warehouse{}, dbError()
	}

	u.logger.Info("store warehouse created",
		zap.Int64("warehouse_id", created.ID),
		zap.Int64("store_id", storeID))
	return created, nil
}

func (u *WarehouseUsecase) ListStores(ctx context.Context) ([]model.Warehouse, error) {
	list, err := u.warehouses.FindStoreWarehouses(ctx)
	if err != nil {
		return []model.Warehouse{}, dbError()
	}
	if list == nil {
		list = []model.Warehouse{}
	}
	return list, nil
}
