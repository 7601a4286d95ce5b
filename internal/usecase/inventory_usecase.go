package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"

	"go.uber.org/zap"
)

const (
	defaultRestockReason = "Restock"
	defaultAdjustReason  = "Manual Adjustment"
)

// InventoryUsecase は入荷・棚卸し調整・商品の初期登録・在庫履歴。
// MAIN倉庫の数量が増えたら RestockListener（債務のチェック）を呼ぶ。
type InventoryUsecase struct {
	tx        repo.TransactionManager
	inventory repo.InventoryRepository
	catalog   repo.ProductCatalog
	allocator *SourceAllocator
	listener  RestockListener
	clock     Clock
	logger    *zap.Logger
}

// DI
func NewInventoryUsecase(
	tx repo.TransactionManager,
	inventory repo.InventoryRepository,
	catalog repo.ProductCatalog,
	allocator *SourceAllocator,
	listener RestockListener,
	clock Clock,
	logger *zap.Logger,
) *InventoryUsecase {
	return &InventoryUsecase{
		tx:        tx,
		inventory: inventory,
		catalog:   catalog,
		allocator: allocator,
		listener:  listener,
		clock:     clock,
		logger:    logger,
	}
}

type RestockInput struct {
	ProductID int64
	Quantity  int64
	Reason    string
}

type AdjustInput struct {
	WarehouseID int64
	ProductID   int64
	NewQuantity int64
	Reason      string
}

type ListLogsInput struct {
	WarehouseID *int64
	ProductID   *int64
	Limit       int
	Offset      int
}

// Restock はMAIN倉庫への入荷。commit後に債務チェックを走らせる。
func (u *InventoryUsecase) Restock(ctx context.Context, actorUserID int64, in RestockInput) (model.InventoryItem, error) {
	if actorUserID <= 0 {
		return model.InventoryItem{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return model.InventoryItem{}, validationError("invalid product_id")
	}
	if in.Quantity < 1 {
		return model.InventoryItem{}, validationError("invalid quantity")
	}
	reason, err := normalizeReason(in.Reason, defaultRestockReason)
	if err != nil {
		return model.InventoryItem{}, err
	}

	main, ok := u.allocator.MainWarehouse()
	if !ok {
		u.logger.Error("main warehouse is not configured, restock aborted")
		return model.InventoryItem{}, configurationError("main warehouse is not configured")
	}
	if err := u.ensureProduct(ctx, in.ProductID); err != nil {
		return model.InventoryItem{}, err
	}

	var out model.InventoryItem
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := lockOrCreateItem(ctx, r.Inventory(), main.ID, in.ProductID)
		if err != nil {
			return dbError()
		}

		if err := r.Inventory().IncreaseQuantity(ctx, item.ID, in.Quantity); err != nil {
			return dbError()
		}

		now := u.clock.Now()
		if err := recordMovement(ctx, r.Inventory(), stockMovement{
			WarehouseID: main.ID,
			ProductID:   in.ProductID,
			Previous:    item.Quantity,
			New:         item.Quantity + in.Quantity,
			Reason:      reason,
			ActorUserID: actorUserID,
			At:          now,
		}); err != nil {
			return dbError()
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionRestock,
			ResourceType: model.AuditResourceInventory,
			ResourceID:   item.ID,
			BeforeJSON:   fmt.Sprintf(`{"quantity":%d}`, item.Quantity),
			AfterJSON:    fmt.Sprintf(`{"quantity":%d}`, item.Quantity+in.Quantity),
			CreatedAt:    now,
		}); err != nil {
			return dbError()
		}

		item.Quantity += in.Quantity
		out = item
		return nil
	})
	if err != nil {
		return model.InventoryItem{}, err
	}

	u.logger.Info("main warehouse restocked",
		zap.Int64("product_id", in.ProductID),
		zap.Int64("quantity", in.Quantity),
		zap.Int64("new_quantity", out.Quantity))

	u.notifyRestock(ctx, in.ProductID)
	return out, nil
}

// Adjust は棚卸しなどで数量を直接設定する。
// 引当済み（reserved）より少なくはできない。
func (u *InventoryUsecase) Adjust(ctx context.Context, actorUserID int64, in AdjustInput) (model.InventoryItem, error) {
	if actorUserID <= 0 {
		return model.InventoryItem{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.WarehouseID <= 0 {
		return model.InventoryItem{}, validationError("invalid warehouse_id")
	}
	if in.ProductID <= 0 {
		return model.InventoryItem{}, validationError("invalid product_id")
	}
	if in.NewQuantity < 0 {
		return model.InventoryItem{}, validationError("invalid quantity")
	}
	reason, err := normalizeReason(in.Reason, defaultAdjustReason)
	if err != nil {
		return model.InventoryItem{}, err
	}
	if err := u.ensureProduct(ctx, in.ProductID); err != nil {
		return model.InventoryItem{}, err
	}

	var (
		out    model.InventoryItem
		isMain bool
		delta  int64
	)
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		wh, err := r.Warehouses().FindByID(ctx, in.WarehouseID)
		if err != nil {
			return wrapRepoError(err, "warehouse not found")
		}
		isMain = wh.IsMain()

		item, err := lockOrCreateItem(ctx, r.Inventory(), wh.ID, in.ProductID)
		if err != nil {
			return dbError()
		}

		ok, err := r.Inventory().SetQuantity(ctx, item.ID, in.NewQuantity)
		if err != nil {
			return dbError()
		}
		if !ok {
			return validationError(fmt.Sprintf("quantity must be >= reserved quantity (%d)", item.ReservedQuantity))
		}

		delta = in.NewQuantity - item.Quantity
		now := u.clock.Now()
		if err := recordMovement(ctx, r.Inventory(), stockMovement{
			WarehouseID: wh.ID,
			ProductID:   in.ProductID,
			Previous:    item.Quantity,
			New:         in.NewQuantity,
			Reason:      reason,
			ActorUserID: actorUserID,
			At:          now,
		}); err != nil {
			return dbError()
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionAdjustInventory,
			ResourceType: model.AuditResourceInventory,
			ResourceID:   item.ID,
			BeforeJSON:   fmt.Sprintf(`{"quantity":%d}`, item.Quantity),
			AfterJSON:    fmt.Sprintf(`{"quantity":%d}`, in.NewQuantity),
			CreatedAt:    now,
		}); err != nil {
			return dbError()
		}

		item.Quantity = in.NewQuantity
		out = item
		return nil
	})
	if err != nil {
		return model.InventoryItem{}, err
	}

	u.logger.Info("inventory adjusted",
		zap.Int64("warehouse_id", in.WarehouseID),
		zap.Int64("product_id", in.ProductID),
		zap.Int64("delta", delta))

	if isMain && delta > 0 {
		u.notifyRestock(ctx, in.ProductID)
	}
	return out, nil
}

// OnboardProduct はMAIN倉庫に数量0の在庫行を作る（既にあればそのまま返す）。
func (u *InventoryUsecase) OnboardProduct(ctx context.Context, productID int64) (model.InventoryItem, error) {
	if productID <= 0 {
		return model.InventoryItem{}, validationError("invalid product_id")
	}
	main, ok := u.allocator.MainWarehouse()
	if !ok {
		u.logger.Error("main warehouse is not configured, product onboarding aborted")
		return model.InventoryItem{}, configurationError("main warehouse is not configured")
	}
	if err := u.ensureProduct(ctx, productID); err != nil {
		return model.InventoryItem{}, err
	}

	var out model.InventoryItem
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := lockOrCreateItem(ctx, r.Inventory(), main.ID, productID)
		if err != nil {
			return dbError()
		}
		out = item
		return nil
	})
	if err != nil {
		return model.InventoryItem{}, err
	}
	return out, nil
}

// ListLogs は在庫履歴（新しい順）
func (u *InventoryUsecase) ListLogs(ctx context.Context, in ListLogsInput) ([]model.InventoryLog, error) {
	if in.Limit == 0 {
		in.Limit = 50
	}
	if in.Limit < 1 || in.Limit > 200 {
		return []model.InventoryLog{}, validationError("invalid limit")
	}
	if in.Offset < 0 {
		return []model.InventoryLog{}, validationError("invalid offset")
	}

	logs, err := u.inventory.ListLogs(ctx, repo.InventoryLogFilter{
		WarehouseID: in.WarehouseID,
		ProductID:   in.ProductID,
		Limit:       in.Limit,
		Offset:      in.Offset,
	})
	if err != nil {
		return []model.InventoryLog{}, dbError()
	}
	if logs == nil {
		logs = []model.InventoryLog{}
	}
	return logs, nil
}

func (u *InventoryUsecase) ensureProduct(ctx context.Context, productID int64) error {
	ok, err := u.catalog.Exists(ctx, productID)
	if err != nil {
		return dbError()
	}
	if !ok {
		return notFoundError(fmt.Sprintf("product %d not found", productID))
	}
	return nil
}

// 入荷自体はcommit済みなので、チェックの失敗はログだけ
func (u *InventoryUsecase) notifyRestock(ctx context.Context, productID int64) {
	if u.listener == nil {
		return
	}
	if err := u.listener.OnMainWarehouseRestock(ctx, productID); err != nil {
		u.logger.Warn("debt order sweep after restock failed",
			zap.Int64("product_id", productID),
			zap.Error(err))
	}
}

func normalizeReason(reason, fallback string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fallback, nil
	}
	if len(reason) > 255 {
		return "", validationError("reason is too long")
	}
	return reason, nil
}
