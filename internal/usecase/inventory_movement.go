package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"
)

func transferRequestReason(id int64) string {
	return fmt.Sprintf("Transfer Request #%d", id)
}

func debtOrderReason(id int64) string {
	return fmt.Sprintf("Debt Order #%d", id)
}

// 在庫の増減1回分。必ずInventoryLogを1行残す。
type stockMovement struct {
	WarehouseID int64
	ProductID   int64
	Previous    int64
	New         int64
	Reason      string
	ActorUserID int64
	At          time.Time
}

func recordMovement(ctx context.Context, inv repo.InventoryRepository, m stockMovement) error {
	return inv.CreateLog(ctx, model.InventoryLog{
		WarehouseID:      m.WarehouseID,
		ProductID:        m.ProductID,
		PreviousQuantity: m.Previous,
		NewQuantity:      m.New,
		Delta:            m.New - m.Previous,
		Reason:           m.Reason,
		ActorUserID:      m.ActorUserID,
		CreatedAt:        m.At,
	})
}

// Tx内で使う。引当時に行ロックを取るStockReader。
type lockingStockReader struct {
	inv repo.InventoryRepository
}

func (l lockingStockReader) ListStockByProduct(ctx context.Context, productID int64) ([]model.WarehouseStock, error) {
	return l.inv.LockStockByProduct(ctx, productID)
}

// 在庫行を取得（ロック付き）。無ければ数量0で作る。
func lockOrCreateItem(ctx context.Context, inv repo.InventoryRepository, warehouseID, productID int64) (model.InventoryItem, error) {
	item, err := inv.LockItem(ctx, warehouseID, productID)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return model.InventoryItem{}, err
	}

	created, err := inv.CreateItem(ctx, model.InventoryItem{
		WarehouseID: warehouseID,
		ProductID:   productID,
	})
	if errors.Is(err, repo.ErrDuplicate) {
		//同時に作られた
		return inv.LockItem(ctx, warehouseID, productID)
	}
	if err != nil {
		return model.InventoryItem{}, err
	}
	return created, nil
}
