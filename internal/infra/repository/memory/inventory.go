package memory

import (
	"context"
	"sort"
	"time"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"
)

type InventoryRepository struct {
	v view
}

var _ repo.InventoryRepository = (*InventoryRepository)(nil)

func (r *InventoryRepository) ListStockByProduct(ctx context.Context, productID int64) ([]model.WarehouseStock, error) {
	out := []model.WarehouseStock{}
	err := r.v.read(func(d *data) error {
		for _, it := range d.items {
			if it.ProductID != productID {
				continue
			}
			w, ok := d.warehouses[it.WarehouseID]
			if !ok {
				continue
			}
			out = append(out, model.WarehouseStock{
				ItemID:           it.ID,
				WarehouseID:      it.WarehouseID,
				WarehouseType:    w.Type,
				StoreID:          copyPtr(w.StoreID),
				ProductID:        it.ProductID,
				Quantity:         it.Quantity,
				ReservedQuantity: it.ReservedQuantity,
			})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseID < out[j].WarehouseID })
	return out, err
}

// Txは直列なので、ロック版は通常の読み取りと同じ
func (r *InventoryRepository) LockStockByProduct(ctx context.Context, productID int64) ([]model.WarehouseStock, error) {
	return r.ListStockByProduct(ctx, productID)
}

func (r *InventoryRepository) FindItem(ctx context.Context, warehouseID int64, productID int64) (model.InventoryItem, error) {
	var out model.InventoryItem
	err := r.v.read(func(d *data) error {
		it, ok := findItem(d, warehouseID, productID)
		if !ok {
			return repo.ErrNotFound
		}
		out = it
		return nil
	})
	return out, err
}

func (r *InventoryRepository) LockItem(ctx context.Context, warehouseID int64, productID int64) (model.InventoryItem, error) {
	return r.FindItem(ctx, warehouseID, productID)
}

func findItem(d *data, warehouseID, productID int64) (model.InventoryItem, bool) {
	for _, it := range d.items {
		if it.WarehouseID == warehouseID && it.ProductID == productID {
			return it, true
		}
	}
	return model.InventoryItem{}, false
}

func (r *InventoryRepository) CreateItem(ctx context.Context, item model.InventoryItem) (model.InventoryItem, error) {
	err := r.v.write(func(d *data) error {
		if _, ok := findItem(d, item.WarehouseID, item.ProductID); ok {
			return repo.ErrDuplicate
		}
		now := time.Now()
		item.ID = d.next("inventory_items")
		item.CreatedAt = now
		item.UpdatedAt = now
		d.items[item.ID] = item
		return nil
	})
	if err != nil {
		return model.InventoryItem{}, err
	}
	return item, nil
}

// 条件を満たすときだけ書き換える（gorm版の WHERE 付き UPDATE と同じ）
func (r *InventoryRepository) update(itemID int64, cond func(model.InventoryItem) bool, apply func(*model.InventoryItem)) (bool, error) {
	updated := false
	err := r.v.write(func(d *data) error {
		it, ok := d.items[itemID]
		if !ok || !cond(it) {
			return nil
		}
		apply(&it)
		it.UpdatedAt = time.Now()
		d.items[itemID] = it
		updated = true
		return nil
	})
	return updated, err
}

func (r *InventoryRepository) DecreaseIfAvailable(ctx context.Context, itemID int64, qty int64) (bool, error) {
	return r.update(itemID,
		func(it model.InventoryItem) bool { return it.Available() >= qty },
		func(it *model.InventoryItem) { it.Quantity -= qty })
}

func (r *InventoryRepository) IncreaseQuantity(ctx context.Context, itemID int64, qty int64) error {
	ok, err := r.update(itemID,
		func(model.InventoryItem) bool { return true },
		func(it *model.InventoryItem) { it.Quantity += qty })
	if err != nil {
		return err
	}
	if !ok {
		return repo.ErrNotFound
	}
	return nil
}

func (r *InventoryRepository) SetQuantity(ctx context.Context, itemID int64, newQty int64) (bool, error) {
	return r.update(itemID,
		func(it model.InventoryItem) bool { return it.ReservedQuantity <= newQty },
		func(it *model.InventoryItem) { it.Quantity = newQty })
}

func (r *InventoryRepository) Reserve(ctx context.Context, itemID int64, qty int64) (bool, error) {
	return r.update(itemID,
		func(it model.InventoryItem) bool { return it.Available() >= qty },
		func(it *model.InventoryItem) { it.ReservedQuantity += qty })
}

func (r *InventoryRepository) ConsumeReservation(ctx context.Context, itemID int64, qty int64) (bool, error) {
	return r.update(itemID,
		func(it model.InventoryItem) bool { return it.ReservedQuantity >= qty && it.Quantity >= qty },
		func(it *model.InventoryItem) {
			it.Quantity -= qty
			it.ReservedQuantity -= qty
		})
}

func (r *InventoryRepository) CreateLog(ctx context.Context, log model.InventoryLog) error {
	return r.v.write(func(d *data) error {
		log.ID = d.next("inventory_logs")
		d.logs = append(d.logs, log)
		return nil
	})
}

// 新しい順
func (r *InventoryRepository) ListLogs(ctx context.Context, f repo.InventoryLogFilter) ([]model.InventoryLog, error) {
	out := []model.InventoryLog{}
	err := r.v.read(func(d *data) error {
		for i := len(d.logs) - 1; i >= 0; i-- {
			l := d.logs[i]
			if f.WarehouseID != nil && l.WarehouseID != *f.WarehouseID {
				continue
			}
			if f.ProductID != nil && l.ProductID != *f.ProductID {
				continue
			}
			out = append(out, l)
		}
		return nil
	})
	return paginate(out, f.Limit, f.Offset), err
}

// limit<=0 なら全件
func paginate[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
