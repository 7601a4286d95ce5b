package memory

import (
	"context"
	"sort"
	"time"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"
)

type WarehouseRepository struct {
	v view
}

var _ repo.WarehouseRepository = (*WarehouseRepository)(nil)

func (r *WarehouseRepository) FindMainWarehouse(ctx context.Context) (model.Warehouse, error) {
	var out model.Warehouse
	err := r.v.read(func(d *data) error {
		for _, w := range d.warehouses {
			if w.IsMain() {
				out = w
				return nil
			}
		}
		return repo.ErrNotFound
	})
	return out, err
}

func (r *WarehouseRepository) FindStoreWarehouses(ctx context.Context) ([]model.Warehouse, error) {
	out := []model.Warehouse{}
	err := r.v.read(func(d *data) error {
		for _, w := range d.warehouses {
			if w.Type == model.WarehouseTypeStore {
				w.StoreID = copyPtr(w.StoreID)
				out = append(out, w)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *WarehouseRepository) FindWarehouseByStore(ctx context.Context, storeID int64) (model.Warehouse, error) {
	var out model.Warehouse
	err := r.v.read(func(d *data) error {
		for _, w := range d.warehouses {
			if w.BelongsToStore(storeID) {
				w.StoreID = copyPtr(w.StoreID)
				out = w
				return nil
			}
		}
		return repo.ErrNotFound
	})
	return out, err
}

func (r *WarehouseRepository) FindByID(ctx context.Context, warehouseID int64) (model.Warehouse, error) {
	var out model.Warehouse
	err := r.v.read(func(d *data) error {
		w, ok := d.warehouses[warehouseID]
		if !ok {
			return repo.ErrNotFound
		}
		w.StoreID = copyPtr(w.StoreID)
		out = w
		return nil
	})
	return out, err
}

// MAINは1件、店舗は1店舗1件
func (r *WarehouseRepository) Create(ctx context.Context, w model.Warehouse) (model.Warehouse, error) {
	err := r.v.write(func(d *data) error {
		for _, existing := range d.warehouses {
			if w.IsMain() && existing.IsMain() {
				return repo.ErrDuplicate
			}
			if w.StoreID != nil && existing.StoreID != nil && *w.StoreID == *existing.StoreID {
				return repo.ErrDuplicate
			}
		}
		w.ID = d.next("warehouses")
		w.StoreID = copyPtr(w.StoreID)
		if w.CreatedAt.IsZero() {
			w.CreatedAt = time.Now()
		}
		d.warehouses[w.ID] = w
		return nil
	})
	if err != nil {
		return model.Warehouse{}, err
	}
	return w, nil
}
