package repository

import (
	"context"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"

	"gorm.io/gorm"
)

type WarehouseGormRepository struct {
	db *gorm.DB
}

func NewWarehouseGormRepository(db *gorm.DB) *WarehouseGormRepository {
	return &WarehouseGormRepository{db: db}
}

func (r *WarehouseGormRepository) FindMainWarehouse(ctx context.Context) (model.Warehouse, error) {
	var w model.Warehouse
	err := r.db.WithContext(ctx).Where("type = ?", model.WarehouseTypeMain).First(&w).Error
	if isNotFound(err) {
		return model.Warehouse{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Warehouse{}, err
	}
	return w, nil
}

func (r *WarehouseGormRepository) FindStoreWarehouses(ctx context.Context) ([]model.Warehouse, error) {
	var list []model.Warehouse
	err := r.db.WithContext(ctx).
		Where("type = ?", model.WarehouseTypeStore).
		Order("id asc").
		Find(&list).Error
	if err != nil {
		return []model.Warehouse{}, err
	}
	return list, nil
}

func (r *WarehouseGormRepository) FindWarehouseByStore(ctx context.Context, storeID int64) (model.Warehouse, error) {
	var w model.Warehouse
	err := r.db.WithContext(ctx).
		Where("type = ? AND store_id = ?", model.WarehouseTypeStore, storeID).
		First(&w).Error
	if isNotFound(err) {
		return model.Warehouse{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Warehouse{}, err
	}
	return w, nil
}

func (r *WarehouseGormRepository) FindByID(ctx context.Context, warehouseID int64) (model.Warehouse, error) {
	var w model.Warehouse
	err := r.db.WithContext(ctx).First(&w, warehouseID).Error
	if isNotFound(err) {
		return model.Warehouse{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Warehouse{}, err
	}
	return w, nil
}

// MAINの2件目、同じstore_idの2件目はユニーク制約で弾かれる
func (r *WarehouseGormRepository) Create(ctx context.Context, w model.Warehouse) (model.Warehouse, error) {
	if err := r.db.WithContext(ctx).Create(&w).Error; err != nil {
		if isUniqueViolation(err) {
			return model.Warehouse{}, repo.ErrDuplicate
		}
		return model.Warehouse{}, err
	}
	return w, nil
}
