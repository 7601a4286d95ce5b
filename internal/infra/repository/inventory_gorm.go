package repository

import (
	"context"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// 商品1つ分の在庫を倉庫情報つきで
func (r *InventoryGormRepository) stockQuery(ctx context.Context, productID int64) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("inventory_items AS i").
		Select("i.id AS item_id, i.warehouse_id, w.type AS warehouse_type, w.store_id, i.product_id, i.quantity, i.reserved_quantity").
		Joins("JOIN warehouses w ON w.id = i.warehouse_id").
		Where("i.product_id = ?", productID).
		Order("i.warehouse_id asc")
}

func (r *InventoryGormRepository) ListStockByProduct(ctx context.Context, productID int64) ([]model.WarehouseStock, error) {
	var rows []model.WarehouseStock
	if err := r.stockQuery(ctx, productID).Scan(&rows).Error; err != nil {
		return []model.WarehouseStock{}, err
	}
	return rows, nil
}

// inventory_itemsの行だけロックする（warehousesはロックしない）
func (r *InventoryGormRepository) LockStockByProduct(ctx context.Context, productID int64) ([]model.WarehouseStock, error) {
	var rows []model.WarehouseStock
	err := r.stockQuery(ctx, productID).
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "i"}}).
		Scan(&rows).Error
	if err != nil {
		return []model.WarehouseStock{}, err
	}
	return rows, nil
}

func (r *InventoryGormRepository) FindItem(ctx context.Context, warehouseID int64, productID int64) (model.InventoryItem, error) {
	return r.findItem(r.db.WithContext(ctx), warehouseID, productID)
}

func (r *InventoryGormRepository) LockItem(ctx context.Context, warehouseID int64, productID int64) (model.InventoryItem, error) {
	return r.findItem(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), warehouseID, productID)
}

func (r *InventoryGormRepository) findItem(q *gorm.DB, warehouseID int64, productID int64) (model.InventoryItem, error) {
	var item model.InventoryItem
	err := q.Where("warehouse_id = ? AND product_id = ?", warehouseID, productID).First(&item).Error
	if isNotFound(err) {
		return model.InventoryItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.InventoryItem{}, err
	}
	return item, nil
}

// ON CONFLICT DO NOTHING にしておく（INSERT失敗でTxを壊さない）
func (r *InventoryGormRepository) CreateItem(ctx context.Context, item model.InventoryItem) (model.InventoryItem, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&item)
	if res.Error != nil {
		return model.InventoryItem{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.InventoryItem{}, repo.ErrDuplicate
	}
	return item, nil
}

// available が足りるときだけ減らす
func (r *InventoryGormRepository) DecreaseIfAvailable(ctx context.Context, itemID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.InventoryItem{}).
		Where("id = ? AND quantity - reserved_quantity >= ?", itemID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *InventoryGormRepository) IncreaseQuantity(ctx context.Context, itemID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.InventoryItem{}).
		Where("id = ?", itemID).
		Update("quantity", gorm.Expr("quantity + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 在庫の現在値を設定（引当分より下にはしない）
func (r *InventoryGormRepository) SetQuantity(ctx context.Context, itemID int64, newQty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.InventoryItem{}).
		Where("id = ? AND reserved_quantity <= ?", itemID, newQty).
		Update("quantity", newQty)

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *InventoryGormRepository) Reserve(ctx context.Context, itemID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.InventoryItem{}).
		Where("id = ? AND quantity - reserved_quantity >= ?", itemID, qty).
		Update("reserved_quantity", gorm.Expr("reserved_quantity + ?", qty))

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *InventoryGormRepository) ConsumeReservation(ctx context.Context, itemID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.InventoryItem{}).
		Where("id = ? AND reserved_quantity >= ? AND quantity >= ?", itemID, qty, qty).
		Updates(map[string]interface{}{
			"quantity":          gorm.Expr("quantity - ?", qty),
			"reserved_quantity": gorm.Expr("reserved_quantity - ?", qty),
		})

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// 在庫履歴は追記のみ
func (r *InventoryGormRepository) CreateLog(ctx context.Context, log model.InventoryLog) error {
	return r.db.WithContext(ctx).Create(&log).Error
}

func (r *InventoryGormRepository) ListLogs(ctx context.Context, f repo.InventoryLogFilter) ([]model.InventoryLog, error) {
	q := r.db.WithContext(ctx).Model(&model.InventoryLog{})
	if f.WarehouseID != nil {
		q = q.Where("warehouse_id = ?", *f.WarehouseID)
	}
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}

	var logs []model.InventoryLog
	err := q.Order("id desc").Limit(f.Limit).Offset(f.Offset).Find(&logs).Error
	if err != nil {
		return []model.InventoryLog{}, err
	}
	return logs, nil
}
