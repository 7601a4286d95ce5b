package model

import "time"

// 倉庫×商品の在庫。(warehouse_id, product_id)で一意。
// available = quantity - reserved_quantity は常に0以上。
type InventoryItem struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WarehouseID      int64     `gorm:"not null;uniqueIndex:idx_inventory_items_wh_product" json:"warehouse_id"`
	ProductID        int64     `gorm:"not null;uniqueIndex:idx_inventory_items_wh_product;index" json:"product_id"`
	Quantity         int64     `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	ReservedQuantity int64     `gorm:"not null;default:0;check:reserved_quantity >= 0" json:"reserved_quantity"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (i InventoryItem) Available() int64 {
	return i.Quantity - i.ReservedQuantity
}

// 商品1つについての倉庫ごとの在庫（inventory_items + warehouses のJOIN結果）。
type WarehouseStock struct {
	ItemID           int64
	WarehouseID      int64
	WarehouseType    WarehouseType
	StoreID          *int64
	ProductID        int64
	Quantity         int64
	ReservedQuantity int64
}

func (s WarehouseStock) Available() int64 {
	return s.Quantity - s.ReservedQuantity
}
