package model

import "time"

// 倉庫の種類
type WarehouseType string

const (
	// ネットワーク全体で1つだけの本部倉庫
	WarehouseTypeMain WarehouseType = "MAIN"
	// 店舗ごとの倉庫
	WarehouseTypeStore WarehouseType = "STORE"
)

func (t WarehouseType) Valid() bool {
	switch t {
	case WarehouseTypeMain, WarehouseTypeStore:
		return true
	default:
		return false
	}
}

// 倉庫。StoreIDはMAINのときだけnil。
// MAINは部分ユニークインデックスで1件に制限する。
type Warehouse struct {
	ID        int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Type      WarehouseType `gorm:"type:varchar(10);not null;uniqueIndex:idx_warehouses_single_main,where:type = 'MAIN'" json:"type"`
	StoreID   *int64        `gorm:"uniqueIndex" json:"store_id"`
	CreatedAt time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (w Warehouse) IsMain() bool {
	return w.Type == WarehouseTypeMain
}

// BelongsToStore は店舗倉庫で、かつstoreIDの店舗のものか。
func (w Warehouse) BelongsToStore(storeID int64) bool {
	return w.Type == WarehouseTypeStore && w.StoreID != nil && *w.StoreID == storeID
}
