package model

import "time"

// 在庫変動の履歴。追記のみで、更新・削除はしない。
type InventoryLog struct {
	ID               int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	WarehouseID      int64 `gorm:"not null;index:idx_inventory_logs_wh_product" json:"warehouse_id"`
	ProductID        int64 `gorm:"not null;index:idx_inventory_logs_wh_product" json:"product_id"`
	PreviousQuantity int64 `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int64 `gorm:"not null" json:"new_quantity"`
	Delta            int64 `gorm:"not null" json:"delta"`
	//"Transfer Request #12" など
	Reason string `gorm:"type:varchar(255);not null" json:"reason"`
	//システム処理なら0
	ActorUserID int64     `gorm:"not null;default:0" json:"actor_user_id"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
}
