package model

import (
	"time"

	"gorm.io/gorm"
)

// 商品カタログ（参照のみ）。
type Product struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU       string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"sku"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
