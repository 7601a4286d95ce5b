package model

import (
	"fmt"
	"time"
)

type DebtOrderStatus string

const (
	DebtOrderStatusPending     DebtOrderStatus = "PENDING"
	DebtOrderStatusFulfillable DebtOrderStatus = "FULFILLABLE"
	DebtOrderStatusCompleted   DebtOrderStatus = "COMPLETED"
)

func ParseDebtOrderStatus(s string) (DebtOrderStatus, error) {
	st := DebtOrderStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown debt order status %q", s)
	}
	return st, nil
}

func (s DebtOrderStatus) Valid() bool {
	switch s {
	case DebtOrderStatusPending, DebtOrderStatusFulfillable, DebtOrderStatusCompleted:
		return true
	default:
		return false
	}
}

// PENDING -> FULFILLABLE -> COMPLETED の一方向のみ
func (s DebtOrderStatus) CanTransitionTo(next DebtOrderStatus) bool {
	switch s {
	case DebtOrderStatusPending:
		return next == DebtOrderStatusFulfillable
	case DebtOrderStatusFulfillable:
		return next == DebtOrderStatusCompleted
	case DebtOrderStatusCompleted:
		return false
	default:
		return false
	}
}

// 不足分の債務。TransferRequest 1件につき最大1件。
type DebtOrder struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TransferRequestID int64           `gorm:"not null;uniqueIndex" json:"transfer_request_id"`
	Status            DebtOrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Items             []DebtItem      `gorm:"foreignKey:DebtOrderID" json:"items"`
	CreatedAt         time.Time       `gorm:"not null;index" json:"created_at"`
	FulfilledAt       *time.Time      `json:"fulfilled_at"`
	UpdatedAt         time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type DebtItem struct {
	ID                int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	DebtOrderID       int64 `gorm:"not null;index" json:"debt_order_id"`
	ProductID         int64 `gorm:"not null;index" json:"product_id"`
	OwedQuantity      int64 `gorm:"not null;check:owed_quantity > 0" json:"owed_quantity"`
	FulfilledQuantity int64 `gorm:"not null;default:0;check:fulfilled_quantity >= 0" json:"fulfilled_quantity"`
}

// まだ渡していない数量
func (d DebtItem) Remaining() int64 {
	if d.FulfilledQuantity >= d.OwedQuantity {
		return 0
	}
	return d.OwedQuantity - d.FulfilledQuantity
}
