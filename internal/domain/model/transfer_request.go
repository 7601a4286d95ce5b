package model

import (
	"fmt"
	"time"
)

type TransferRequestStatus string

const (
	TransferRequestStatusPending   TransferRequestStatus = "PENDING"
	TransferRequestStatusPartial   TransferRequestStatus = "PARTIAL"
	TransferRequestStatusCompleted TransferRequestStatus = "COMPLETED"
	TransferRequestStatusRejected  TransferRequestStatus = "REJECTED"
)

func ParseTransferRequestStatus(s string) (TransferRequestStatus, error) {
	st := TransferRequestStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown transfer request status %q", s)
	}
	return st, nil
}

func (s TransferRequestStatus) Valid() bool {
	switch s {
	case TransferRequestStatusPending,
		TransferRequestStatusPartial,
		TransferRequestStatusCompleted,
		TransferRequestStatusRejected:
		return true
	default:
		return false
	}
}

// 状態遷移の可否。
// PENDING -> COMPLETED / PARTIAL / REJECTED
// PARTIAL -> COMPLETED（債務の消化）
func (s TransferRequestStatus) CanTransitionTo(next TransferRequestStatus) bool {
	switch s {
	case TransferRequestStatusPending:
		switch next {
		case TransferRequestStatusCompleted, TransferRequestStatusPartial, TransferRequestStatusRejected:
			return true
		}
		return false
	case TransferRequestStatusPartial:
		return next == TransferRequestStatusCompleted
	case TransferRequestStatusCompleted, TransferRequestStatusRejected:
		//終端
		return false
	default:
		return false
	}
}

// 店舗からの在庫移動依頼
type TransferRequest struct {
	ID          int64                 `gorm:"primaryKey;autoIncrement" json:"id"`
	StoreID     int64                 `gorm:"not null;index" json:"store_id"`
	Status      TransferRequestStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Items       []TransferRequestItem `gorm:"foreignKey:TransferRequestID" json:"items"`
	CreatedAt   time.Time             `gorm:"not null;index" json:"created_at"`
	ProcessedAt *time.Time            `json:"processed_at"`
	UpdatedAt   time.Time             `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 依頼の明細。fulfilled_quantity <= requested_quantity。
type TransferRequestItem struct {
	ID                int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	TransferRequestID int64 `gorm:"not null;index" json:"transfer_request_id"`
	ProductID         int64 `gorm:"not null" json:"product_id"`
	RequestedQuantity int64 `gorm:"not null;check:requested_quantity > 0" json:"requested_quantity"`
	FulfilledQuantity int64 `gorm:"not null;default:0;check:fulfilled_quantity >= 0" json:"fulfilled_quantity"`
}

func (i TransferRequestItem) Shortage() int64 {
	if i.FulfilledQuantity >= i.RequestedQuantity {
		return 0
	}
	return i.RequestedQuantity - i.FulfilledQuantity
}

// 全明細が満たされているか
func (tr TransferRequest) FullyFulfilled() bool {
	for _, it := range tr.Items {
		if it.Shortage() > 0 {
			return false
		}
	}
	return true
}
