package model

import "time"

// 承認、却下、債務消化、入荷など。
type AuditAction string

const (
	AuditActionApproveTransferRequest AuditAction = "APPROVE_TRANSFER_REQUEST"
	AuditActionRejectTransferRequest  AuditAction = "REJECT_TRANSFER_REQUEST"
	AuditActionRedeemDebtOrder        AuditAction = "REDEEM_DEBT_ORDER"
	AuditActionRestock                AuditAction = "RESTOCK"
	AuditActionAdjustInventory        AuditAction = "ADJUST_INVENTORY"
)

func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionApproveTransferRequest,
		AuditActionRejectTransferRequest,
		AuditActionRedeemDebtOrder,
		AuditActionRestock,
		AuditActionAdjustInventory:
		return true
	default:
		return false
	}
}

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceTransferRequest AuditResourceType = "transfer_request"
	AuditResourceDebtOrder       AuditResourceType = "debt_order"
	AuditResourceInventory       AuditResourceType = "inventory_item"
)

func (t AuditResourceType) Valid() bool {
	switch t {
	case AuditResourceTransferRequest, AuditResourceDebtOrder, AuditResourceInventory:
		return true
	default:
		return false
	}
}

// 監査ログ（スタッフ操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザー（主にスタッフ）のID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`

	//JSON文字列で保存する。
	AfterJSON string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
