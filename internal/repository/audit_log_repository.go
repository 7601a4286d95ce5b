package repository

import (
	"context"
	"time"

	"stocknet/internal/domain/model"
)

// スタッフ操作ログの検索条件。nilの項目は絞り込まない。
// Since/Until は created_at の両端を含む。
type AuditLogFilter struct {
	ActorUserID  *int64
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64 // 移動依頼ID・債務ID・在庫行ID
	Since        *time.Time
	Until        *time.Time
	Limit        int
	Offset       int
}

// AuditTrail は1つの依頼（または債務・在庫行）に対する操作履歴の条件
func AuditTrail(resourceType model.AuditResourceType, resourceID int64) AuditLogFilter {
	return AuditLogFilter{ResourceType: &resourceType, ResourceID: &resourceID}
}

// 承認・却下・債務消化・入荷・調整のたびに1行追記する。更新・削除はしない。
type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	// 新しい順
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
