package usecase

import (
	"context"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"
)

// スタッフ操作（承認・却下・債務消化・入荷・調整）の監査ログを読む
type AuditLogUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditLogUsecase(logs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs}
}

func (u *AuditLogUsecase) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if f.Limit < 0 || f.Limit > 200 {
		return []model.AuditLog{}, validationError("invalid limit")
	}
	if f.Offset < 0 {
		return []model.AuditLog{}, validationError("invalid offset")
	}
	if f.Since != nil && f.Until != nil && f.Since.After(*f.Until) {
		return []model.AuditLog{}, validationError("from must be before to")
	}
	if f.Action != nil && !f.Action.Valid() {
		return []model.AuditLog{}, validationError("invalid action")
	}
	if f.ResourceType != nil && !f.ResourceType.Valid() {
		return []model.AuditLog{}, validationError("invalid resource_type")
	}

	list, err := u.logs.List(ctx, f)
	if err != nil {
		return []model.AuditLog{}, dbError()
	}
	if list == nil {
		list = []model.AuditLog{}
	}
	return list, nil
}

// Trail は依頼・債務・在庫行1件ぶんの操作履歴（新しい順）
func (u *AuditLogUsecase) Trail(ctx context.Context, resourceType model.AuditResourceType, resourceID int64) ([]model.AuditLog, error) {
	if resourceID <= 0 {
		return []model.AuditLog{}, validationError("invalid resource_id")
	}
	f := repo.AuditTrail(resourceType, resourceID)
	f.Limit = 200
	return u.List(ctx, f)
}
