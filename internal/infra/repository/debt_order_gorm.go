package repository

import (
	"context"
	"time"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DebtOrderGormRepository struct {
	db *gorm.DB
}

func NewDebtOrderGormRepository(db *gorm.DB) *DebtOrderGormRepository {
	return &DebtOrderGormRepository{db: db}
}

func preloadDebtItems(db *gorm.DB) *gorm.DB {
	return db.Order("id asc")
}

// transfer_request_id のユニーク制約で1依頼1債務を守る
func (r *DebtOrderGormRepository) Create(ctx context.Context, d model.DebtOrder) (model.DebtOrder, error) {
	if err := r.db.WithContext(ctx).Create(&d).Error; err != nil {
		if isUniqueViolation(err) {
			return model.DebtOrder{}, repo.ErrDuplicate
		}
		return model.DebtOrder{}, err
	}
	return d, nil
}

func (r *DebtOrderGormRepository) FindByID(ctx context.Context, id int64) (model.DebtOrder, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *DebtOrderGormRepository) LockByID(ctx context.Context, id int64) (model.DebtOrder, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *DebtOrderGormRepository) FindByTransferRequestID(ctx context.Context, transferRequestID int64) (model.DebtOrder, error) {
	return r.first(r.db.WithContext(ctx).Where("transfer_request_id = ?", transferRequestID))
}

func (r *DebtOrderGormRepository) first(q *gorm.DB) (model.DebtOrder, error) {
	var d model.DebtOrder
	err := q.Preload("Items", preloadDebtItems).First(&d).Error
	if isNotFound(err) {
		return model.DebtOrder{}, repo.ErrNotFound
	}
	if err != nil {
		return model.DebtOrder{}, err
	}
	return d, nil
}

// 古い順
func (r *DebtOrderGormRepository) ListByStatus(ctx context.Context, status *model.DebtOrderStatus) ([]model.DebtOrder, error) {
	q := r.db.WithContext(ctx).Preload("Items", preloadDebtItems)
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	var list []model.DebtOrder
	if err := q.Order("created_at asc").Order("id asc").Find(&list).Error; err != nil {
		return []model.DebtOrder{}, err
	}
	return list, nil
}

// 現在のstatusがfromのときだけ更新
func (r *DebtOrderGormRepository) UpdateStatus(ctx context.Context, id int64, from model.DebtOrderStatus, to model.DebtOrderStatus, fulfilledAt *time.Time) (bool, error) {
	values := map[string]interface{}{"status": to}
	if fulfilledAt != nil {
		values["fulfilled_at"] = *fulfilledAt
	}

	res := r.db.WithContext(ctx).Model(&model.DebtOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *DebtOrderGormRepository) UpdateItemFulfilled(ctx context.Context, itemID int64, fulfilled int64) error {
	res := r.db.WithContext(ctx).Model(&model.DebtItem{}).
		Where("id = ?", itemID).
		Update("fulfilled_quantity", fulfilled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
