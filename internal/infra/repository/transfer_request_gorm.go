package repository

import (
	"context"
	"time"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransferRequestGormRepository struct {
	db *gorm.DB
}

func NewTransferRequestGormRepository(db *gorm.DB) *TransferRequestGormRepository {
	return &TransferRequestGormRepository{db: db}
}

// 明細はid順（＝依頼時の順）
func preloadTransferItems(db *gorm.DB) *gorm.DB {
	return db.Order("id asc")
}

// 明細もまとめてINSERTされる
func (r *TransferRequestGormRepository) Create(ctx context.Context, tr model.TransferRequest) (model.TransferRequest, error) {
	if err := r.db.WithContext(ctx).Create(&tr).Error; err != nil {
		return model.TransferRequest{}, err
	}
	return tr, nil
}

func (r *TransferRequestGormRepository) FindByID(ctx context.Context, id int64) (model.TransferRequest, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// 依頼の行だけロックする。明細はこの依頼の処理からしか更新されない
func (r *TransferRequestGormRepository) LockByID(ctx context.Context, id int64) (model.TransferRequest, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *TransferRequestGormRepository) find(q *gorm.DB, id int64) (model.TransferRequest, error) {
	var tr model.TransferRequest
	err := q.Preload("Items", preloadTransferItems).Where("id = ?", id).First(&tr).Error
	if isNotFound(err) {
		return model.TransferRequest{}, repo.ErrNotFound
	}
	if err != nil {
		return model.TransferRequest{}, err
	}
	return tr, nil
}

func (r *TransferRequestGormRepository) List(ctx context.Context, f repo.TransferRequestFilter) ([]model.TransferRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.TransferRequest{})
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.StoreID != nil {
		q = q.Where("store_id = ?", *f.StoreID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.TransferRequest{}, 0, err
	}

	var list []model.TransferRequest
	offset := (f.Page - 1) * f.Limit
	err := q.Preload("Items", preloadTransferItems).
		Order("id desc").
		Limit(f.Limit).
		Offset(offset).
		Find(&list).Error
	if err != nil {
		return []model.TransferRequest{}, 0, err
	}
	return list, total, nil
}

func (r *TransferRequestGormRepository) UpdateStatus(ctx context.Context, id int64, status model.TransferRequestStatus, processedAt *time.Time) error {
	values := map[string]interface{}{"status": status}
	if processedAt != nil {
		values["processed_at"] = *processedAt
	}

	res := r.db.WithContext(ctx).Model(&model.TransferRequest{}).
		Where("id = ?", id).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *TransferRequestGormRepository) UpdateItemFulfilled(ctx context.Context, itemID int64, fulfilled int64) error {
	res := r.db.WithContext(ctx).Model(&model.TransferRequestItem{}).
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
