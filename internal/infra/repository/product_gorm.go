package repository

import (
	"context"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"

	"gorm.io/gorm"
)

// 商品カタログ（productsテーブルを読むだけ）。
// 論理削除された商品は存在しない扱い。
type ProductCatalogGorm struct {
	db *gorm.DB
}

// DI
func NewProductCatalogGorm(db *gorm.DB) *ProductCatalogGorm {
	return &ProductCatalogGorm{db: db}
}

func (r *ProductCatalogGorm) Exists(ctx context.Context, productID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", productID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ProductCatalogGorm) FindByID(ctx context.Context, productID int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, productID).Error
	if isNotFound(err) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}
