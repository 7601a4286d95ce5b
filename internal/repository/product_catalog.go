package repository

import (
	"context"

	"stocknet/internal/domain/model"
)

// 商品カタログ（外部）。名前とSKUはFindByIDで取る。
type ProductCatalog interface {
	Exists(ctx context.Context, productID int64) (bool, error)
	FindByID(ctx context.Context, productID int64) (model.Product, error)
}
