package memory

import (
	"context"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"
)

// 商品カタログ。中身は Store.SeedProduct で入れる
type ProductCatalog struct {
	v view
}

var _ repo.ProductCatalog = (*ProductCatalog)(nil)

func (c *ProductCatalog) Exists(ctx context.Context, productID int64) (bool, error) {
	found := false
	err := c.v.read(func(d *data) error {
		_, found = d.products[productID]
		return nil
	})
	return found, err
}

func (c *ProductCatalog) FindByID(ctx context.Context, productID int64) (model.Product, error) {
	var out model.Product
	err := c.v.read(func(d *data) error {
		p, ok := d.products[productID]
		if !ok {
			return repo.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}
