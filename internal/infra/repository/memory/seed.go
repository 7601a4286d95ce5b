package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"stocknet/internal/domain/model"
)

// 商品カタログの初期データ。
// [{"id":1,"sku":"SKU-1","name":"..."}] の形。idは省略可
func (s *Store) LoadProducts(r io.Reader) ([]model.Product, error) {
	var in []model.Product
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode product seed: %w", err)
	}

	seen := map[string]bool{}
	for i, p := range in {
		if p.ID < 0 {
			return nil, fmt.Errorf("product seed #%d: id must be >= 0", i)
		}
		if p.SKU == "" {
			return nil, fmt.Errorf("product seed #%d: sku is required", i)
		}
		if seen[p.SKU] {
			return nil, fmt.Errorf("product seed #%d: duplicate sku %q", i, p.SKU)
		}
		seen[p.SKU] = true
	}

	out := make([]model.Product, 0, len(in))
	for _, p := range in {
		out = append(out, s.SeedProduct(p))
	}
	return out, nil
}

func (s *Store) LoadProductsFile(path string) ([]model.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.LoadProducts(f)
}
