package usecase

import (
	"context"
	"sort"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"
)

// SourceAllocator は「どの倉庫から何個出すか」を決める。
// 1. MAIN倉庫を最優先
// 2. 足りなければ店舗倉庫を available の多い順（同数なら warehouse_id 昇順）
// 依頼元の店舗倉庫は出庫元にしない。在庫は読むだけで変更しない。
type SourceAllocator struct {
	main *model.Warehouse
}

// DI。mainがnilならMAIN倉庫は飛ばして店舗だけで引き当てる。
func NewSourceAllocator(main *model.Warehouse) *SourceAllocator {
	return &SourceAllocator{main: main}
}

func (a *SourceAllocator) MainWarehouse() (model.Warehouse, bool) {
	if a.main == nil {
		return model.Warehouse{}, false
	}
	return *a.main, true
}

// Allocate は在庫を読んで引当計画を返す。
// requiredが0以下は呼び出し側の誤り。
func (a *SourceAllocator) Allocate(ctx context.Context, stock repo.StockReader, productID int64, required int64, excludeStoreID int64) ([]model.SourceAllocation, error) {
	if required <= 0 {
		return nil, validationError("required quantity must be > 0")
	}

	stocks, err := stock.ListStockByProduct(ctx, productID)
	if err != nil {
		return nil, dbError()
	}

	return a.Plan(stocks, required, excludeStoreID), nil
}

// Plan は読み取り済みの在庫から引当を計算する（副作用なし）。
// 合計は min(required, 対象倉庫のavailable合計) になる。
func (a *SourceAllocator) Plan(stocks []model.WarehouseStock, required int64, excludeStoreID int64) []model.SourceAllocation {
	allocs := []model.SourceAllocation{}
	if required <= 0 {
		return allocs
	}

	remaining := required

	//MAIN倉庫
	if mainStock, ok := a.mainStock(stocks); ok {
		if avail := mainStock.Available(); avail > 0 {
			q := min(avail, remaining)
			allocs = append(allocs, model.SourceAllocation{
				WarehouseID:   mainStock.WarehouseID,
				WarehouseType: model.WarehouseTypeMain,
				Quantity:      q,
			})
			remaining -= q
		}
	}
	if remaining == 0 {
		return allocs
	}

	//店舗倉庫
	for _, s := range a.storeCandidates(stocks, excludeStoreID) {
		if remaining == 0 {
			break
		}
		q := min(s.Available(), remaining)
		allocs = append(allocs, model.SourceAllocation{
			WarehouseID:   s.WarehouseID,
			WarehouseType: model.WarehouseTypeStore,
			StoreID:       copyInt64Ptr(s.StoreID),
			Quantity:      q,
		})
		remaining -= q
	}

	return allocs
}

// StockSummary はプレビュー用の集計。
type StockSummary struct {
	MainAvailable int64
	// available > 0 の対象店舗（引当と同じ順）
	Stores []model.WarehouseStock
	// MAIN + 対象店舗の合計（依頼数で頭打ちしない）
	TotalAvailable int64
}

func (a *SourceAllocator) Summarize(stocks []model.WarehouseStock, excludeStoreID int64) StockSummary {
	var sum StockSummary
	if mainStock, ok := a.mainStock(stocks); ok && mainStock.Available() > 0 {
		sum.MainAvailable = mainStock.Available()
	}
	sum.Stores = a.storeCandidates(stocks, excludeStoreID)
	sum.TotalAvailable = sum.MainAvailable
	for _, s := range sum.Stores {
		sum.TotalAvailable += s.Available()
	}
	return sum
}

func (a *SourceAllocator) mainStock(stocks []model.WarehouseStock) (model.WarehouseStock, bool) {
	if a.main == nil {
		return model.WarehouseStock{}, false
	}
	for _, s := range stocks {
		if s.WarehouseID == a.main.ID {
			return s, true
		}
	}
	return model.WarehouseStock{}, false
}

func (a *SourceAllocator) storeCandidates(stocks []model.WarehouseStock, excludeStoreID int64) []model.WarehouseStock {
	out := make([]model.WarehouseStock, 0, len(stocks))
	for _, s := range stocks {
		if s.WarehouseType != model.WarehouseTypeStore || s.StoreID == nil {
			continue
		}
		if a.main != nil && s.WarehouseID == a.main.ID {
			continue
		}
		//自店舗からは出さない
		if *s.StoreID == excludeStoreID {
			continue
		}
		if s.Available() <= 0 {
			continue
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := out[i].Available(), out[j].Available()
		if ai != aj {
			return ai > aj
		}
		return out[i].WarehouseID < out[j].WarehouseID
	})
	return out
}

func copyInt64Ptr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
