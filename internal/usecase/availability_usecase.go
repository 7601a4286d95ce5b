package usecase

import (
	"context"
	"errors"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"

	"go.uber.org/zap"
)

// AvailabilityUsecase は承認前のプレビュー（読み取りのみ）。
// 引当は SourceAllocator.Plan を Fulfill と共有する。
type AvailabilityUsecase struct {
	transfers repo.TransferRequestRepository
	stock     repo.StockReader
	catalog   repo.ProductCatalog
	allocator *SourceAllocator
	logger    *zap.Logger
}

// DI
func NewAvailabilityUsecase(
	transfers repo.TransferRequestRepository,
	stock repo.StockReader,
	catalog repo.ProductCatalog,
	allocator *SourceAllocator,
	logger *zap.Logger,
) *AvailabilityUsecase {
	return &AvailabilityUsecase{
		transfers: transfers,
		stock:     stock,
		catalog:   catalog,
		allocator: allocator,
		logger:    logger,
	}
}

type StoreAvailability struct {
	WarehouseID int64 `json:"warehouse_id"`
	StoreID     int64 `json:"store_id"`
	Available   int64 `json:"available"`
}

type ItemAvailability struct {
	ProductID              int64  `json:"product_id"`
	ProductName            string `json:"product_name"`
	SKU                    string `json:"sku"`
	RequestedQuantity      int64  `json:"requested_quantity"`
	MainWarehouseAvailable int64  `json:"main_warehouse_available"`

	// MAIN倉庫だけで足りないときだけ入る
	StoreAvailabilities    []StoreAvailability      `json:"store_availabilities,omitempty"`
	RecommendedAllocations []model.SourceAllocation `json:"recommended_allocations"`
	TotalRawAvailable      int64                    `json:"total_raw_available"`
	AvailableQuantity      int64                    `json:"available_quantity"`
	Shortage               int64                    `json:"shortage"`
}

type AvailabilityCheckResult struct {
	TransferRequestID      int64              `json:"transfer_request_id"`
	Items                  []ItemAvailability `json:"items"`
	TotalRequestedQuantity int64              `json:"total_requested_quantity"`
	TotalAvailableQuantity int64              `json:"total_available_quantity"`
	TotalShortage          int64              `json:"total_shortage"`
	MaxFulfillableQuantity int64              `json:"max_fulfillable_quantity"`
	CanFullyFulfill        bool               `json:"can_fully_fulfill"`
}

func (u *AvailabilityUsecase) CheckAvailability(ctx context.Context, transferRequestID int64) (AvailabilityCheckResult, error) {
	if transferRequestID <= 0 {
		return AvailabilityCheckResult{}, validationError("invalid id")
	}
	if _, ok := u.allocator.MainWarehouse(); !ok {
		u.logger.Error("main warehouse is not configured, availability check aborted",
			zap.Int64("transfer_request_id", transferRequestID))
		return AvailabilityCheckResult{}, configurationError("main warehouse is not configured")
	}

	tr, err := u.transfers.FindByID(ctx, transferRequestID)
	if err != nil {
		return AvailabilityCheckResult{}, wrapRepoError(err, "transfer request not found")
	}

	res := AvailabilityCheckResult{
		TransferRequestID: tr.ID,
		Items:             make([]ItemAvailability, 0, len(tr.Items)),
	}

	for _, it := range tr.Items {
		stocks, err := u.stock.ListStockByProduct(ctx, it.ProductID)
		if err != nil {
			return AvailabilityCheckResult{}, dbError()
		}

		sum := u.allocator.Summarize(stocks, tr.StoreID)
		ia := ItemAvailability{
			ProductID:              it.ProductID,
			RequestedQuantity:      it.RequestedQuantity,
			MainWarehouseAvailable: sum.MainAvailable,
			RecommendedAllocations: u.allocator.Plan(stocks, it.RequestedQuantity, tr.StoreID),
			TotalRawAvailable:      sum.TotalAvailable,
			AvailableQuantity:      min(it.RequestedQuantity, sum.TotalAvailable),
			Shortage:               max(0, it.RequestedQuantity-sum.TotalAvailable),
		}

		if sum.MainAvailable < it.RequestedQuantity {
			ia.StoreAvailabilities = make([]StoreAvailability, 0, len(sum.Stores))
			for _, s := range sum.Stores {
				ia.StoreAvailabilities = append(ia.StoreAvailabilities, StoreAvailability{
					WarehouseID: s.WarehouseID,
					StoreID:     *s.StoreID,
					Available:   s.Available(),
				})
			}
		}

		u.fillProduct(ctx, &ia)

		res.Items = append(res.Items, ia)
		res.TotalRequestedQuantity += ia.RequestedQuantity
		res.TotalAvailableQuantity += ia.AvailableQuantity
		res.TotalShortage += ia.Shortage
	}

	res.MaxFulfillableQuantity = min(res.TotalRequestedQuantity, res.TotalAvailableQuantity)
	res.CanFullyFulfill = res.TotalShortage == 0
	return res, nil
}

// 名前とSKUは表示用。取れなくてもプレビューは返す
func (u *AvailabilityUsecase) fillProduct(ctx context.Context, ia *ItemAvailability) {
	if u.catalog == nil {
		return
	}
	p, err := u.catalog.FindByID(ctx, ia.ProductID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			u.logger.Warn("product lookup failed", zap.Int64("product_id", ia.ProductID), zap.Error(err))
			return
		}
		u.logger.Warn("product not in catalog", zap.Int64("product_id", ia.ProductID))
		return
	}
	ia.ProductName = p.Name
	ia.SKU = p.SKU
}
