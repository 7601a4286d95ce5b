package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"

	"go.uber.org/zap"
)

// FulfillmentUsecase は移動依頼1件を「引当→出庫→履歴→ステータス更新→（不足なら）債務作成」まで進める。
// 全部を1トランザクションで行うので、途中で失敗すれば何も反映されない。
type FulfillmentUsecase struct {
	tx        repo.TransactionManager
	allocator *SourceAllocator
	debts     *DebtOrderUsecase
	clock     Clock
	events    eventEmitter
	logger    *zap.Logger
}

// DI
func NewFulfillmentUsecase(
	tx repo.TransactionManager,
	allocator *SourceAllocator,
	debts *DebtOrderUsecase,
	publisher EventPublisher,
	idGen IDGenerator,
	clock Clock,
	logger *zap.Logger,
) *FulfillmentUsecase {
	return &FulfillmentUsecase{
		tx:        tx,
		allocator: allocator,
		debts:     debts,
		clock:     clock,
		events:    eventEmitter{publisher: publisher, idGen: idGen, clock: clock, logger: logger},
		logger:    logger,
	}
}

// 出庫結果。不足はエラーではなく、FullyFulfilled=false + DebtOrderIDで返す。
type FulfillmentResult struct {
	TransferRequestID   int64                              `json:"transfer_request_id"`
	FulfilledQuantities map[int64]int64                    `json:"fulfilled_quantities"`
	SourceAllocations   map[int64][]model.SourceAllocation `json:"source_allocations"`
	FullyFulfilled      bool                               `json:"fully_fulfilled"`
	NewStatus           model.TransferRequestStatus        `json:"new_status"`
	DebtOrderID         *int64                             `json:"debt_order_id,omitempty"`
}

func (u *FulfillmentUsecase) Fulfill(ctx context.Context, actorUserID int64, transferRequestID int64) (FulfillmentResult, error) {
	if actorUserID <= 0 {
		return FulfillmentResult{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if transferRequestID <= 0 {
		return FulfillmentResult{}, validationError("invalid id")
	}

	//MAIN倉庫が無いのは設定ミス。何も触らずに中断
	if _, ok := u.allocator.MainWarehouse(); !ok {
		u.logger.Error("main warehouse is not configured, fulfillment aborted",
			zap.Int64("transfer_request_id", transferRequestID))
		return FulfillmentResult{}, configurationError("main warehouse is not configured")
	}

	var (
		res     FulfillmentResult
		tr      model.TransferRequest
		created *model.DebtOrder
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		res = FulfillmentResult{
			TransferRequestID:   transferRequestID,
			FulfilledQuantities: map[int64]int64{},
			SourceAllocations:   map[int64][]model.SourceAllocation{},
		}
		created = nil

		var err error
		tr, err = r.TransferRequests().LockByID(ctx, transferRequestID)
		if err != nil {
			return wrapRepoError(err, "transfer request not found")
		}
		if tr.Status != model.TransferRequestStatusPending {
			return conflictError(fmt.Sprintf("transfer request is %s, not PENDING", tr.Status))
		}
		if len(tr.Items) == 0 {
			return validationError("transfer request has no items")
		}

		now := u.clock.Now()
		reason := transferRequestReason(tr.ID)
		stock := lockingStockReader{inv: r.Inventory()}
		shortage := map[int64]int64{}

		//商品ID順に処理（依頼をまたいだロック順をそろえる）
		for _, i := range itemsInLockOrder(tr.Items) {
			it := tr.Items[i]
			allocs, err := u.allocator.Allocate(ctx, stock, it.ProductID, it.RequestedQuantity, tr.StoreID)
			if err != nil {
				return err
			}

			for _, a := range allocs {
				if err := u.deduct(ctx, r, a, it.ProductID, reason, actorUserID, now); err != nil {
					return err
				}
			}

			fulfilled := model.SumAllocated(allocs)
			if err := r.TransferRequests().UpdateItemFulfilled(ctx, it.ID, fulfilled); err != nil {
				return dbError()
			}
			tr.Items[i].FulfilledQuantity = fulfilled

			res.FulfilledQuantities[it.ProductID] += fulfilled
			res.SourceAllocations[it.ProductID] = append(res.SourceAllocations[it.ProductID], allocs...)
			if s := tr.Items[i].Shortage(); s > 0 {
				shortage[it.ProductID] += s
			}
		}

		res.FullyFulfilled = len(shortage) == 0
		res.NewStatus = model.TransferRequestStatusCompleted
		if !res.FullyFulfilled {
			res.NewStatus = model.TransferRequestStatusPartial
		}

		if err := r.TransferRequests().UpdateStatus(ctx, tr.ID, res.NewStatus, &now); err != nil {
			return dbError()
		}

		//不足があれば債務を1件だけ作る
		if !res.FullyFulfilled {
			d, err := u.debts.createInTx(ctx, r, tr.ID, shortage)
			if err != nil {
				return err
			}
			created = &d
			id := d.ID
			res.DebtOrderID = &id
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionApproveTransferRequest,
			ResourceType: model.AuditResourceTransferRequest,
			ResourceID:   tr.ID,
			BeforeJSON:   fmt.Sprintf(`{"status":%q}`, model.TransferRequestStatusPending),
			AfterJSON:    fmt.Sprintf(`{"status":%q}`, res.NewStatus),
			CreatedAt:    now,
		}); err != nil {
			return dbError()
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConfiguration) {
			u.logger.Error("fulfillment aborted", zap.Int64("transfer_request_id", transferRequestID), zap.Error(err))
		}
		return FulfillmentResult{}, err
	}

	u.logger.Info("transfer request fulfilled",
		zap.Int64("transfer_request_id", tr.ID),
		zap.Int64("store_id", tr.StoreID),
		zap.String("status", string(res.NewStatus)),
		zap.Bool("fully_fulfilled", res.FullyFulfilled))

	u.events.emit(ctx, EventTransferRequestFulfilled, TransferRequestFulfilledPayload{
		TransferRequestID: tr.ID,
		StoreID:           tr.StoreID,
		Status:            string(res.NewStatus),
		FullyFulfilled:    res.FullyFulfilled,
		DebtOrderID:       res.DebtOrderID,
	})
	if created != nil {
		u.debts.emitDebt(ctx, EventDebtOrderCreated, *created)
	}
	return res, nil
}

// 引当1件分を出庫して履歴を残す。
// 行は引当時にロック済みなので、ここで読んだ数量と減算は食い違わない。
func (u *FulfillmentUsecase) deduct(ctx context.Context, r repo.TxRepos, a model.SourceAllocation, productID int64, reason string, actorUserID int64, now time.Time) error {
	item, err := r.Inventory().LockItem(ctx, a.WarehouseID, productID)
	if err != nil {
		return dbError()
	}

	ok, err := r.Inventory().DecreaseIfAvailable(ctx, item.ID, a.Quantity)
	if err != nil {
		return dbError()
	}
	if !ok {
		//ロック中に減っているのはおかしい
		u.logger.Error("stock changed under lock",
			zap.Int64("warehouse_id", a.WarehouseID),
			zap.Int64("product_id", productID),
			zap.Int64("quantity", a.Quantity))
		return NewHTTPError(http.StatusInternalServerError, "stock changed during fulfillment")
	}

	u.logger.Debug("stock deducted",
		zap.Int64("warehouse_id", a.WarehouseID),
		zap.Int64("product_id", productID),
		zap.Int64("quantity", a.Quantity))

	return recordMovement(ctx, r.Inventory(), stockMovement{
		WarehouseID: a.WarehouseID,
		ProductID:   productID,
		Previous:    item.Quantity,
		New:         item.Quantity - a.Quantity,
		Reason:      reason,
		ActorUserID: actorUserID,
		At:          now,
	})
}

// 明細のindexを商品ID順で返す
func itemsInLockOrder(items []model.TransferRequestItem) []int {
	idx := make([]int, len(items))
	for i := range items {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return items[idx[a]].ProductID < items[idx[b]].ProductID
	})
	return idx
}
