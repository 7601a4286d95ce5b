package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"

	"go.uber.org/zap"
)

// DebtOrderUsecase は不足分の債務（作成・消化可能チェック・消化）を扱う。
type DebtOrderUsecase struct {
	tx        repo.TransactionManager
	debts     repo.DebtOrderRepository
	allocator *SourceAllocator
	clock     Clock
	events    eventEmitter
	logger    *zap.Logger
}

// DI
func NewDebtOrderUsecase(
	tx repo.TransactionManager,
	debts repo.DebtOrderRepository,
	allocator *SourceAllocator,
	publisher EventPublisher,
	idGen IDGenerator,
	clock Clock,
	logger *zap.Logger,
) *DebtOrderUsecase {
	return &DebtOrderUsecase{
		tx:        tx,
		debts:     debts,
		allocator: allocator,
		clock:     clock,
		events:    eventEmitter{publisher: publisher, idGen: idGen, clock: clock, logger: logger},
		logger:    logger,
	}
}

// CreateDebtOrder は不足分（商品ID→不足数）から債務を作る。
// 同じ依頼に既に債務があれば409。
func (u *DebtOrderUsecase) CreateDebtOrder(ctx context.Context, transferRequestID int64, shortageByProduct map[int64]int64) (model.DebtOrder, error) {
	if transferRequestID <= 0 {
		return model.DebtOrder{}, validationError("invalid transfer_request_id")
	}

	var out model.DebtOrder
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.TransferRequests().FindByID(ctx, transferRequestID); err != nil {
			return wrapRepoError(err, "transfer request not found")
		}

		d, err := u.createInTx(ctx, r, transferRequestID, shortageByProduct)
		if err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return model.DebtOrder{}, err
	}

	u.emitDebt(ctx, EventDebtOrderCreated, out)
	return out, nil
}

// Fulfillmentと共有するTx内の作成処理
func (u *DebtOrderUsecase) createInTx(ctx context.Context, r repo.TxRepos, transferRequestID int64, shortageByProduct map[int64]int64) (model.DebtOrder, error) {
	if len(shortageByProduct) == 0 {
		return model.DebtOrder{}, validationError("no shortage")
	}

	productIDs := make([]int64, 0, len(shortageByProduct))
	for pid, q := range shortageByProduct {
		if pid <= 0 {
			return model.DebtOrder{}, validationError("invalid product_id")
		}
		if q <= 0 {
			return model.DebtOrder{}, validationError("shortage must be > 0")
		}
		productIDs = append(productIDs, pid)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	//1依頼につき債務は1件まで
	_, err := r.DebtOrders().FindByTransferRequestID(ctx, transferRequestID)
	if err == nil {
		return model.DebtOrder{}, conflictError("debt order already exists for transfer request")
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return model.DebtOrder{}, dbError()
	}

	items := make([]model.DebtItem, 0, len(productIDs))
	for _, pid := range productIDs {
		items = append(items, model.DebtItem{
			ProductID:         pid,
			OwedQuantity:      shortageByProduct[pid],
			FulfilledQuantity: 0,
		})
	}

	created, err := r.DebtOrders().Create(ctx, model.DebtOrder{
		TransferRequestID: transferRequestID,
		Status:            model.DebtOrderStatusPending,
		Items:             items,
		CreatedAt:         u.clock.Now(),
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return model.DebtOrder{}, conflictError("debt order already exists for transfer request")
	}
	if err != nil {
		return model.DebtOrder{}, dbError()
	}

	u.logger.Info("debt order created",
		zap.Int64("debt_order_id", created.ID),
		zap.Int64("transfer_request_id", transferRequestID),
		zap.Int("items", len(created.Items)))
	return created, nil
}

// CheckFulfillableDebtOrders はPENDINGの債務を古い順に見て、
// 全明細をMAIN倉庫のavailableで賄えるものだけFULFILLABLEにする。
// FULFILLABLEにした分はMAIN倉庫で引当（reserved_quantity）して、新しい依頼に取られないようにする。
func (u *DebtOrderUsecase) CheckFulfillableDebtOrders(ctx context.Context) ([]model.DebtOrder, error) {
	main, ok := u.allocator.MainWarehouse()
	if !ok {
		u.logger.Error("main warehouse is not configured")
		return nil, configurationError("main warehouse is not configured")
	}

	var flipped []model.DebtOrder
	examined := 0

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		flipped = nil
		examined = 0

		pending := model.DebtOrderStatusPending
		orders, err := r.DebtOrders().ListByStatus(ctx, &pending)
		if err != nil {
			return dbError()
		}

		//対象商品のMAIN在庫行を商品ID順に先にロックしておく
		if err := u.lockMainRows(ctx, r, main.ID, orders); err != nil {
			return err
		}

		for _, d := range orders {
			if !d.Status.CanTransitionTo(model.DebtOrderStatusFulfillable) {
				continue
			}
			examined++

			rows, covered, err := u.coveredByMain(ctx, r, main.ID, d)
			if err != nil {
				return err
			}
			//1明細でも足りなければPENDINGのまま（書き込みしない）
			if !covered {
				continue
			}

			updated, err := r.DebtOrders().UpdateStatus(ctx, d.ID, model.DebtOrderStatusPending, model.DebtOrderStatusFulfillable, nil)
			if err != nil {
				return dbError()
			}
			if !updated {
				continue
			}

			for _, pid := range sortedKeys(rows) {
				row := rows[pid]
				reserved, err := r.Inventory().Reserve(ctx, row.item.ID, row.need)
				if err != nil {
					return dbError()
				}
				if !reserved {
					return NewHTTPError(http.StatusInternalServerError, "reservation failed")
				}
			}

			d.Status = model.DebtOrderStatusFulfillable
			flipped = append(flipped, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.logger.Info("debt order sweep finished",
		zap.Int("examined", examined),
		zap.Int("fulfillable", len(flipped)))

	for _, d := range flipped {
		u.emitDebt(ctx, EventDebtOrderFulfillable, d)
	}
	if flipped == nil {
		flipped = []model.DebtOrder{}
	}
	return flipped, nil
}

// MAIN倉庫の入荷フック
func (u *DebtOrderUsecase) OnMainWarehouseRestock(ctx context.Context, productID int64) error {
	u.logger.Info("main warehouse restocked, running debt order sweep", zap.Int64("product_id", productID))
	_, err := u.CheckFulfillableDebtOrders(ctx)
	return err
}

func (u *DebtOrderUsecase) lockMainRows(ctx context.Context, r repo.TxRepos, mainID int64, orders []model.DebtOrder) error {
	products := map[int64]int64{}
	for _, d := range orders {
		for _, it := range d.Items {
			if it.Remaining() > 0 {
				products[it.ProductID]++
			}
		}
	}
	for _, pid := range sortedKeys(products) {
		_, err := r.Inventory().LockItem(ctx, mainID, pid)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return dbError()
		}
	}
	return nil
}

type mainStockNeed struct {
	item model.InventoryItem
	need int64
}

// 全明細がMAIN倉庫で賄えるか。同じ商品の明細は合算する。
func (u *DebtOrderUsecase) coveredByMain(ctx context.Context, r repo.TxRepos, mainID int64, d model.DebtOrder) (map[int64]mainStockNeed, bool, error) {
	need := map[int64]int64{}
	for _, it := range d.Items {
		if rem := it.Remaining(); rem > 0 {
			need[it.ProductID] += rem
		}
	}

	rows := make(map[int64]mainStockNeed, len(need))
	for _, pid := range sortedKeys(need) {
		item, err := r.Inventory().LockItem(ctx, mainID, pid)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, dbError()
		}
		if item.Available() < need[pid] {
			return nil, false, nil
		}
		rows[pid] = mainStockNeed{item: item, need: need[pid]}
	}
	return rows, true, nil
}

// Redeem はFULFILLABLEの債務をMAIN倉庫から出庫してCOMPLETEDにする。
// 全明細を出せる場合だけ実行する（一部だけの出庫はしない）。
func (u *DebtOrderUsecase) Redeem(ctx context.Context, actorUserID int64, debtOrderID int64) (model.DebtOrder, error) {
	if actorUserID <= 0 {
		return model.DebtOrder{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if debtOrderID <= 0 {
		return model.DebtOrder{}, validationError("invalid id")
	}
	main, ok := u.allocator.MainWarehouse()
	if !ok {
		u.logger.Error("main warehouse is not configured")
		return model.DebtOrder{}, configurationError("main warehouse is not configured")
	}

	var out model.DebtOrder
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		d, err := r.DebtOrders().LockByID(ctx, debtOrderID)
		if err != nil {
			return wrapRepoError(err, "debt order not found")
		}
		if !d.Status.CanTransitionTo(model.DebtOrderStatusCompleted) {
			return conflictError("debt order is not fulfillable")
		}

		tr, err := r.TransferRequests().LockByID(ctx, d.TransferRequestID)
		if err != nil {
			return wrapRepoError(err, "transfer request not found")
		}

		//先に全明細を確認
		need := map[int64]int64{}
		for _, it := range d.Items {
			if rem := it.Remaining(); rem > 0 {
				need[it.ProductID] += rem
			}
		}
		items := map[int64]model.InventoryItem{}
		for _, pid := range sortedKeys(need) {
			inv, err := r.Inventory().LockItem(ctx, main.ID, pid)
			if errors.Is(err, repo.ErrNotFound) {
				return conflictError("main warehouse cannot cover debt order")
			}
			if err != nil {
				return dbError()
			}
			if inv.Quantity < need[pid] || inv.ReservedQuantity < need[pid] {
				return conflictError("main warehouse cannot cover debt order")
			}
			items[pid] = inv
		}

		now := u.clock.Now()
		redeemed := map[int64]int64{}

		for i, it := range d.Items {
			rem := it.Remaining()
			if rem == 0 {
				continue
			}
			inv := items[it.ProductID]

			ok, err := r.Inventory().ConsumeReservation(ctx, inv.ID, rem)
			if err != nil {
				return dbError()
			}
			if !ok {
				return conflictError("main warehouse cannot cover debt order")
			}

			if err := recordMovement(ctx, r.Inventory(), stockMovement{
				WarehouseID: main.ID,
				ProductID:   it.ProductID,
				Previous:    inv.Quantity,
				New:         inv.Quantity - rem,
				Reason:      debtOrderReason(d.ID),
				ActorUserID: actorUserID,
				At:          now,
			}); err != nil {
				return dbError()
			}
			inv.Quantity -= rem
			inv.ReservedQuantity -= rem
			items[it.ProductID] = inv

			if err := r.DebtOrders().UpdateItemFulfilled(ctx, it.ID, it.OwedQuantity); err != nil {
				return dbError()
			}
			d.Items[i].FulfilledQuantity = it.OwedQuantity
			redeemed[it.ProductID] += rem
		}

		//依頼明細にも反映
		for i, tri := range tr.Items {
			add := min(redeemed[tri.ProductID], tri.Shortage())
			if add == 0 {
				continue
			}
			newFulfilled := tri.FulfilledQuantity + add
			if err := r.TransferRequests().UpdateItemFulfilled(ctx, tri.ID, newFulfilled); err != nil {
				return dbError()
			}
			tr.Items[i].FulfilledQuantity = newFulfilled
			redeemed[tri.ProductID] -= add
		}

		updated, err := r.DebtOrders().UpdateStatus(ctx, d.ID, model.DebtOrderStatusFulfillable, model.DebtOrderStatusCompleted, &now)
		if err != nil {
			return dbError()
		}
		if !updated {
			return conflictError("debt order is not fulfillable")
		}
		d.Status = model.DebtOrderStatusCompleted
		d.FulfilledAt = &now

		if tr.Status.CanTransitionTo(model.TransferRequestStatusCompleted) && tr.FullyFulfilled() {
			if err := r.TransferRequests().UpdateStatus(ctx, tr.ID, model.TransferRequestStatusCompleted, &now); err != nil {
				return dbError()
			}
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionRedeemDebtOrder,
			ResourceType: model.AuditResourceDebtOrder,
			ResourceID:   d.ID,
			BeforeJSON:   fmt.Sprintf(`{"status":%q}`, model.DebtOrderStatusFulfillable),
			AfterJSON:    fmt.Sprintf(`{"status":%q}`, model.DebtOrderStatusCompleted),
			CreatedAt:    now,
		}); err != nil {
			return dbError()
		}

		out = d
		return nil
	})
	if err != nil {
		return model.DebtOrder{}, err
	}

	u.logger.Info("debt order redeemed",
		zap.Int64("debt_order_id", out.ID),
		zap.Int64("transfer_request_id", out.TransferRequestID),
		zap.Int64("actor_user_id", actorUserID))
	u.emitDebt(ctx, EventDebtOrderCompleted, out)
	return out, nil
}

// 債務一覧（statusがnilなら全件）
func (u *DebtOrderUsecase) List(ctx context.Context, status *model.DebtOrderStatus) ([]model.DebtOrder, error) {
	if status != nil && !status.Valid() {
		return []model.DebtOrder{}, validationError("invalid status")
	}
	list, err := u.debts.ListByStatus(ctx, status)
	if err != nil {
		return []model.DebtOrder{}, dbError()
	}
	return list, nil
}

func (u *DebtOrderUsecase) Get(ctx context.Context, id int64) (model.DebtOrder, error) {
	if id <= 0 {
		return model.DebtOrder{}, validationError("invalid id")
	}
	d, err := u.debts.FindByID(ctx, id)
	if err != nil {
		return model.DebtOrder{}, wrapRepoError(err, "debt order not found")
	}
	return d, nil
}

func (u *DebtOrderUsecase) emitDebt(ctx context.Context, typ EventType, d model.DebtOrder) {
	u.events.emit(ctx, typ, DebtOrderPayload{
		DebtOrderID:       d.ID,
		TransferRequestID: d.TransferRequestID,
		Status:            string(d.Status),
	})
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

var _ RestockListener = (*DebtOrderUsecase)(nil)
