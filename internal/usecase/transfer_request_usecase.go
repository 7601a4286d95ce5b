package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"

	"go.uber.org/zap"
)

// TransferRequestUsecase は店舗からの移動依頼（作成・参照・却下・承認）。
// 承認の中身は FulfillmentUsecase。
type TransferRequestUsecase struct {
	tx          repo.TransactionManager
	transfers   repo.TransferRequestRepository
	warehouses  repo.WarehouseRepository
	inventory   repo.InventoryRepository
	catalog     repo.ProductCatalog
	fulfillment *FulfillmentUsecase
	clock       Clock
	events      eventEmitter
	logger      *zap.Logger

	// 1明細あたりの上限
	maxItemQuantity int64
}

// DI
func NewTransferRequestUsecase(
	tx repo.TransactionManager,
	transfers repo.TransferRequestRepository,
	warehouses repo.WarehouseRepository,
	inventory repo.InventoryRepository,
	catalog repo.ProductCatalog,
	fulfillment *FulfillmentUsecase,
	publisher EventPublisher,
	idGen IDGenerator,
	clock Clock,
	logger *zap.Logger,
	maxItemQuantity int64,
) *TransferRequestUsecase {
	return &TransferRequestUsecase{
		tx:              tx,
		transfers:       transfers,
		warehouses:      warehouses,
		inventory:       inventory,
		catalog:         catalog,
		fulfillment:     fulfillment,
		clock:           clock,
		events:          eventEmitter{publisher: publisher, idGen: idGen, clock: clock, logger: logger},
		logger:          logger,
		maxItemQuantity: maxItemQuantity,
	}
}

type TransferRequestItemInput struct {
	ProductID int64
	Quantity  int64
}

type CreateTransferRequestInput struct {
	StoreID int64
	Items   []TransferRequestItemInput
}

type ListTransferRequestsInput struct {
	Status  *model.TransferRequestStatus
	StoreID *int64
	Page    int
	Limit   int
}

type TransferRequestPage struct {
	Items []model.TransferRequest `json:"items"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}

// Create は依頼を作る（PENDING）。
// 依頼する商品は、依頼元の店舗倉庫に在庫行があるものだけ。
func (u *TransferRequestUsecase) Create(ctx context.Context, actorUserID int64, in CreateTransferRequestInput) (model.TransferRequest, error) {
	if actorUserID <= 0 {
		return model.TransferRequest{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := u.validateCreate(in); err != nil {
		return model.TransferRequest{}, err
	}

	wh, err := u.warehouses.FindWarehouseByStore(ctx, in.StoreID)
	if err != nil {
		return model.TransferRequest{}, wrapRepoError(err, "store warehouse not found")
	}

	for _, it := range in.Items {
		if err := u.checkProduct(ctx, wh.ID, it.ProductID); err != nil {
			return model.TransferRequest{}, err
		}
	}

	items := make([]model.TransferRequestItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, model.TransferRequestItem{
			ProductID:         it.ProductID,
			RequestedQuantity: it.Quantity,
		})
	}

	created, err := u.transfers.Create(ctx, model.TransferRequest{
		StoreID:   in.StoreID,
		Status:    model.TransferRequestStatusPending,
		Items:     items,
		CreatedAt: u.clock.Now(),
	})
	if err != nil {
		return model.TransferRequest{}, dbError()
	}

	u.logger.Info("transfer request created",
		zap.Int64("transfer_request_id", created.ID),
		zap.Int64("store_id", created.StoreID),
		zap.Int("items", len(created.Items)),
		zap.Int64("actor_user_id", actorUserID))
	return created, nil
}

func (u *TransferRequestUsecase) validateCreate(in CreateTransferRequestInput) error {
	if in.StoreID <= 0 {
		return validationError("invalid store_id")
	}
	if len(in.Items) == 0 {
		return validationError("items are required")
	}

	seen := make(map[int64]struct{}, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return validationError("invalid product_id")
		}
		if it.Quantity < 1 {
			return validationError("invalid quantity")
		}
		if u.maxItemQuantity > 0 && it.Quantity > u.maxItemQuantity {
			return validationError(fmt.Sprintf("quantity exceeds limit (%d)", u.maxItemQuantity))
		}
		//同じ商品は1明細にまとめてもらう
		if _, ok := seen[it.ProductID]; ok {
			return validationError("duplicate product_id")
		}
		seen[it.ProductID] = struct{}{}
	}
	return nil
}

// 商品がカタログにあり、かつ依頼元の店舗倉庫で扱っているか
func (u *TransferRequestUsecase) checkProduct(ctx context.Context, storeWarehouseID, productID int64) error {
	ok, err := u.catalog.Exists(ctx, productID)
	if err != nil {
		return dbError()
	}
	if !ok {
		return notFoundError(fmt.Sprintf("product %d not found", productID))
	}

	_, err = u.inventory.FindItem(ctx, storeWarehouseID, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return conflictError(fmt.Sprintf("product %d is not stocked by the requesting store", productID))
	}
	if err != nil {
		return dbError()
	}
	return nil
}

func (u *TransferRequestUsecase) Get(ctx context.Context, id int64) (model.TransferRequest, error) {
	if id <= 0 {
		return model.TransferRequest{}, validationError("invalid id")
	}
	tr, err := u.transfers.FindByID(ctx, id)
	if err != nil {
		return model.TransferRequest{}, wrapRepoError(err, "transfer request not found")
	}
	return tr, nil
}

func (u *TransferRequestUsecase) List(ctx context.Context, in ListTransferRequestsInput) (TransferRequestPage, error) {
	//page/limitの最低限チェック
	if in.Page < 1 {
		return TransferRequestPage{}, validationError("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return TransferRequestPage{}, validationError("invalid limit")
	}
	if in.Status != nil && !in.Status.Valid() {
		return TransferRequestPage{}, validationError("invalid status")
	}

	list, total, err := u.transfers.List(ctx, repo.TransferRequestFilter{
		Status:  in.Status,
		StoreID: in.StoreID,
		Page:    in.Page,
		Limit:   in.Limit,
	})
	if err != nil {
		return TransferRequestPage{}, dbError()
	}
	if list == nil {
		list = []model.TransferRequest{}
	}
	return TransferRequestPage{Items: list, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// Reject はPENDINGの依頼を却下する。在庫は触らない。
func (u *TransferRequestUsecase) Reject(ctx context.Context, actorUserID int64, id int64, reason string) (model.TransferRequest, error) {
	if actorUserID <= 0 {
		return model.TransferRequest{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if id <= 0 {
		return model.TransferRequest{}, validationError("invalid id")
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > 255 {
		return model.TransferRequest{}, validationError("reason is too long")
	}

	var out model.TransferRequest
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		tr, err := r.TransferRequests().LockByID(ctx, id)
		if err != nil {
			return wrapRepoError(err, "transfer request not found")
		}
		if !tr.Status.CanTransitionTo(model.TransferRequestStatusRejected) {
			return conflictError(fmt.Sprintf("transfer request is %s, not PENDING", tr.Status))
		}

		now := u.clock.Now()
		if err := r.TransferRequests().UpdateStatus(ctx, tr.ID, model.TransferRequestStatusRejected, &now); err != nil {
			return dbError()
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionRejectTransferRequest,
			ResourceType: model.AuditResourceTransferRequest,
			ResourceID:   tr.ID,
			BeforeJSON:   fmt.Sprintf(`{"status":%q}`, tr.Status),
			AfterJSON:    fmt.Sprintf(`{"status":%q,"reason":%q}`, model.TransferRequestStatusRejected, reason),
			CreatedAt:    now,
		}); err != nil {
			return dbError()
		}

		tr.Status = model.TransferRequestStatusRejected
		tr.ProcessedAt = &now
		out = tr
		return nil
	})
	if err != nil {
		return model.TransferRequest{}, err
	}

	u.logger.Info("transfer request rejected",
		zap.Int64("transfer_request_id", out.ID),
		zap.Int64("actor_user_id", actorUserID))
	u.events.emit(ctx, EventTransferRequestRejected, TransferRequestRejectedPayload{
		TransferRequestID: out.ID,
		StoreID:           out.StoreID,
		Reason:            reason,
	})
	return out, nil
}

// Approve は承認＝出庫。
func (u *TransferRequestUsecase) Approve(ctx context.Context, actorUserID int64, id int64) (FulfillmentResult, error) {
	if id <= 0 {
		return FulfillmentResult{}, validationError("invalid id")
	}
	return u.fulfillment.Fulfill(ctx, actorUserID, id)
}
