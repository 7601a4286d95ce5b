package repository

import (
	"context"
	"time"

	"stocknet/internal/domain/model"
)

type DebtOrderRepository interface {
	//明細ごと作成。同じtransfer_request_idがあればErrDuplicate
	Create(ctx context.Context, d model.DebtOrder) (model.DebtOrder, error)
	FindByID(ctx context.Context, id int64) (model.DebtOrder, error)
	LockByID(ctx context.Context, id int64) (model.DebtOrder, error)
	FindByTransferRequestID(ctx context.Context, transferRequestID int64) (model.DebtOrder, error)

	// statusがnilなら全件。古い順（created_at, id）
	ListByStatus(ctx context.Context, status *model.DebtOrderStatus) ([]model.DebtOrder, error)

	// fromのときだけtoへ更新（更新できたらtrue）
	UpdateStatus(ctx context.Context, id int64, from model.DebtOrderStatus, to model.DebtOrderStatus, fulfilledAt *time.Time) (bool, error)
	UpdateItemFulfilled(ctx context.Context, itemID int64, fulfilled int64) error
}
