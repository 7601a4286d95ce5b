package repository

import (
	"context"
	"time"

	"stocknet/internal/domain/model"
)

type TransferRequestFilter struct {
	Status  *model.TransferRequestStatus
	StoreID *int64
	Page    int
	Limit   int
}

type TransferRequestRepository interface {
	//明細ごと作成
	Create(ctx context.Context, tr model.TransferRequest) (model.TransferRequest, error)
	//明細はid順
	FindByID(ctx context.Context, id int64) (model.TransferRequest, error)
	// FindByIDの行ロック版
	LockByID(ctx context.Context, id int64) (model.TransferRequest, error)
	List(ctx context.Context, f TransferRequestFilter) ([]model.TransferRequest, int64, error)
	UpdateStatus(ctx context.Context, id int64, status model.TransferRequestStatus, processedAt *time.Time) error
	UpdateItemFulfilled(ctx context.Context, itemID int64, fulfilled int64) error
}
