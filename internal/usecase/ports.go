package usecase

import (
	"context"
	"time"
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// 外部（通知・配送サービス）へ結果を流す。
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// MAIN倉庫の入荷通知を受ける側
type RestockListener interface {
	OnMainWarehouseRestock(ctx context.Context, productID int64) error
}
