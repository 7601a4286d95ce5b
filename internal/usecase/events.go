package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type EventType string

const (
	EventTransferRequestFulfilled EventType = "transfer_request.fulfilled"
	EventTransferRequestRejected  EventType = "transfer_request.rejected"
	EventDebtOrderCreated         EventType = "debt_order.created"
	EventDebtOrderFulfillable     EventType = "debt_order.fulfillable"
	EventDebtOrderCompleted       EventType = "debt_order.completed"
)

type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// イベント送信を失敗させない版。commit後に呼ぶ。
type eventEmitter struct {
	publisher EventPublisher
	idGen     IDGenerator
	clock     Clock
	logger    *zap.Logger
}

func (e eventEmitter) emit(ctx context.Context, typ EventType, payload interface{}) {
	if e.publisher == nil {
		return
	}
	ev := Event{
		ID:         e.idGen.NewID(),
		Type:       typ,
		OccurredAt: e.clock.Now(),
		Payload:    payload,
	}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		e.logger.Warn("event publish failed",
			zap.String("event_type", string(typ)),
			zap.String("event_id", ev.ID),
			zap.Error(err))
	}
}

type TransferRequestFulfilledPayload struct {
	TransferRequestID int64  `json:"transfer_request_id"`
	StoreID           int64  `json:"store_id"`
	Status            string `json:"status"`
	FullyFulfilled    bool   `json:"fully_fulfilled"`
	DebtOrderID       *int64 `json:"debt_order_id,omitempty"`
}

type TransferRequestRejectedPayload struct {
	TransferRequestID int64  `json:"transfer_request_id"`
	StoreID           int64  `json:"store_id"`
	Reason            string `json:"reason"`
}

type DebtOrderPayload struct {
	DebtOrderID       int64  `json:"debt_order_id"`
	TransferRequestID int64  `json:"transfer_request_id"`
	Status            string `json:"status"`
}
