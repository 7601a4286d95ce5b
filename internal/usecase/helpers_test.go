package usecase_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"stocknet/internal/domain/model"
	"stocknet/internal/infra/repository/memory"
	"stocknet/internal/usecase"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =====================
// 共通の部品
// =====================

var testNow = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDGen struct{ n atomic.Int64 }

func (g *seqIDGen) NewID() string {
	return fmt.Sprintf("evt-%d", g.n.Add(1))
}

// EventPublisherMock は送ったイベントを記録する
type EventPublisherMock struct{ mock.Mock }

func (m *EventPublisherMock) Publish(ctx context.Context, ev usecase.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *EventPublisherMock) published(typ usecase.EventType) []usecase.Event {
	var out []usecase.Event
	for _, c := range m.Calls {
		if c.Method != "Publish" {
			continue
		}
		ev := c.Arguments.Get(1).(usecase.Event)
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func newPublisherMock() *EventPublisherMock {
	p := &EventPublisherMock{}
	p.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	return p
}

// =====================
// fixture（メモリ実装の上に全usecaseを組む）
// =====================

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	main  *model.Warehouse
	// store_id -> 倉庫
	stores map[int64]model.Warehouse
	pub    *EventPublisherMock

	allocator    *usecase.SourceAllocator
	debts        *usecase.DebtOrderUsecase
	fulfillment  *usecase.FulfillmentUsecase
	transfers    *usecase.TransferRequestUsecase
	inventory    *usecase.InventoryUsecase
	availability *usecase.AvailabilityUsecase
	warehouses   *usecase.WarehouseUsecase
}

const staffUserID int64 = 7

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return buildFixture(t, true)
}

// MAIN倉庫なし（設定ミス）の構成
func newFixtureWithoutMain(t *testing.T) *fixture {
	t.Helper()
	return buildFixture(t, false)
}

func buildFixture(t *testing.T, withMain bool) *fixture {
	t.Helper()

	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  memory.NewStore(),
		stores: map[int64]model.Warehouse{},
		pub:    newPublisherMock(),
	}

	if withMain {
		w, err := f.store.Warehouses().Create(f.ctx, model.Warehouse{Type: model.WarehouseTypeMain})
		require.NoError(t, err)
		f.main = &w
	}
	f.wire()
	return f
}

func (f *fixture) wire() {
	log := zap.NewNop()
	clock := fixedClock{t: testNow}
	idGen := &seqIDGen{}

	f.allocator = usecase.NewSourceAllocator(f.main)
	f.debts = usecase.NewDebtOrderUsecase(f.store, f.store.DebtOrders(), f.allocator, f.pub, idGen, clock, log)
	f.fulfillment = usecase.NewFulfillmentUsecase(f.store, f.allocator, f.debts, f.pub, idGen, clock, log)
	f.transfers = usecase.NewTransferRequestUsecase(
		f.store, f.store.TransferRequests(), f.store.Warehouses(), f.store.Inventory(), f.store.Products(),
		f.fulfillment, f.pub, idGen, clock, log, 1000,
	)
	f.inventory = usecase.NewInventoryUsecase(f.store, f.store.Inventory(), f.store.Products(), f.allocator, f.debts, clock, log)
	f.availability = usecase.NewAvailabilityUsecase(f.store.TransferRequests(), f.store.Inventory(), f.store.Products(), f.allocator, log)
	f.warehouses = usecase.NewWarehouseUsecase(f.store.Warehouses(), log)
}

func (f *fixture) product(sku string) int64 {
	f.t.Helper()
	p := f.store.SeedProduct(model.Product{SKU: sku, Name: "Product " + sku})
	return p.ID
}

func (f *fixture) storeWarehouse(storeID int64) model.Warehouse {
	f.t.Helper()
	if w, ok := f.stores[storeID]; ok {
		return w
	}
	sid := storeID
	w, err := f.store.Warehouses().Create(f.ctx, model.Warehouse{Type: model.WarehouseTypeStore, StoreID: &sid})
	require.NoError(f.t, err)
	f.stores[storeID] = w
	return w
}

// setStock は在庫行を作って数量を入れる（履歴は残さない）
func (f *fixture) setStock(warehouseID, productID, qty int64) {
	f.t.Helper()
	inv := f.store.Inventory()
	item, err := inv.FindItem(f.ctx, warehouseID, productID)
	if err != nil {
		item, err = inv.CreateItem(f.ctx, model.InventoryItem{WarehouseID: warehouseID, ProductID: productID})
		require.NoError(f.t, err)
	}
	ok, err := inv.SetQuantity(f.ctx, item.ID, qty)
	require.NoError(f.t, err)
	require.True(f.t, ok)
}

func (f *fixture) setMainStock(productID, qty int64) {
	f.t.Helper()
	require.NotNil(f.t, f.main)
	f.setStock(f.main.ID, productID, qty)
}

func (f *fixture) item(warehouseID, productID int64) model.InventoryItem {
	f.t.Helper()
	it, err := f.store.Inventory().FindItem(f.ctx, warehouseID, productID)
	require.NoError(f.t, err)
	return it
}

// createRequest は依頼元の店舗倉庫に在庫行を用意してから依頼を作る
func (f *fixture) createRequest(storeID int64, items ...usecase.TransferRequestItemInput) model.TransferRequest {
	f.t.Helper()
	w := f.storeWarehouse(storeID)
	for _, it := range items {
		if _, err := f.store.Inventory().FindItem(f.ctx, w.ID, it.ProductID); err != nil {
			f.setStock(w.ID, it.ProductID, 0)
		}
	}
	tr, err := f.transfers.Create(f.ctx, staffUserID, usecase.CreateTransferRequestInput{StoreID: storeID, Items: items})
	require.NoError(f.t, err)
	return tr
}

func line(productID, qty int64) usecase.TransferRequestItemInput {
	return usecase.TransferRequestItemInput{ProductID: productID, Quantity: qty}
}

func (f *fixture) logsFor(warehouseID, productID int64) []model.InventoryLog {
	f.t.Helper()
	wid, pid := warehouseID, productID
	logs, err := f.inventory.ListLogs(f.ctx, usecase.ListLogsInput{WarehouseID: &wid, ProductID: &pid, Limit: 200})
	require.NoError(f.t, err)
	return logs
}

func (f *fixture) debtFor(transferRequestID int64) model.DebtOrder {
	f.t.Helper()
	list, err := f.debts.List(f.ctx, nil)
	require.NoError(f.t, err)
	for _, d := range list {
		if d.TransferRequestID == transferRequestID {
			return d
		}
	}
	f.t.Fatalf("no debt order for transfer request %d", transferRequestID)
	return model.DebtOrder{}
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %v", err)
	return he.Status
}
