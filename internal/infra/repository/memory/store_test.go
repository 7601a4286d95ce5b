package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItem(t *testing.T, s *Store, warehouseID, productID, qty int64) model.InventoryItem {
	t.Helper()
	ctx := context.Background()
	it, err := s.Inventory().CreateItem(ctx, model.InventoryItem{WarehouseID: warehouseID, ProductID: productID})
	require.NoError(t, err)
	ok, err := s.Inventory().SetQuantity(ctx, it.ID, qty)
	require.NoError(t, err)
	require.True(t, ok)
	it.Quantity = qty
	return it
}

func TestWithinTx_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	it := newItem(t, s, 1, 1, 10)

	err := s.WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Inventory().DecreaseIfAvailable(ctx, it.ID, 4)
		require.NoError(t, err)
		require.True(t, ok)
		return nil
	})
	require.NoError(t, err)

	got, err := s.Inventory().FindItem(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.Quantity)

	boom := errors.New("boom")
	err = s.WithinTx(ctx, func(r repo.TxRepos) error {
		_, err := r.Inventory().DecreaseIfAvailable(ctx, it.ID, 6)
		require.NoError(t, err)
		require.NoError(t, r.Inventory().CreateLog(ctx, model.InventoryLog{WarehouseID: 1, ProductID: 1}))
		//Tx内では変更が見える
		in, err := r.Inventory().FindItem(ctx, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(0), in.Quantity)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err = s.Inventory().FindItem(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.Quantity)
	logs, err := s.Inventory().ListLogs(ctx, repo.InventoryLogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestWithinTx_CanceledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WithinTx(ctx, func(r repo.TxRepos) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

// 同時に減らしても在庫はマイナスにならない
func TestWithinTx_ConcurrentDeductions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	it := newItem(t, s, 1, 1, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithinTx(ctx, func(r repo.TxRepos) error {
				ok, err := r.Inventory().DecreaseIfAvailable(ctx, it.ID, 3)
				if err != nil || !ok {
					return err
				}
				mu.Lock()
				succeeded++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := s.Inventory().FindItem(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 16, succeeded)
	assert.Equal(t, int64(2), got.Quantity)
}

func TestWarehouse_Uniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ws := s.Warehouses()

	_, err := ws.FindMainWarehouse(ctx)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	main, err := ws.Create(ctx, model.Warehouse{Type: model.WarehouseTypeMain})
	require.NoError(t, err)
	_, err = ws.Create(ctx, model.Warehouse{Type: model.WarehouseTypeMain})
	assert.ErrorIs(t, err, repo.ErrDuplicate)

	sid := int64(10)
	store, err := ws.Create(ctx, model.Warehouse{Type: model.WarehouseTypeStore, StoreID: &sid})
	require.NoError(t, err)
	_, err = ws.Create(ctx, model.Warehouse{Type: model.WarehouseTypeStore, StoreID: &sid})
	assert.ErrorIs(t, err, repo.ErrDuplicate)

	got, err := ws.FindMainWarehouse(ctx)
	require.NoError(t, err)
	assert.Equal(t, main.ID, got.ID)

	got, err = ws.FindWarehouseByStore(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, store.ID, got.ID)

	list, err := ws.FindStoreWarehouses(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestInventory_GuardedUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	inv := s.Inventory()
	it := newItem(t, s, 1, 1, 10)

	_, err := inv.CreateItem(ctx, model.InventoryItem{WarehouseID: 1, ProductID: 1})
	assert.ErrorIs(t, err, repo.ErrDuplicate)

	ok, err := inv.Reserve(ctx, it.ID, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	//available = 3
	ok, err = inv.DecreaseIfAvailable(ctx, it.ID, 4)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = inv.Reserve(ctx, it.ID, 4)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = inv.SetQuantity(ctx, it.ID, 6)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = inv.ConsumeReservation(ctx, it.ID, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := inv.FindItem(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Quantity)
	assert.Equal(t, int64(0), got.ReservedQuantity)

	assert.ErrorIs(t, inv.IncreaseQuantity(ctx, 999, 1), repo.ErrNotFound)
}

func TestInventory_ListStockByProduct(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	main, err := s.Warehouses().Create(ctx, model.Warehouse{Type: model.WarehouseTypeMain})
	require.NoError(t, err)
	sid := int64(10)
	store, err := s.Warehouses().Create(ctx, model.Warehouse{Type: model.WarehouseTypeStore, StoreID: &sid})
	require.NoError(t, err)

	newItem(t, s, store.ID, 5, 4)
	newItem(t, s, main.ID, 5, 9)
	newItem(t, s, main.ID, 6, 1)

	stocks, err := s.Inventory().ListStockByProduct(ctx, 5)
	require.NoError(t, err)
	require.Len(t, stocks, 2)
	assert.Equal(t, main.ID, stocks[0].WarehouseID)
	assert.Equal(t, model.WarehouseTypeMain, stocks[0].WarehouseType)
	assert.Equal(t, int64(9), stocks[0].Quantity)
	require.NotNil(t, stocks[1].StoreID)
	assert.Equal(t, int64(10), *stocks[1].StoreID)
}

func TestDebtOrder_OnePerTransferRequest(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	debts := s.DebtOrders()

	d, err := debts.Create(ctx, model.DebtOrder{
		TransferRequestID: 1,
		Status:            model.DebtOrderStatusPending,
		Items:             []model.DebtItem{{ProductID: 3, OwedQuantity: 5}},
	})
	require.NoError(t, err)
	require.Len(t, d.Items, 1)
	assert.Equal(t, d.ID, d.Items[0].DebtOrderID)

	_, err = debts.Create(ctx, model.DebtOrder{TransferRequestID: 1, Status: model.DebtOrderStatusPending})
	assert.ErrorIs(t, err, repo.ErrDuplicate)

	//状態が違えば更新しない
	ok, err := debts.UpdateStatus(ctx, d.ID, model.DebtOrderStatusFulfillable, model.DebtOrderStatusCompleted, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = debts.UpdateStatus(ctx, d.ID, model.DebtOrderStatusPending, model.DebtOrderStatusFulfillable, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, debts.UpdateItemFulfilled(ctx, d.Items[0].ID, 5))
	got, err := debts.FindByTransferRequestID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.DebtOrderStatusFulfillable, got.Status)
	assert.Equal(t, int64(5), got.Items[0].FulfilledQuantity)
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	tr, err := s.TransferRequests().Create(ctx, model.TransferRequest{
		StoreID: 10,
		Status:  model.TransferRequestStatusPending,
		Items:   []model.TransferRequestItem{{ProductID: 1, RequestedQuantity: 3}},
	})
	require.NoError(t, err)

	got, err := s.TransferRequests().FindByID(ctx, tr.ID)
	require.NoError(t, err)
	got.Items[0].FulfilledQuantity = 3

	again, err := s.TransferRequests().FindByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.Items[0].FulfilledQuantity)
}

func TestPaginate(t *testing.T) {
	list := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2, 3, 4, 5}, paginate(list, 0, 0))
	assert.Equal(t, []int{2, 3}, paginate(list, 2, 1))
	assert.Equal(t, []int{5}, paginate(list, 10, 4))
	assert.Equal(t, []int{}, paginate(list, 2, 9))
}
