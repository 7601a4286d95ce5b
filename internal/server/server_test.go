package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"stocknet/internal/config"
	"stocknet/internal/domain/model"
	"stocknet/internal/handler"
	"stocknet/internal/infra/repository/memory"
	"stocknet/internal/server"
	"stocknet/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "server-test-secret"

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }

type TestClient struct {
	BaseURL string
	HTTP    *http.Client
}

// testApp はメモリ実装で全部組んだサーバー
type testApp struct {
	client *TestClient
	store  *memory.Store
	main   model.Warehouse
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()
	clock := usecase.SystemClock{}
	cfg := config.Config{JWTSecret: testSecret, MaxItemQuantity: 1000}

	st := memory.NewStore()
	warehouseUC := usecase.NewWarehouseUsecase(st.Warehouses(), log)
	main, err := warehouseUC.LoadMainWarehouse(ctx, true)
	require.NoError(t, err)

	allocator := usecase.NewSourceAllocator(main)
	debtUC := usecase.NewDebtOrderUsecase(st, st.DebtOrders(), allocator, nil, uuidGenerator{}, clock, log)
	fulfillUC := usecase.NewFulfillmentUsecase(st, allocator, debtUC, nil, uuidGenerator{}, clock, log)
	availabilityUC := usecase.NewAvailabilityUsecase(st.TransferRequests(), st.Inventory(), st.Products(), allocator, log)
	transferUC := usecase.NewTransferRequestUsecase(
		st, st.TransferRequests(), st.Warehouses(), st.Inventory(), st.Products(),
		fulfillUC, nil, uuidGenerator{}, clock, log, cfg.MaxItemQuantity,
	)
	inventoryUC := usecase.NewInventoryUsecase(st, st.Inventory(), st.Products(), allocator, debtUC, clock, log)

	e := server.New(cfg, log, server.Handlers{
		TransferRequests: handler.NewTransferRequestHandler(transferUC, availabilityUC),
		DebtOrders:       handler.NewDebtOrderHandler(debtUC),
		Inventory:        handler.NewInventoryHandler(inventoryUC, usecase.NewAuditLogUsecase(st.AuditLogs())),
		Warehouses:       handler.NewWarehouseHandler(warehouseUC),
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return &testApp{
		client: &TestClient{BaseURL: srv.URL, HTTP: &http.Client{Timeout: 10 * time.Second}},
		store:  st,
		main:   *main,
	}
}

func staffToken(t *testing.T) string {
	t.Helper()
	return sign(t, jwt.MapClaims{"sub": "7", "role": "STAFF", "exp": time.Now().Add(time.Hour).Unix()})
}

func storeToken(t *testing.T, storeID int64) string {
	t.Helper()
	return sign(t, jwt.MapClaims{"sub": "50", "role": "STORE", "store_id": storeID, "exp": time.Now().Add(time.Hour).Unix()})
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (c *TestClient) doJSON(t *testing.T, method, path, token string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func requireStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	require.Equal(t, want, resp.StatusCode, "body=%s", string(body))
}

func mustDecode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), "body=%s", string(body))
	return v
}

func toStr(v int64) string {
	return strconv.FormatInt(v, 10)
}

// 店舗倉庫と商品と在庫を用意する
func (a *testApp) seed(t *testing.T, storeID int64, sku string, mainQty int64) int64 {
	t.Helper()
	ctx := context.Background()
	p := a.store.SeedProduct(model.Product{SKU: sku, Name: sku})

	w, err := a.store.Warehouses().FindWarehouseByStore(ctx, storeID)
	if err != nil {
		sid := storeID
		w, err = a.store.Warehouses().Create(ctx, model.Warehouse{Type: model.WarehouseTypeStore, StoreID: &sid})
		require.NoError(t, err)
	}
	_, err = a.store.Inventory().CreateItem(ctx, model.InventoryItem{WarehouseID: w.ID, ProductID: p.ID})
	require.NoError(t, err)

	item, err := a.store.Inventory().CreateItem(ctx, model.InventoryItem{WarehouseID: a.main.ID, ProductID: p.ID})
	require.NoError(t, err)
	ok, err := a.store.Inventory().SetQuantity(ctx, item.ID, mainQty)
	require.NoError(t, err)
	require.True(t, ok)
	return p.ID
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.client.doJSON(t, http.MethodGet, "/healthz", "", nil)

	requireStatus(t, resp, http.StatusOK, body)
}

func TestAuthRequired(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.client.doJSON(t, http.MethodGet, "/transfer-requests", "", nil)
	requireStatus(t, resp, http.StatusUnauthorized, body)

	resp, body = app.client.doJSON(t, http.MethodGet, "/debt-orders", "garbage", nil)
	requireStatus(t, resp, http.StatusUnauthorized, body)
}

func TestTransferRequestFlow_PartialThenRedeem(t *testing.T) {
	app := newTestApp(t)
	staff := staffToken(t)
	p := app.seed(t, 10, "SKU-1", 10)

	//作成（STOREロール、store_idはトークンから）
	resp, body := app.client.doJSON(t, http.MethodPost, "/transfer-requests", storeToken(t, 10), handler.CreateTransferRequestRequest{
		Items: []handler.TransferRequestItemRequest{{ProductID: p, Quantity: 30}},
	})
	requireStatus(t, resp, http.StatusCreated, body)
	tr := mustDecode[model.TransferRequest](t, body)
	assert.Equal(t, int64(10), tr.StoreID)
	assert.Equal(t, model.TransferRequestStatusPending, tr.Status)

	//プレビュー
	resp, body = app.client.doJSON(t, http.MethodGet, "/transfer-requests/"+toStr(tr.ID)+"/availability", staff, nil)
	requireStatus(t, resp, http.StatusOK, body)
	preview := mustDecode[usecase.AvailabilityCheckResult](t, body)
	assert.Equal(t, int64(20), preview.TotalShortage)
	assert.False(t, preview.CanFullyFulfill)

	//承認 -> PARTIAL + 債務
	resp, body = app.client.doJSON(t, http.MethodPost, "/transfer-requests/"+toStr(tr.ID)+"/approve", staff, nil)
	requireStatus(t, resp, http.StatusOK, body)
	res := mustDecode[usecase.FulfillmentResult](t, body)
	assert.False(t, res.FullyFulfilled)
	assert.Equal(t, model.TransferRequestStatusPartial, res.NewStatus)
	require.NotNil(t, res.DebtOrderID)

	//もう一度承認 -> 409
	resp, body = app.client.doJSON(t, http.MethodPost, "/transfer-requests/"+toStr(tr.ID)+"/approve", staff, nil)
	requireStatus(t, resp, http.StatusConflict, body)

	//入荷で債務がFULFILLABLEになる
	resp, body = app.client.doJSON(t, http.MethodPost, "/inventory/main/restock", staff, handler.RestockRequest{ProductID: p, Quantity: 20})
	requireStatus(t, resp, http.StatusOK, body)

	resp, body = app.client.doJSON(t, http.MethodGet, "/debt-orders?status=FULFILLABLE", staff, nil)
	requireStatus(t, resp, http.StatusOK, body)
	debts := mustDecode[[]model.DebtOrder](t, body)
	require.Len(t, debts, 1)
	assert.Equal(t, *res.DebtOrderID, debts[0].ID)

	resp, body = app.client.doJSON(t, http.MethodPost, "/debt-orders/"+toStr(*res.DebtOrderID)+"/redeem", staff, nil)
	requireStatus(t, resp, http.StatusOK, body)
	d := mustDecode[model.DebtOrder](t, body)
	assert.Equal(t, model.DebtOrderStatusCompleted, d.Status)

	resp, body = app.client.doJSON(t, http.MethodGet, "/transfer-requests/"+toStr(tr.ID), storeToken(t, 10), nil)
	requireStatus(t, resp, http.StatusOK, body)
	assert.Equal(t, model.TransferRequestStatusCompleted, mustDecode[model.TransferRequest](t, body).Status)

	//在庫履歴: 承認・入荷・債務消化
	resp, body = app.client.doJSON(t, http.MethodGet, "/inventory/logs?product_id="+toStr(p), staff, nil)
	requireStatus(t, resp, http.StatusOK, body)
	assert.Len(t, mustDecode[[]model.InventoryLog](t, body), 3)

	resp, body = app.client.doJSON(t, http.MethodGet, "/audit-logs?action=REDEEM_DEBT_ORDER", staff, nil)
	requireStatus(t, resp, http.StatusOK, body)
	assert.Len(t, mustDecode[[]model.AuditLog](t, body), 1)

	//対象ごとの履歴
	resp, body = app.client.doJSON(t, http.MethodGet, "/audit-logs/transfer_request/"+toStr(tr.ID), staff, nil)
	requireStatus(t, resp, http.StatusOK, body)
	trail := mustDecode[[]model.AuditLog](t, body)
	require.Len(t, trail, 1)
	assert.Equal(t, model.AuditActionApproveTransferRequest, trail[0].Action)

	resp, body = app.client.doJSON(t, http.MethodGet, "/audit-logs/debt_order/"+toStr(*res.DebtOrderID), staff, nil)
	requireStatus(t, resp, http.StatusOK, body)
	trail = mustDecode[[]model.AuditLog](t, body)
	require.Len(t, trail, 1)
	assert.Equal(t, model.AuditActionRedeemDebtOrder, trail[0].Action)
}

func TestStoreRoleIsScopedToOwnStore(t *testing.T) {
	app := newTestApp(t)
	p := app.seed(t, 10, "SKU-1", 5)
	app.seed(t, 20, "SKU-2", 5)

	//他店舗のstore_idでは作れない
	resp, body := app.client.doJSON(t, http.MethodPost, "/transfer-requests", storeToken(t, 20), handler.CreateTransferRequestRequest{
		StoreID: 10,
		Items:   []handler.TransferRequestItemRequest{{ProductID: p, Quantity: 1}},
	})
	requireStatus(t, resp, http.StatusForbidden, body)

	resp, body = app.client.doJSON(t, http.MethodPost, "/transfer-requests", storeToken(t, 10), handler.CreateTransferRequestRequest{
		Items: []handler.TransferRequestItemRequest{{ProductID: p, Quantity: 1}},
	})
	requireStatus(t, resp, http.StatusCreated, body)
	tr := mustDecode[model.TransferRequest](t, body)

	//他店舗からは見えない
	resp, body = app.client.doJSON(t, http.MethodGet, "/transfer-requests/"+toStr(tr.ID), storeToken(t, 20), nil)
	requireStatus(t, resp, http.StatusNotFound, body)

	resp, body = app.client.doJSON(t, http.MethodGet, "/transfer-requests?store_id=10", storeToken(t, 20), nil)
	requireStatus(t, resp, http.StatusOK, body)
	page := mustDecode[usecase.TransferRequestPage](t, body)
	assert.Equal(t, int64(0), page.Total)

	//承認はスタッフのみ
	resp, body = app.client.doJSON(t, http.MethodPost, "/transfer-requests/"+toStr(tr.ID)+"/approve", storeToken(t, 10), nil)
	requireStatus(t, resp, http.StatusForbidden, body)

	resp, body = app.client.doJSON(t, http.MethodPost, "/inventory/main/restock", storeToken(t, 10), handler.RestockRequest{ProductID: p, Quantity: 1})
	requireStatus(t, resp, http.StatusForbidden, body)
}

func TestDebtOrdersAreStaffOnly(t *testing.T) {
	app := newTestApp(t)
	staff := staffToken(t)
	p := app.seed(t, 10, "SKU-1", 1)

	resp, body := app.client.doJSON(t, http.MethodPost, "/transfer-requests", storeToken(t, 10), handler.CreateTransferRequestRequest{
		Items: []handler.TransferRequestItemRequest{{ProductID: p, Quantity: 4}},
	})
	requireStatus(t, resp, http.StatusCreated, body)
	tr := mustDecode[model.TransferRequest](t, body)

	resp, body = app.client.doJSON(t, http.MethodPost, "/transfer-requests/"+toStr(tr.ID)+"/approve", staff, nil)
	requireStatus(t, resp, http.StatusOK, body)
	res := mustDecode[usecase.FulfillmentResult](t, body)
	require.NotNil(t, res.DebtOrderID)
	debtPath := "/debt-orders/" + toStr(*res.DebtOrderID)

	//依頼元の店舗でも債務は見えない
	for _, store := range []int64{10, 20} {
		resp, body = app.client.doJSON(t, http.MethodGet, "/debt-orders", storeToken(t, store), nil)
		requireStatus(t, resp, http.StatusForbidden, body)
		resp, body = app.client.doJSON(t, http.MethodGet, debtPath, storeToken(t, store), nil)
		requireStatus(t, resp, http.StatusForbidden, body)
	}

	resp, body = app.client.doJSON(t, http.MethodGet, "/debt-orders", staff, nil)
	requireStatus(t, resp, http.StatusOK, body)
	assert.Len(t, mustDecode[[]model.DebtOrder](t, body), 1)
	resp, body = app.client.doJSON(t, http.MethodGet, debtPath, staff, nil)
	requireStatus(t, resp, http.StatusOK, body)
}

func TestRejectTransferRequest(t *testing.T) {
	app := newTestApp(t)
	staff := staffToken(t)
	p := app.seed(t, 10, "SKU-1", 5)

	resp, body := app.client.doJSON(t, http.MethodPost, "/transfer-requests", staff, handler.CreateTransferRequestRequest{
		StoreID: 10,
		Items:   []handler.TransferRequestItemRequest{{ProductID: p, Quantity: 2}},
	})
	requireStatus(t, resp, http.StatusCreated, body)
	tr := mustDecode[model.TransferRequest](t, body)

	resp, body = app.client.doJSON(t, http.MethodPost, "/transfer-requests/"+toStr(tr.ID)+"/reject", staff, handler.RejectTransferRequestRequest{Reason: "wrong store"})
	requireStatus(t, resp, http.StatusOK, body)
	assert.Equal(t, model.TransferRequestStatusRejected, mustDecode[model.TransferRequest](t, body).Status)

	resp, body = app.client.doJSON(t, http.MethodPost, "/transfer-requests/"+toStr(tr.ID)+"/approve", staff, nil)
	requireStatus(t, resp, http.StatusConflict, body)
}

func TestValidationErrors(t *testing.T) {
	app := newTestApp(t)
	staff := staffToken(t)
	p := app.seed(t, 10, "SKU-1", 5)

	cases := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"zero quantity", http.MethodPost, "/transfer-requests", handler.CreateTransferRequestRequest{StoreID: 10, Items: []handler.TransferRequestItemRequest{{ProductID: p, Quantity: 0}}}, http.StatusBadRequest},
		{"unknown product", http.MethodPost, "/transfer-requests", handler.CreateTransferRequestRequest{StoreID: 10, Items: []handler.TransferRequestItemRequest{{ProductID: 999, Quantity: 1}}}, http.StatusNotFound},
		{"bad id", http.MethodGet, "/transfer-requests/abc", nil, http.StatusBadRequest},
		{"missing request", http.MethodPost, "/transfer-requests/999/approve", nil, http.StatusNotFound},
		{"bad status filter", http.MethodGet, "/debt-orders?status=LOST", nil, http.StatusBadRequest},
		{"adjust without quantity", http.MethodPut, "/inventory/" + toStr(app.main.ID) + "/" + toStr(p), handler.AdjustInventoryRequest{}, http.StatusBadRequest},
		{"negative adjust", http.MethodPut, "/inventory/" + toStr(app.main.ID) + "/" + toStr(p), map[string]interface{}{"quantity": -1}, http.StatusBadRequest},
		{"restock zero", http.MethodPost, "/inventory/main/restock", handler.RestockRequest{ProductID: p}, http.StatusBadRequest},
		{"duplicate store", http.MethodPost, "/warehouses/stores", handler.OnboardStoreRequest{StoreID: 10}, http.StatusConflict},
		{"unknown audit action", http.MethodGet, "/audit-logs?action=DELETE_EVERYTHING", nil, http.StatusBadRequest},
		{"unknown audit resource", http.MethodGet, "/audit-logs/order/1", nil, http.StatusBadRequest},
		{"bad audit resource id", http.MethodGet, "/audit-logs/debt_order/0", nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := app.client.doJSON(t, tc.method, tc.path, staff, tc.body)
			requireStatus(t, resp, tc.want, body)
			er := mustDecode[handler.ErrorResponse](t, body)
			assert.NotEmpty(t, er.Error)
		})
	}
}

func TestWarehouseRoutes(t *testing.T) {
	app := newTestApp(t)
	staff := staffToken(t)

	resp, body := app.client.doJSON(t, http.MethodGet, "/warehouses/main", staff, nil)
	requireStatus(t, resp, http.StatusOK, body)
	assert.Equal(t, app.main.ID, mustDecode[model.Warehouse](t, body).ID)

	resp, body = app.client.doJSON(t, http.MethodPost, "/warehouses/stores", staff, handler.OnboardStoreRequest{StoreID: 33})
	requireStatus(t, resp, http.StatusCreated, body)

	resp, body = app.client.doJSON(t, http.MethodGet, "/warehouses/stores", staff, nil)
	requireStatus(t, resp, http.StatusOK, body)
	assert.Len(t, mustDecode[[]model.Warehouse](t, body), 1)

	p := app.store.SeedProduct(model.Product{SKU: "NEW", Name: "new"})
	resp, body = app.client.doJSON(t, http.MethodPost, "/inventory/main/products", staff, handler.OnboardProductRequest{ProductID: p.ID})
	requireStatus(t, resp, http.StatusCreated, body)
	item := mustDecode[model.InventoryItem](t, body)
	assert.Equal(t, app.main.ID, item.WarehouseID)
	assert.Equal(t, int64(0), item.Quantity)
}
