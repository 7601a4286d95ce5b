package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Warehouses() WarehouseRepository
	Inventory() InventoryRepository
	TransferRequests() TransferRequestRepository
	DebtOrders() DebtOrderRepository
	AuditLogs() AuditLogRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// fnがerrorを返したら全てロールバック。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
