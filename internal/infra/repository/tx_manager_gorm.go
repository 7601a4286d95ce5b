package repository

import (
	"context"

	repo "stocknet/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	warehouses repo.WarehouseRepository
	inventory  repo.InventoryRepository
	transfers  repo.TransferRequestRepository
	debts      repo.DebtOrderRepository
	auditLogs  repo.AuditLogRepository
}

func (r *txReposGorm) Warehouses() repo.WarehouseRepository             { return r.warehouses }
func (r *txReposGorm) Inventory() repo.InventoryRepository              { return r.inventory }
func (r *txReposGorm) TransferRequests() repo.TransferRequestRepository { return r.transfers }
func (r *txReposGorm) DebtOrders() repo.DebtOrderRepository             { return r.debts }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository               { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			warehouses: NewWarehouseGormRepository(tx),
			inventory:  NewInventoryGormRepository(tx),
			transfers:  NewTransferRequestGormRepository(tx),
			debts:      NewDebtOrderGormRepository(tx),
			auditLogs:  NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}

var (
	_ repo.WarehouseRepository       = (*WarehouseGormRepository)(nil)
	_ repo.InventoryRepository       = (*InventoryGormRepository)(nil)
	_ repo.TransferRequestRepository = (*TransferRequestGormRepository)(nil)
	_ repo.DebtOrderRepository       = (*DebtOrderGormRepository)(nil)
	_ repo.AuditLogRepository        = (*AuditLogGormRepository)(nil)
	_ repo.ProductCatalog            = (*ProductCatalogGorm)(nil)
	_ repo.TransactionManager        = (*TxManagerGorm)(nil)
)
