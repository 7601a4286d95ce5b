// Package memory はDBを使わないリポジトリ実装（STORAGE=memory とテスト用）。
// WithinTx は状態をコピーして作業し、成功したときだけ差し替える。
package memory

import (
	"context"
	"sync"
	"time"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"
)

// 全テーブル分の状態
type data struct {
	warehouses map[int64]model.Warehouse
	items      map[int64]model.InventoryItem
	logs       []model.InventoryLog
	transfers  map[int64]model.TransferRequest
	debts      map[int64]model.DebtOrder
	auditLogs  []model.AuditLog
	products   map[int64]model.Product

	// 明細ID -> 親ID
	transferItemOwner map[int64]int64
	debtItemOwner     map[int64]int64

	seq map[string]int64
}

func newData() *data {
	return &data{
		warehouses:        map[int64]model.Warehouse{},
		items:             map[int64]model.InventoryItem{},
		transfers:         map[int64]model.TransferRequest{},
		debts:             map[int64]model.DebtOrder{},
		products:          map[int64]model.Product{},
		transferItemOwner: map[int64]int64{},
		debtItemOwner:     map[int64]int64{},
		seq:               map[string]int64{},
	}
}

func (d *data) next(table string) int64 {
	d.seq[table]++
	return d.seq[table]
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.warehouses {
		v.StoreID = copyPtr(v.StoreID)
		c.warehouses[k] = v
	}
	for k, v := range d.items {
		c.items[k] = v
	}
	c.logs = append([]model.InventoryLog(nil), d.logs...)
	for k, v := range d.transfers {
		c.transfers[k] = cloneTransfer(v)
	}
	for k, v := range d.debts {
		c.debts[k] = cloneDebt(v)
	}
	c.auditLogs = append([]model.AuditLog(nil), d.auditLogs...)
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.transferItemOwner {
		c.transferItemOwner[k] = v
	}
	for k, v := range d.debtItemOwner {
		c.debtItemOwner[k] = v
	}
	for k, v := range d.seq {
		c.seq[k] = v
	}
	return c
}

// Store は全リポジトリの入れ物。TransactionManager も兼ねる。
type Store struct {
	// 書き込み（Tx含む）を1つずつにする
	txMu sync.Mutex
	mu   sync.RWMutex
	d    *data
}

func NewStore() *Store {
	return &Store{d: newData()}
}

// 読み書きの入口。Tx内はコピーを直接触る
type view interface {
	read(fn func(d *data) error) error
	write(fn func(d *data) error) error
}

type storeView struct {
	s *Store
}

func (v storeView) read(fn func(d *data) error) error {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return fn(v.s.d)
}

func (v storeView) write(fn func(d *data) error) error {
	v.s.txMu.Lock()
	defer v.s.txMu.Unlock()
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.d)
}

type txView struct {
	d *data
}

func (v txView) read(fn func(d *data) error) error  { return fn(v.d) }
func (v txView) write(fn func(d *data) error) error { return fn(v.d) }

func (s *Store) Warehouses() repo.WarehouseRepository {
	return &WarehouseRepository{v: storeView{s}}
}

func (s *Store) Inventory() repo.InventoryRepository {
	return &InventoryRepository{v: storeView{s}}
}

func (s *Store) TransferRequests() repo.TransferRequestRepository {
	return &TransferRequestRepository{v: storeView{s}}
}

func (s *Store) DebtOrders() repo.DebtOrderRepository {
	return &DebtOrderRepository{v: storeView{s}}
}

func (s *Store) AuditLogs() repo.AuditLogRepository {
	return &AuditLogRepository{v: storeView{s}}
}

func (s *Store) Products() *ProductCatalog {
	return &ProductCatalog{v: storeView{s}}
}

type txRepos struct {
	v txView
}

func (r txRepos) Warehouses() repo.WarehouseRepository { return &WarehouseRepository{v: r.v} }
func (r txRepos) Inventory() repo.InventoryRepository  { return &InventoryRepository{v: r.v} }
func (r txRepos) TransferRequests() repo.TransferRequestRepository {
	return &TransferRequestRepository{v: r.v}
}
func (r txRepos) DebtOrders() repo.DebtOrderRepository { return &DebtOrderRepository{v: r.v} }
func (r txRepos) AuditLogs() repo.AuditLogRepository   { return &AuditLogRepository{v: r.v} }

// WithinTx はfnがnilを返したときだけ変更を反映する。
func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.d.clone()
	s.mu.RUnlock()

	if err := fn(txRepos{v: txView{d: work}}); err != nil {
		return err
	}

	s.mu.Lock()
	s.d = work
	s.mu.Unlock()
	return nil
}

// SeedProduct はカタログに商品を入れる（テスト・開発用）
func (s *Store) SeedProduct(p model.Product) model.Product {
	_ = storeView{s}.write(func(d *data) error {
		if p.ID == 0 {
			p.ID = d.next("products")
		} else if p.ID > d.seq["products"] {
			d.seq["products"] = p.ID
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now()
		}
		p.UpdatedAt = p.CreatedAt
		d.products[p.ID] = p
		return nil
	})
	return p
}

func copyPtr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneTransfer(tr model.TransferRequest) model.TransferRequest {
	tr.Items = append([]model.TransferRequestItem(nil), tr.Items...)
	tr.ProcessedAt = copyTime(tr.ProcessedAt)
	return tr
}

func cloneDebt(d model.DebtOrder) model.DebtOrder {
	d.Items = append([]model.DebtItem(nil), d.Items...)
	d.FulfilledAt = copyTime(d.FulfilledAt)
	return d
}

var (
	_ repo.TransactionManager = (*Store)(nil)
	_ repo.TxRepos            = txRepos{}
)
