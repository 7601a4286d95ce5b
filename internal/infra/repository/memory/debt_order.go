package memory

import (
	"context"
	"sort"
	"time"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"
)

type DebtOrderRepository struct {
	v view
}

var _ repo.DebtOrderRepository = (*DebtOrderRepository)(nil)

func (r *DebtOrderRepository) Create(ctx context.Context, o model.DebtOrder) (model.DebtOrder, error) {
	err := r.v.write(func(d *data) error {
		for _, existing := range d.debts {
			if existing.TransferRequestID == o.TransferRequestID {
				return repo.ErrDuplicate
			}
		}

		o.ID = d.next("debt_orders")
		if o.CreatedAt.IsZero() {
			o.CreatedAt = time.Now()
		}
		o.UpdatedAt = o.CreatedAt

		o.Items = append([]model.DebtItem(nil), o.Items...)
		for i := range o.Items {
			o.Items[i].ID = d.next("debt_items")
			o.Items[i].DebtOrderID = o.ID
			d.debtItemOwner[o.Items[i].ID] = o.ID
		}
		d.debts[o.ID] = cloneDebt(o)
		return nil
	})
	if err != nil {
		return model.DebtOrder{}, err
	}
	return o, nil
}

func (r *DebtOrderRepository) FindByID(ctx context.Context, id int64) (model.DebtOrder, error) {
	var out model.DebtOrder
	err := r.v.read(func(d *data) error {
		o, ok := d.debts[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = cloneDebt(o)
		return nil
	})
	return out, err
}

func (r *DebtOrderRepository) LockByID(ctx context.Context, id int64) (model.DebtOrder, error) {
	return r.FindByID(ctx, id)
}

func (r *DebtOrderRepository) FindByTransferRequestID(ctx context.Context, transferRequestID int64) (model.DebtOrder, error) {
	var out model.DebtOrder
	err := r.v.read(func(d *data) error {
		for _, o := range d.debts {
			if o.TransferRequestID == transferRequestID {
				out = cloneDebt(o)
				return nil
			}
		}
		return repo.ErrNotFound
	})
	return out, err
}

// 古い順（created_at, id）
func (r *DebtOrderRepository) ListByStatus(ctx context.Context, status *model.DebtOrderStatus) ([]model.DebtOrder, error) {
	out := []model.DebtOrder{}
	err := r.v.read(func(d *data) error {
		for _, o := range d.debts {
			if status != nil && o.Status != *status {
				continue
			}
			out = append(out, cloneDebt(o))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *DebtOrderRepository) UpdateStatus(ctx context.Context, id int64, from model.DebtOrderStatus, to model.DebtOrderStatus, fulfilledAt *time.Time) (bool, error) {
	updated := false
	err := r.v.write(func(d *data) error {
		o, ok := d.debts[id]
		if !ok || o.Status != from {
			return nil
		}
		o.Status = to
		if fulfilledAt != nil {
			o.FulfilledAt = copyTime(fulfilledAt)
		}
		o.UpdatedAt = time.Now()
		d.debts[id] = o
		updated = true
		return nil
	})
	return updated, err
}

func (r *DebtOrderRepository) UpdateItemFulfilled(ctx context.Context, itemID int64, fulfilled int64) error {
	return r.v.write(func(d *data) error {
		owner, ok := d.debtItemOwner[itemID]
		if !ok {
			return repo.ErrNotFound
		}
		o := d.debts[owner]
		for i := range o.Items {
			if o.Items[i].ID == itemID {
				o.Items[i].FulfilledQuantity = fulfilled
			}
		}
		d.debts[owner] = o
		return nil
	})
}
