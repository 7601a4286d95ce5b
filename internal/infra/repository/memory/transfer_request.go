package memory

import (
	"context"
	"sort"
	"time"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"
)

type TransferRequestRepository struct {
	v view
}

var _ repo.TransferRequestRepository = (*TransferRequestRepository)(nil)

func (r *TransferRequestRepository) Create(ctx context.Context, tr model.TransferRequest) (model.TransferRequest, error) {
	err := r.v.write(func(d *data) error {
		tr.ID = d.next("transfer_requests")
		if tr.CreatedAt.IsZero() {
			tr.CreatedAt = time.Now()
		}
		tr.UpdatedAt = tr.CreatedAt

		tr.Items = append([]model.TransferRequestItem(nil), tr.Items...)
		for i := range tr.Items {
			tr.Items[i].ID = d.next("transfer_request_items")
			tr.Items[i].TransferRequestID = tr.ID
			d.transferItemOwner[tr.Items[i].ID] = tr.ID
		}
		d.transfers[tr.ID] = cloneTransfer(tr)
		return nil
	})
	if err != nil {
		return model.TransferRequest{}, err
	}
	return tr, nil
}

func (r *TransferRequestRepository) FindByID(ctx context.Context, id int64) (model.TransferRequest, error) {
	var out model.TransferRequest
	err := r.v.read(func(d *data) error {
		tr, ok := d.transfers[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = cloneTransfer(tr)
		return nil
	})
	return out, err
}

func (r *TransferRequestRepository) LockByID(ctx context.Context, id int64) (model.TransferRequest, error) {
	return r.FindByID(ctx, id)
}

// 新しい順
func (r *TransferRequestRepository) List(ctx context.Context, f repo.TransferRequestFilter) ([]model.TransferRequest, int64, error) {
	out := []model.TransferRequest{}
	err := r.v.read(func(d *data) error {
		for _, tr := range d.transfers {
			if f.Status != nil && tr.Status != *f.Status {
				continue
			}
			if f.StoreID != nil && tr.StoreID != *f.StoreID {
				continue
			}
			out = append(out, cloneTransfer(tr))
		}
		return nil
	})
	if err != nil {
		return []model.TransferRequest{}, 0, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	offset := 0
	if f.Page > 1 && f.Limit > 0 {
		offset = (f.Page - 1) * f.Limit
	}
	return paginate(out, f.Limit, offset), total, nil
}

func (r *TransferRequestRepository) UpdateStatus(ctx context.Context, id int64, status model.TransferRequestStatus, processedAt *time.Time) error {
	return r.v.write(func(d *data) error {
		tr, ok := d.transfers[id]
		if !ok {
			return repo.ErrNotFound
		}
		tr.Status = status
		if processedAt != nil {
			tr.ProcessedAt = copyTime(processedAt)
		}
		tr.UpdatedAt = time.Now()
		d.transfers[id] = tr
		return nil
	})
}

func (r *TransferRequestRepository) UpdateItemFulfilled(ctx context.Context, itemID int64, fulfilled int64) error {
	return r.v.write(func(d *data) error {
		owner, ok := d.transferItemOwner[itemID]
		if !ok {
			return repo.ErrNotFound
		}
		tr := d.transfers[owner]
		for i := range tr.Items {
			if tr.Items[i].ID == itemID {
				tr.Items[i].FulfilledQuantity = fulfilled
			}
		}
		d.transfers[owner] = tr
		return nil
	})
}
