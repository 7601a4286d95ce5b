package memory

import (
	"context"

	"stocknet/internal/domain/model"
	repo "stocknet/internal/repository"
)

type AuditLogRepository struct {
	v view
}

var _ repo.AuditLogRepository = (*AuditLogRepository)(nil)

func (r *AuditLogRepository) Create(ctx context.Context, log model.AuditLog) error {
	return r.v.write(func(d *data) error {
		log.ID = d.next("audit_logs")
		d.auditLogs = append(d.auditLogs, log)
		return nil
	})
}

// 新しい順
func (r *AuditLogRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	out := []model.AuditLog{}
	err := r.v.read(func(d *data) error {
		for i := len(d.auditLogs) - 1; i >= 0; i-- {
			l := d.auditLogs[i]
			if !matchAuditLog(l, f) {
				continue
			}
			out = append(out, l)
		}
		return nil
	})

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return paginate(out, limit, f.Offset), err
}

func matchAuditLog(l model.AuditLog, f repo.AuditLogFilter) bool {
	if f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID {
		return false
	}
	if f.Action != nil && l.Action != *f.Action {
		return false
	}
	if f.ResourceType != nil && l.ResourceType != *f.ResourceType {
		return false
	}
	if f.ResourceID != nil && l.ResourceID != *f.ResourceID {
		return false
	}
	if f.Since != nil && l.CreatedAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && l.CreatedAt.After(*f.Until) {
		return false
	}
	return true
}
