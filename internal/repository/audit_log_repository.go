package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

// nilの条件は絞り込まない
type AuditLogFilter struct {
	ActorUserID  *string
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

type AuditLogRepository interface {
	// 管理操作と同じTxで書く
	Create(ctx context.Context, log model.AuditLog) error
	// 新しい順。件数はLimit/Offset適用前
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, int64, error)
}
