package usecase

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type AuditLogQuery struct {
	ActorUserID  string
	Action       string
	ResourceType string
	ResourceID   string
	From         *time.Time
	To           *time.Time
	Page         int
	Limit        int
}

type AuditLogListOutput struct {
	Items []model.AuditLog `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

type AuditLogUsecase struct {
	auditLogs repo.AuditLogRepository
}

func NewAuditLogUsecase(auditLogs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{auditLogs: auditLogs}
}

func (u *AuditLogUsecase) List(ctx context.Context, actor Actor, q AuditLogQuery) (AuditLogListOutput, error) {
	if err := requireAdmin(actor); err != nil {
		return AuditLogListOutput{}, err
	}
	if err := validatePaging(q.Page, q.Limit); err != nil {
		return AuditLogListOutput{}, err
	}

	f := repo.AuditLogFilter{
		CreatedFrom: q.From,
		CreatedTo:   q.To,
		Limit:       q.Limit,
		Offset:      (q.Page - 1) * q.Limit,
	}
	if q.ActorUserID != "" {
		f.ActorUserID = &q.ActorUserID
	}
	if q.Action != "" {
		a := model.AuditAction(q.Action)
		f.Action = &a
	}
	if q.ResourceType != "" {
		rt := model.AuditResourceType(q.ResourceType)
		f.ResourceType = &rt
	}
	if q.ResourceID != "" {
		f.ResourceID = &q.ResourceID
	}

	logs, total, err := u.auditLogs.List(ctx, f)
	if err != nil {
		return AuditLogListOutput{}, errDB
	}
	return AuditLogListOutput{Items: logs, Total: total, Page: q.Page, Limit: q.Limit}, nil
}
