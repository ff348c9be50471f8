package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type ReturnListFilter struct {
	Page    int
	Limit   int
	Status  string
	UserID  *string
	OrderID *string
}

type ReturnRepository interface {
	Create(ctx context.Context, r model.ReturnRequest) error
	FindByID(ctx context.Context, id string) (model.ReturnRequest, error)
	List(ctx context.Context, f ReturnListFilter) ([]model.ReturnRequest, int64, error)
	Update(ctx context.Context, r model.ReturnRequest) error
	// 物理削除
	Delete(ctx context.Context, id string) error
	// 注文に紐づく返品すべて。却下・返金済みも含む
	ListByOrderID(ctx context.Context, orderID string) ([]model.ReturnRequest, error)
}
