package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type OrderListFilter struct {
	Page      int
	Limit     int
	Status    string
	UserID    *string
	ProductID *string
	From      *time.Time
	To        *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID string) (model.Order, error)
	// 行ロック付き
	FindByIDForUpdate(ctx context.Context, orderID string) (model.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) error
	// ステータスと付随項目をまとめて保存
	Update(ctx context.Context, order model.Order) error

	//同じキーなら同じ結果を返す
	FindByIdempotencyKey(ctx context.Context, userID string, key string) (model.Order, bool, error)
}

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID string, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID string) ([]model.OrderItem, error)
	ListByOrderIDs(ctx context.Context, orderIDs []string) ([]model.OrderItem, error)
	FindByID(ctx context.Context, itemID string) (model.OrderItem, error)
}
