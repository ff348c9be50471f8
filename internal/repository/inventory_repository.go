package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type InventoryListFilter struct {
	// available_quantity <= LowStock のみ
	LowStock *int64
	Page     int
	Limit    int
}

type InventoryRepository interface {
	// 行ロック付きで取得（トランザクション内で使う）
	FindForUpdate(ctx context.Context, productID string, location string) (model.Inventory, error)
	FindByProduct(ctx context.Context, productID string) ([]model.Inventory, error)
	List(ctx context.Context, f InventoryListFilter) ([]model.Inventory, int64, error)

	Create(ctx context.Context, inv model.Inventory) error
	// quantity / reserved / available をまとめて保存
	Save(ctx context.Context, inv model.Inventory) error

	// 調整履歴
	CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error
	ListAdjustments(ctx context.Context, productID string, limit int) ([]model.InventoryAdjustment, error)
}
