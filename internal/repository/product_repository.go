package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 一覧検索
type ProductListQuery struct {
	Page         int
	Limit        int
	Search       string
	CategorySlug string
	Featured     *bool
	MinPrice     *int64
	MaxPrice     *int64
	Sort         string
	// 管理者は非公開も含める
	IncludeInactive bool
}

// 一覧用。在庫の販売可能数をJOINで持つ。
type ProductWithStock struct {
	model.Product
	AvailableQuantity int64 `json:"available_quantity"`
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]ProductWithStock, int64, error)
	FindByID(ctx context.Context, id string) (model.Product, error)
	FindBySlug(ctx context.Context, slug string) (model.Product, error)
	FindBySKU(ctx context.Context, sku string) (model.Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, ids ...string) (int64, error)

	// 一括操作
	SetActive(ctx context.Context, ids []string, active bool) (int64, error)
	SetFeatured(ctx context.Context, ids []string, featured bool) (int64, error)
	SetCategory(ctx context.Context, ids []string, categoryID *string) (int64, error)
	UpdatePrice(ctx context.Context, id string, price int64) error

	// 出荷時の累計販売数
	IncrementSalesCount(ctx context.Context, id string, qty int64) error
}

type CategoryRepository interface {
	List(ctx context.Context) ([]model.Category, error)
	Create(ctx context.Context, c model.Category) (model.Category, error)
	FindByID(ctx context.Context, id string) (model.Category, error)
	FindBySlug(ctx context.Context, slug string) (model.Category, error)
}
