package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type ReviewListQuery struct {
	ProductID string
	// nilなら承認済みのみ
	Approved *bool
	Page     int
	Limit    int
}

type ReviewStats struct {
	Count         int64   `json:"count"`
	AverageRating float64 `json:"average_rating"`
}

type ReviewRepository interface {
	Create(ctx context.Context, r model.Review) error
	FindByID(ctx context.Context, id string) (model.Review, error)
	List(ctx context.Context, q ReviewListQuery) ([]model.Review, int64, error)
	// 承認済みレビューの件数と平均
	Stats(ctx context.Context, productID string) (ReviewStats, error)
	SetApproved(ctx context.Context, id string, approved bool) error
	Delete(ctx context.Context, id string) error
}
