package repository

import (
	"context"
	"time"
)

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type ProductSales struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Units       int64  `json:"units"`
	Revenue     int64  `json:"revenue"`
}

type ReturnTotals struct {
	Count        int64 `json:"count"`
	RefundAmount int64 `json:"refund_amount"`
}

// 集計クエリ。期間はcreated_at基準。
type AnalyticsRepository interface {
	OrderCountsByStatus(ctx context.Context, from, to time.Time) ([]StatusCount, error)
	Revenue(ctx context.Context, from, to time.Time) (int64, int64, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductSales, error)
	ReturnTotals(ctx context.Context, from, to time.Time) (ReturnTotals, error)
}
