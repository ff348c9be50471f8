package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

// 売上に数えるステータス（キャンセル・返金以外）
var revenueStatuses = []model.OrderStatus{
	model.OrderStatusPending,
	model.OrderStatusConfirmed,
	model.OrderStatusProcessing,
	model.OrderStatusShipped,
	model.OrderStatusDelivered,
}

type AnalyticsGormRepository struct {
	db *gorm.DB
}

func NewAnalyticsGormRepository(db *gorm.DB) *AnalyticsGormRepository {
	return &AnalyticsGormRepository{db: db}
}

var _ repo.AnalyticsRepository = (*AnalyticsGormRepository)(nil)

func (r *AnalyticsGormRepository) OrderCountsByStatus(ctx context.Context, from, to time.Time) ([]repo.StatusCount, error) {
	var rows []repo.StatusCount
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("status, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("status").
		Order("status").
		Scan(&rows).Error
	if err != nil {
		return []repo.StatusCount{}, err
	}
	return rows, nil
}

// 売上合計と件数
func (r *AnalyticsGormRepository) Revenue(ctx context.Context, from, to time.Time) (int64, int64, error) {
	var row struct {
		Revenue int64
		Orders  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("COALESCE(SUM(total_amount), 0) AS revenue, COUNT(*) AS orders").
		Where("created_at >= ? AND created_at < ? AND status IN ?", from, to, revenueStatuses).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Revenue, row.Orders, nil
}

func (r *AnalyticsGormRepository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]repo.ProductSales, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	var rows []repo.ProductSales
	err := r.db.WithContext(ctx).
		Table("order_items oi").
		Select("oi.product_id, MAX(oi.product_name) AS product_name, SUM(oi.quantity) AS units, SUM(oi.total_price) AS revenue").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("o.created_at >= ? AND o.created_at < ? AND o.status IN ?", from, to, revenueStatuses).
		Group("oi.product_id").
		Order("units desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return []repo.ProductSales{}, err
	}
	return rows, nil
}

func (r *AnalyticsGormRepository) ReturnTotals(ctx context.Context, from, to time.Time) (repo.ReturnTotals, error) {
	var t repo.ReturnTotals
	err := r.db.WithContext(ctx).
		Model(&model.ReturnRequest{}).
		Select("COUNT(*) AS count, COALESCE(SUM(refund_amount) FILTER (WHERE status = ?), 0) AS refund_amount", model.ReturnStatusRefunded).
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&t).Error
	if err != nil {
		return repo.ReturnTotals{}, err
	}
	return t, nil
}
