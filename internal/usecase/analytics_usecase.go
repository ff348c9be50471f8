package usecase

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	defaultAnalyticsRange = 30 * 24 * time.Hour
	topProductsLimit      = 10
)

type FunnelStep struct {
	Stage string `json:"stage"`
	Count int64  `json:"count"`
	// 前の段階からの割合
	Rate float64 `json:"rate"`
}

type AnalyticsReport struct {
	From              time.Time           `json:"from"`
	To                time.Time           `json:"to"`
	Revenue           int64               `json:"revenue"`
	RevenueOrders     int64               `json:"revenue_orders"`
	AverageOrderValue int64               `json:"average_order_value"`
	OrdersByStatus    []repo.StatusCount  `json:"orders_by_status"`
	TopProducts       []repo.ProductSales `json:"top_products"`
	Funnel            []FunnelStep        `json:"funnel"`
	Returns           repo.ReturnTotals   `json:"returns"`
}

type AnalyticsUsecase struct {
	analytics repo.AnalyticsRepository
	clock     Clock
}

func NewAnalyticsUsecase(analytics repo.AnalyticsRepository, rt Runtime) *AnalyticsUsecase {
	return &AnalyticsUsecase{analytics: analytics, clock: rt.Clock}
}

// 期間は[from, to)。未指定なら直近30日。
func (u *AnalyticsUsecase) Report(ctx context.Context, actor Actor, from, to *time.Time) (AnalyticsReport, error) {
	if err := requireAdmin(actor); err != nil {
		return AnalyticsReport{}, err
	}
	end := u.clock.Now()
	if to != nil {
		end = *to
	}
	start := end.Add(-defaultAnalyticsRange)
	if from != nil {
		start = *from
	}
	if !start.Before(end) {
		return AnalyticsReport{}, badRequest("from must be before to")
	}

	rep := AnalyticsReport{From: start, To: end}
	var err error
	if rep.Revenue, rep.RevenueOrders, err = u.analytics.Revenue(ctx, start, end); err != nil {
		return AnalyticsReport{}, errDB
	}
	if rep.OrdersByStatus, err = u.analytics.OrderCountsByStatus(ctx, start, end); err != nil {
		return AnalyticsReport{}, errDB
	}
	if rep.TopProducts, err = u.analytics.TopProducts(ctx, start, end, topProductsLimit); err != nil {
		return AnalyticsReport{}, errDB
	}
	if rep.Returns, err = u.analytics.ReturnTotals(ctx, start, end); err != nil {
		return AnalyticsReport{}, errDB
	}

	rep.AverageOrderValue = AverageOrderValue(rep.Revenue, rep.RevenueOrders)
	rep.Funnel = Funnel(rep.OrdersByStatus)
	return rep, nil
}

// 四捨五入
func AverageOrderValue(revenue, orders int64) int64 {
	if orders == 0 {
		return 0
	}
	return decimal.NewFromInt(revenue).Div(decimal.NewFromInt(orders)).Round(0).IntPart()
}

// placed → confirmed → shipped → delivered。その段階を通過した注文を数える。
func Funnel(counts []repo.StatusCount) []FunnelStep {
	by := make(map[model.OrderStatus]int64, len(counts))
	var placed int64
	for _, c := range counts {
		by[model.OrderStatus(c.Status)] = c.Count
		placed += c.Count
	}
	delivered := by[model.OrderStatusDelivered] + by[model.OrderStatusRefunded]
	shipped := delivered + by[model.OrderStatusShipped]
	confirmed := shipped + by[model.OrderStatusConfirmed] + by[model.OrderStatusProcessing]

	steps := []FunnelStep{
		{Stage: "placed", Count: placed},
		{Stage: "confirmed", Count: confirmed},
		{Stage: "shipped", Count: shipped},
		{Stage: "delivered", Count: delivered},
	}
	steps[0].Rate = 1
	if placed == 0 {
		steps[0].Rate = 0
	}
	for i := 1; i < len(steps); i++ {
		steps[i].Rate = ratio(steps[i].Count, steps[i-1].Count)
	}
	return steps
}

func ratio(n, d int64) float64 {
	if d == 0 {
		return 0
	}
	r, _ := decimal.NewFromInt(n).DivRound(decimal.NewFromInt(d), 4).Float64()
	return r
}
