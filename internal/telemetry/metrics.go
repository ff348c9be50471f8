package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// アプリ固有のメトリクス。/metricsで公開する。
type Metrics struct {
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	orderTransitions  *prometheus.CounterVec
	returnTransitions *prometheus.CounterVec
	inventoryAdjusted *prometheus.CounterVec
	effectFailures    *prometheus.CounterVec
	rateLimited       *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_order_status_transitions_total",
			Help: "Committed order status transitions.",
		}, []string{"from", "to"}),
		returnTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_return_status_transitions_total",
			Help: "Committed return status transitions.",
		}, []string{"from", "to"}),
		inventoryAdjusted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_inventory_adjustments_total",
			Help: "Inventory adjustments by kind.",
		}, []string{"kind"}),
		effectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_side_effect_failures_total",
			Help: "Post-commit steps that failed.",
		}, []string{"step"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_rate_limited_total",
			Help: "Requests rejected by a rate limiter.",
		}, []string{"scope"}),
	}
	reg.MustRegister(
		m.httpRequests, m.httpDuration,
		m.orderTransitions, m.returnTransitions,
		m.inventoryAdjusted, m.effectFailures, m.rateLimited,
	)
	return m
}

func (m *Metrics) OrderTransition(from, to string) {
	m.orderTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ReturnTransition(from, to string) {
	m.returnTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) InventoryAdjusted(kind string, n int) {
	m.inventoryAdjusted.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) EffectFailed(step string) {
	m.effectFailures.WithLabelValues(step).Inc()
}

func (m *Metrics) RateLimited(scope string) {
	m.rateLimited.WithLabelValues(scope).Inc()
}

// echo用。ルートはパターン(c.Path())で集計する。
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
