package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Middleware_CountsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/orders/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/"+id, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/api/orders/:id", "204"))
	assert.Equal(t, float64(2), got)
}

func TestMetrics_DomainCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.OrderTransition("confirmed", "shipped")
	m.InventoryAdjusted("ship", 3)
	m.EffectFailed("publish_event")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.orderTransitions.WithLabelValues("confirmed", "shipped")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.inventoryAdjusted.WithLabelValues("ship")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.effectFailures.WithLabelValues("publish_event")))
}
