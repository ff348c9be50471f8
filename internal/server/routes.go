package server

import (
	"context"
	"net/http"
	"time"

	"storefront/internal/handler"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func registerRoutes(e *echo.Echo, opts Options, guards handler.Guards, routers []Router) {
	e.GET("/healthz", healthz(opts))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	api := e.Group("/api")
	for _, r := range routers {
		r.RegisterRoutes(api, guards)
	}
}

// DBにpingできなければ503
func healthz(opts Options) echo.HandlerFunc {
	return func(c echo.Context) error {
		sqlDB, err := opts.DB.DB()
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, handler.ErrorResponse{Error: "db unavailable"})
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, handler.ErrorResponse{Error: "db unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}
