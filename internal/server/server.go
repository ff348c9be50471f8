package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/telemetry"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// /api配下にルートを登録するもの
type Router interface {
	RegisterRoutes(api *echo.Group, g handler.Guards)
}

type Options struct {
	ServiceName string
	AllowOrigin string // CORS
	Log         *zap.Logger
	Metrics     *telemetry.Metrics
	Gatherer    prometheus.Gatherer
	DB          *gorm.DB
}

// Newはミドルウェアとルートを設定したechoを返す
func New(opts Options, guards handler.Guards, routers ...Router) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echo.WrapMiddleware(otelhttp.NewMiddleware(opts.ServiceName)))
	e.Use(middleware.RequestLogger(opts.Log))
	e.Use(opts.Metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{opts.AllowOrigin},
		AllowCredentials: true,
		AllowHeaders: []string{
			echo.HeaderContentType,
			echo.HeaderAuthorization,
			"X-CSRF-Token",
			"X-Idempotency-Key",
		},
	}))

	registerRoutes(e, opts, guards, routers)
	return e
}

// ctxがキャンセルされたらシャットダウンする
func Run(ctx context.Context, e *echo.Echo, addr string, log *zap.Logger) error {
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = 60 * time.Second
	e.Server.IdleTimeout = 120 * time.Second

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("http server shutting down")
	return e.Shutdown(shutdownCtx)
}
