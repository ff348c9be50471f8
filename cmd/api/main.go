package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/messaging"
	"storefront/internal/logger"
	"storefront/internal/server"
	"storefront/internal/telemetry"
	"storefront/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type eventPublisher interface {
	usecase.EventPublisher
	Close() error
}

func main() {
	config.LoadDotEnv(".env", "../.env")
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.GoEnv)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	//DB接続
	gormDB, err := db.Connect(cfg, log)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	rdb := cache.NewRedisClient(cfg.RedisAddr)
	defer rdb.Close()
	if err := cache.Ping(ctx, rdb); err != nil {
		// 落ちていてもレビュー投稿は制限なしで通す
		log.Warn("redis unavailable", zap.Error(err))
	}
	limiter := cache.NewFixedWindowLimiter(rdb, "ratelimit", cfg.ReviewRateLimit, cfg.ReviewRateWindow)

	var events eventPublisher = messaging.NewLogPublisher(log)
	if len(cfg.KafkaBrokers) > 0 {
		events = messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	defer events.Close()

	//Repository（GORM実装）
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	returnRepo := infraRepo.NewReturnGormRepository(gormDB)
	reviewRepo := infraRepo.NewReviewGormRepository(gormDB)
	blogRepo := infraRepo.NewBlogPostGormRepository(gormDB)
	notificationRepo := infraRepo.NewNotificationGormRepository(gormDB)
	auditLogRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	analyticsRepo := infraRepo.NewAnalyticsGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	rt := usecase.Runtime{
		IDs:           usecase.UUIDGenerator{},
		Clock:         usecase.SystemClock{},
		Log:           log,
		Metrics:       metrics,
		Events:        events,
		Notifications: notificationRepo,
	}

	//Usecase
	authUC := usecase.NewAuthUsecase(usecase.AuthSettings{
		JWTSecret:  cfg.JWTSecret,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}, userRepo, rtRepo, auditLogRepo, rt)
	productUC := usecase.NewProductUsecase(txm, productRepo, categoryRepo, inventoryRepo, rt)
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo, inventoryRepo, rt.IDs)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, orderItemRepo, addressRepo, rt)
	returnUC := usecase.NewReturnUsecase(txm, returnRepo, rt)
	reviewUC := usecase.NewReviewUsecase(reviewRepo, productRepo, limiter, rt)
	blogUC := usecase.NewBlogUsecase(blogRepo, rt)
	addressUC := usecase.NewAddressUsecase(addressRepo, rt.IDs)
	notificationUC := usecase.NewNotificationUsecase(notificationRepo)

	//Handler
	guards := handler.NewGuards(cfg.JWTSecret, userRepo)
	routers := []server.Router{
		handler.NewAuthHandler(authUC, cfg.RefreshTTL, cfg.CookieSecure),
		handler.NewProductHandler(productUC),
		handler.NewCartHandler(cartUC),
		handler.NewOrderHandler(orderUC),
		handler.NewReturnHandler(returnUC),
		handler.NewReviewHandler(reviewUC),
		handler.NewBlogHandler(blogUC),
		handler.NewAddressHandler(addressUC),
		handler.NewNotificationHandler(notificationUC),
		handler.NewAdminHandler(
			usecase.NewBulkUsecase(txm, rt),
			usecase.NewImportUsecase(txm, rt),
			usecase.NewExportUsecase(orderRepo, orderItemRepo, userRepo, rt),
			usecase.NewAnalyticsUsecase(analyticsRepo, rt),
			authUC,
			usecase.NewAuditLogUsecase(auditLogRepo),
		),
	}

	e := server.New(server.Options{
		ServiceName: cfg.ServiceName,
		AllowOrigin: cfg.FEURL,
		Log:         log,
		Metrics:     metrics,
		Gatherer:    reg,
		DB:          gormDB,
	}, guards, routers...)

	//Server起動
	return server.Run(ctx, e, ":"+cfg.Port, log)
}
