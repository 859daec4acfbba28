package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/cart"
	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/handler"
	"github.com/iliyamo/studio-booking/internal/logger"
	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/payment"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/router"
	"github.com/iliyamo/studio-booking/internal/service"
	"github.com/iliyamo/studio-booking/internal/storage"
)

func main() {
	cfg := config.Load()

	lg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		lg.Fatal("database open failed", zap.Error(err))
	}
	defer db.Close()

	// Redis backs the rate limiter, the response cache and carts.  Without
	// it those features are switched off rather than failing startup.
	rdb := config.NewRedisClient()
	if rdb == nil {
		lg.Warn("redis unavailable; rate limiting, caching and carts disabled")
	} else {
		defer rdb.Close()
	}

	var gateway payment.Gateway
	if cfg.Payment.ServerKey != "" {
		gateway = payment.NewMidtrans(cfg.Payment.ServerKey, cfg.Payment.Production)
	} else {
		lg.Warn("MIDTRANS_SERVER_KEY not set; online payments disabled")
	}

	var store storage.Store
	if cfg.Storage.Enabled() {
		oss, err := storage.NewOSS(cfg.Storage)
		if err != nil {
			lg.Fatal("object storage init failed", zap.Error(err))
		}
		store = oss
	} else {
		lg.Warn("object storage not configured; uploads disabled")
	}

	publisher := queue.NewPublisher(cfg.AMQPURL, lg)
	defer publisher.Close()

	slots := repository.NewSlotRepo(db)
	bookings := repository.NewBookingRepo(db)
	catalog := repository.NewCatalogRepo(db)
	feedRepo := repository.NewFeedRepo(db)
	tokenSale := repository.NewTokenSaleRepo(db)

	bookingSvc := service.NewBookingService(service.BookingDeps{
		DB: db, Slots: slots, Bookings: bookings, Catalog: catalog,
		Gateway: gateway, Store: store, Events: publisher,
		Currency: cfg.Payment.Currency, Location: cfg.Location, Logger: lg,
	})
	adminSlots := service.NewAdminSlotService(slots, bookings, catalog, lg)
	slotQuery := service.NewSlotQueryService(slots, cfg.Location, lg)
	feedSvc := service.NewFeedService(feedRepo, store, lg)
	tokenSvc := service.NewTokenSaleService(tokenSale, gateway, publisher, lg)

	var carts *cart.Store
	if rdb != nil {
		carts = cart.NewStore(rdb, cfg.CartTTL)
	}

	cacheCfg := config.LoadCacheConfig()
	h := router.Handlers{
		Health:   &handler.HealthHandler{DB: db, Redis: rdb},
		Auth:     handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), lg),
		Catalog:  handler.NewCatalogHandler(catalog, rdb, cacheCfg.Prefix, lg),
		Slots:    handler.NewSlotHandler(slotQuery, adminSlots, catalog, cfg.Location, lg),
		Bookings: handler.NewBookingHandler(bookingSvc, adminSlots, lg),
		Payments: handler.NewPaymentHandler(bookingSvc, tokenSvc, lg),
		Feed:     handler.NewFeedHandler(feedSvc, lg),
		Tokens:   handler.NewTokenHandler(tokenSvc, lg),
		Cart:     handler.NewCartHandler(carts, catalog, lg),
		Uploads:  handler.NewUploadHandler(store, lg),
	}
	mws := router.Middlewares{
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, lg),
		Cache:     middleware.NewRedisCache(cacheCfg, rdb),
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("8M"))
	e.Use(middleware.RequestLogger(lg))
	router.Register(e, h, mws)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown failed", zap.Error(err))
	}
}
