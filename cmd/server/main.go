package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/checkout"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/inflight"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/router"
	"github.com/ikkim/storefront-backend/internal/scheduler"
	"github.com/ikkim/storefront-backend/internal/telemetry"
	ws "github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/payment/stripepay"
	redisclient "github.com/ikkim/storefront-backend/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "storefront"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logger.Initialize(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Service:     cfg.Log.Service,
		EnableColor: true,
	})

	logger.Info("Starting Storefront Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   cfg.Log.Level,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Checkout sessions and in-flight markers live in Redis when configured,
	// otherwise in process memory (single instance only).
	var (
		sessions checkout.Store
		guard    inflight.Guard
	)
	if cfg.Redis.Enabled() {
		if err := redisclient.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to connect to Redis", err)
		}
		defer redisclient.Close()
		sessions = checkout.NewRedisStore(redisclient.GetClient(), cfg.Checkout.SessionTTL)
		guard = inflight.NewRedisGuard(redisclient.GetClient(), cfg.Checkout.InflightTTL)
	} else {
		logger.Warn("REDIS_HOST not set, using in-memory checkout sessions", nil)
		sessions = checkout.NewMemoryStore(cfg.Checkout.SessionTTL)
		guard = inflight.NewLocalGuard()
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewHTTPMetrics(metricsNamespace, registry)
	businessMetrics := telemetry.NewBusinessMetrics(metricsNamespace, registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Websocket hub
	hub := ws.NewHub(businessMetrics)
	go hub.Run(ctx)

	// Payment provider; card checkout is disabled without a secret key
	var provider stripepay.Provider
	if cfg.Payment.Stripe.SecretKey != "" {
		client, err := stripepay.NewClient(stripepay.Config{
			SecretKey:     cfg.Payment.Stripe.SecretKey,
			WebhookSecret: cfg.Payment.Stripe.WebhookSecret,
			SuccessURL:    cfg.Payment.Stripe.SuccessURL,
			CancelURL:     cfg.Payment.Stripe.CancelURL,
			Currency:      cfg.Payment.Stripe.Currency,
		})
		if err != nil {
			logger.Fatal("Failed to configure Stripe", err)
		}
		provider = client
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, card payments disabled", nil)
	}

	// Initialize repositories
	conn := db.GetDB()
	productRepo := repository.NewProductRepository(conn)
	cartRepo := repository.NewCartRepository(conn)
	couponRepo := repository.NewCouponRepository(conn)
	orderRepo := repository.NewOrderRepository(conn)
	addressRepo := repository.NewAddressRepository(conn)
	wishlistRepo := repository.NewWishlistRepository(conn)
	notificationRepo := repository.NewNotificationRepository(conn)

	// Initialize services
	notificationService := service.NewNotificationService(notificationRepo, hub)
	productService := service.NewProductService(productRepo)
	couponService := service.NewCouponService(couponRepo, cfg.Checkout.CurrencySymbol)
	cartService := service.NewCartService(cartRepo, productRepo, sessions, guard, hub, businessMetrics)
	checkoutService := service.NewCheckoutService(
		cartService,
		couponService,
		cartRepo,
		sessions,
		guard,
		hub,
		businessMetrics,
		cfg.Checkout.CurrencySymbol,
	)
	orderService := service.NewOrderService(
		conn,
		orderRepo,
		addressRepo,
		couponService,
		sessions,
		notificationService,
		businessMetrics,
		cfg.Payment.Stripe.Currency,
	)
	paymentService := service.NewPaymentService(orderService, provider, businessMetrics)
	wishlistService := service.NewWishlistService(wishlistRepo, productRepo)
	addressService := service.NewAddressService(addressRepo)

	// Initialize controllers
	if err := controller.RegisterValidators(); err != nil {
		logger.Fatal("Failed to register validators", err)
	}
	r := router.NewRouter(
		controller.NewProductController(productService),
		controller.NewCartController(cartService),
		controller.NewCouponController(couponService),
		controller.NewCheckoutController(checkoutService),
		controller.NewOrderController(orderService),
		controller.NewPaymentController(paymentService),
		controller.NewWishlistController(wishlistService),
		controller.NewAddressController(addressService),
		controller.NewWSController(hub, cfg.CORS.AllowedOrigins),
		controller.NewNotificationController(notificationService),
		middleware.NewAuthMiddleware(cfg.JWT.Secret),
		httpMetrics,
		cfg,
	)

	expiry := scheduler.NewOrderExpiryScheduler(orderService, cfg.Checkout.ExpirySchedule, cfg.Checkout.PendingOrderTTL)
	if err := expiry.Start(); err != nil {
		logger.Fatal("Failed to start order expiry scheduler", err)
	}
	defer expiry.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}
