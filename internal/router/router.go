package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/middleware"
	redisclient "github.com/ikkim/storefront-backend/pkg/redis"
)

type Router struct {
	productController  *controller.ProductController
	cartController     *controller.CartController
	couponController   *controller.CouponController
	checkoutController *controller.CheckoutController
	orderController    *controller.OrderController
	paymentController  *controller.PaymentController
	wishlistController *controller.WishlistController
	addressController  *controller.AddressController
	wsController       *controller.WSController
	notificationCtrl   *controller.NotificationController
	authMiddleware     *middleware.AuthMiddleware
	httpMetrics        *middleware.HTTPMetrics
	config             *config.Config
}

func NewRouter(
	productController *controller.ProductController,
	cartController *controller.CartController,
	couponController *controller.CouponController,
	checkoutController *controller.CheckoutController,
	orderController *controller.OrderController,
	paymentController *controller.PaymentController,
	wishlistController *controller.WishlistController,
	addressController *controller.AddressController,
	wsController *controller.WSController,
	notificationCtrl *controller.NotificationController,
	authMiddleware *middleware.AuthMiddleware,
	httpMetrics *middleware.HTTPMetrics,
	cfg *config.Config,
) *Router {
	return &Router{
		productController:  productController,
		cartController:     cartController,
		couponController:   couponController,
		checkoutController: checkoutController,
		orderController:    orderController,
		paymentController:  paymentController,
		wishlistController: wishlistController,
		addressController:  addressController,
		wsController:       wsController,
		notificationCtrl:   notificationCtrl,
		authMiddleware:     authMiddleware,
		httpMetrics:        httpMetrics,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	if r.httpMetrics != nil {
		router.Use(r.httpMetrics.Middleware())
		router.GET("/metrics", gin.WrapH(r.httpMetrics.Handler()))
	}
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", healthCheck)

	authenticated := r.authMiddleware.Authenticate()
	optional := r.authMiddleware.OptionalAuthenticate()

	v1 := router.Group("/api/v1")
	{
		// public, a token only tags the request logs with the shopper
		products := v1.Group("/products", optional)
		{
			products.GET("", r.productController.GetProducts)
			products.GET("/:id", r.productController.GetProductByID)
		}

		v1.POST("/coupons/validate", optional, r.couponController.ValidateCoupon)

		cart := v1.Group("/cart", authenticated)
		{
			cart.GET("", r.cartController.GetCart)
			cart.POST("/add", r.cartController.AddToCart)
			cart.PUT("/items/:id", r.cartController.UpdateCartItem)
			cart.DELETE("/items/:id", r.cartController.RemoveFromCart)
			cart.DELETE("", r.cartController.ClearCart)
		}

		checkout := v1.Group("/checkout", authenticated)
		{
			checkout.GET("/summary", r.checkoutController.GetSummary)
			checkout.POST("/coupon", r.checkoutController.ApplyCoupon)
			checkout.DELETE("/coupon", r.checkoutController.RemoveCoupon)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/webhook", r.paymentController.Webhook)
			payments.POST("/checkout-session", authenticated, r.paymentController.CreateCheckoutSession)
			payments.POST("/cod-order", authenticated, r.paymentController.CreateCODOrder)
		}

		orders := v1.Group("/orders", authenticated)
		{
			orders.GET("", r.orderController.GetOrders)
			orders.GET("/:id", r.orderController.GetOrderByID)
			orders.POST("/:id/cancel", r.orderController.CancelOrder)
		}

		wishlist := v1.Group("/wishlist", authenticated)
		{
			wishlist.GET("", r.wishlistController.GetWishlist)
			wishlist.POST("", r.wishlistController.AddToWishlist)
			wishlist.DELETE("/:product_id", r.wishlistController.RemoveFromWishlist)
		}

		addresses := v1.Group("/addresses", authenticated)
		{
			addresses.GET("", r.addressController.ListAddresses)
			addresses.POST("", r.addressController.CreateAddress)
			addresses.PUT("/:id", r.addressController.UpdateAddress)
			addresses.DELETE("/:id", r.addressController.DeleteAddress)
			addresses.PUT("/:id/default", r.addressController.SetDefaultAddress)
		}

		notifications := v1.Group("/notifications", authenticated)
		{
			notifications.GET("", r.notificationCtrl.GetNotifications)
			notifications.GET("/unread-count", r.notificationCtrl.GetUnreadCount)
			notifications.PUT("/read-all", r.notificationCtrl.MarkAllAsRead)
			notifications.GET("/settings", r.notificationCtrl.GetSettings)
			notifications.PUT("/settings", r.notificationCtrl.UpdateSettings)
			notifications.PUT("/:id/read", r.notificationCtrl.MarkAsRead)
			notifications.DELETE("/:id", r.notificationCtrl.DeleteNotification)
		}

		admin := v1.Group("/admin", authenticated, r.authMiddleware.RequireRole(string(model.RoleAdmin)))
		{
			admin.PUT("/orders/:id/status", r.orderController.UpdateOrderStatus)
		}

		v1.GET("/ws", authenticated, r.wsController.Connect)
	}

	return router
}

func healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok", "redis": "ok"}
	status := http.StatusOK

	if conn := db.GetDB(); conn != nil {
		if sqlDB, err := conn.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			checks["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	if err := redisclient.Ping(ctx); err != nil {
		checks["redis"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":  state,
		"message": "Storefront API is running",
		"checks":  checks,
	})
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, Stripe-Signature")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Total-Count")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
