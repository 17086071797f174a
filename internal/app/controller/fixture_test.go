package controller

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/checkout"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/inflight"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/pkg/payment/stripepay"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testUserID uint = 1

type controllerFixture struct {
	db       *gorm.DB
	router   *gin.Engine
	provider *stripepay.MockProvider

	productRepo repository.ProductRepository
	couponRepo  repository.CouponRepository
	orderRepo   repository.OrderRepository

	cart     service.CartService
	checkout service.CheckoutService
	orders   service.OrderService
	payments service.PaymentService
}

func setupControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})
	require.NoError(t, RegisterValidators())

	sessions := checkout.NewMemoryStore(time.Hour)
	guard := inflight.NewLocalGuard()

	f := &controllerFixture{
		db:          testDB,
		provider:    stripepay.NewMockProvider(),
		productRepo: repository.NewProductRepository(testDB),
		couponRepo:  repository.NewCouponRepository(testDB),
		orderRepo:   repository.NewOrderRepository(testDB),
	}
	cartRepo := repository.NewCartRepository(testDB)
	addressRepo := repository.NewAddressRepository(testDB)

	coupons := service.NewCouponService(f.couponRepo, "$")
	f.cart = service.NewCartService(cartRepo, f.productRepo, sessions, guard, nil, nil)
	f.checkout = service.NewCheckoutService(f.cart, coupons, cartRepo, sessions, guard, nil, nil, "$")
	f.orders = service.NewOrderService(testDB, f.orderRepo, addressRepo, coupons, sessions, nil, nil, "usd")
	f.payments = service.NewPaymentService(f.orders, f.provider, nil)

	gin.SetMode(gin.TestMode)
	f.router = gin.New()

	return f
}

// asUser stands in for the auth middleware.
func asUser(userID uint, role model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.UserEmailKey, "shopper@example.com")
		c.Set(middleware.UserRoleKey, role)
		c.Next()
	}
}

func (f *controllerFixture) createProduct(t *testing.T, name string, price int64, stock int) *model.Product {
	t.Helper()
	product := &model.Product{
		Name:          name,
		Category:      model.CategoryHome,
		PriceCents:    price,
		StockQuantity: stock,
	}
	require.NoError(t, f.productRepo.Create(product))
	return product
}

func (f *controllerFixture) createCoupon(t *testing.T, coupon *model.Coupon) {
	t.Helper()
	coupon.Active = true
	require.NoError(t, f.couponRepo.Create(coupon))
}

func performRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	code, _ := decodeBody(t, w)["error"].(string)
	return code
}
