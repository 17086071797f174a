package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/checkout"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/inflight"
	"github.com/ikkim/storefront-backend/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type notification struct {
	UserID uint
	Type   string
	Data   interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) Notify(userID uint, eventType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{UserID: userID, Type: eventType, Data: data})
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type serviceFixture struct {
	db       *gorm.DB
	sessions checkout.Store
	guard    inflight.Guard
	notifier *recordingNotifier

	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	couponRepo  repository.CouponRepository
	addressRepo repository.AddressRepository
	orderRepo   repository.OrderRepository

	cart     CartService
	coupons  CouponService
	checkout CheckoutService
	orders   OrderService
}

func setupServiceFixture(t *testing.T) *serviceFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	f := &serviceFixture{
		db:          testDB,
		sessions:    checkout.NewMemoryStore(time.Hour),
		guard:       inflight.NewLocalGuard(),
		notifier:    &recordingNotifier{},
		cartRepo:    repository.NewCartRepository(testDB),
		productRepo: repository.NewProductRepository(testDB),
		couponRepo:  repository.NewCouponRepository(testDB),
		addressRepo: repository.NewAddressRepository(testDB),
		orderRepo:   repository.NewOrderRepository(testDB),
	}
	f.cart = NewCartService(f.cartRepo, f.productRepo, f.sessions, f.guard, f.notifier, nil)
	f.coupons = NewCouponService(f.couponRepo, "$")
	f.checkout = NewCheckoutService(f.cart, f.coupons, f.cartRepo, f.sessions, f.guard, f.notifier, nil, "$")
	f.orders = NewOrderService(testDB, f.orderRepo, f.addressRepo, f.coupons, f.sessions, f.notifier, nil, "usd")
	return f
}

func (f *serviceFixture) createProduct(t *testing.T, name string, price int64, stock int) *model.Product {
	product := &model.Product{
		Name:          name,
		PriceCents:    price,
		Category:      model.CategoryApparel,
		StockQuantity: stock,
	}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func (f *serviceFixture) createCoupon(t *testing.T, coupon *model.Coupon) *model.Coupon {
	coupon.Active = true
	require.NoError(t, f.db.Create(coupon).Error)
	return coupon
}

func TestCartService_GetCart_Empty(t *testing.T) {
	f := setupServiceFixture(t)

	view, err := f.cart.GetCart(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, view.Items, 0)
	assert.Equal(t, pricing.Cents(0), view.Totals.GrandTotal)
	assert.Equal(t, checkout.CouponUnapplied, view.Coupon.State)
}

func TestCartService_GetCart_Totals(t *testing.T) {
	f := setupServiceFixture(t)
	ctx := context.Background()

	charge := int64(300)
	shirt := &model.Product{
		Name:                  "Shirt",
		PriceCents:            1000,
		DiscountCents:         100,
		StockQuantity:         10,
		ShippingCharge:        &charge,
		FreeShippingThreshold: 5000,
	}
	require.NoError(t, f.db.Create(shirt).Error)

	_, err := f.cart.AddToCart(ctx, 1, shirt.ID, 2)
	require.NoError(t, err)

	view, err := f.cart.GetCart(ctx, 1)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	line := view.Items[0]
	assert.Equal(t, pricing.Cents(2000), line.LineSubtotal)
	assert.Equal(t, pricing.Cents(200), line.LineDiscount)
	assert.Equal(t, pricing.Cents(1800), line.LineTotal)
	assert.False(t, line.ExceedsStock)

	assert.Equal(t, pricing.Cents(2000), view.Totals.Subtotal)
	assert.Equal(t, pricing.Cents(200), view.Totals.ItemDiscount)
	assert.Equal(t, pricing.Cents(300), view.Totals.Shipping)
	assert.Equal(t, pricing.Cents(2100), view.Totals.GrandTotal)
	assert.Equal(t, 2, view.Totals.TotalQuantity)
}

func TestCartService_AddToCart_MergesQuantity(t *testing.T) {
	f := setupServiceFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, "Mug", 1200, 10)

	_, err := f.cart.AddToCart(ctx, 1, product.ID, 2)
	require.NoError(t, err)
	item, err := f.cart.AddToCart(ctx, 1, product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)

	items, err := f.cartRepo.FindByUserID(1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, []string{cartUpdatedEvent, cartUpdatedEvent}, f.notifier.types())
}

func TestCartService_AddToCart_InvalidQuantity(t *testing.T) {
	f := setupServiceFixture(t)
	product := f.createProduct(t, "Mug", 1200, 10)

	_, err := f.cart.AddToCart(context.Background(), 1, product.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCartService_AddToCart_ProductNotFound(t *testing.T) {
	f := setupServiceFixture(t)

	_, err := f.cart.AddToCart(context.Background(), 1, 999, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCartService_AddToCart_BeyondStockIsFlagged(t *testing.T) {
	f := setupServiceFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, "Lamp", 4000, 2)

	_, err := f.cart.AddToCart(ctx, 1, product.ID, 3)
	require.NoError(t, err)

	view, err := f.cart.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.True(t, view.Items[0].ExceedsStock)
	assert.Equal(t, 2, view.Items[0].AvailableStock)
	assert.True(t, view.Totals.StockExceeded)
}

func TestCartService_AddToCart_RejectsWhileLineInFlight(t *testing.T) {
	f := setupServiceFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, "Mug", 1200, 10)

	release, err := f.guard.Acquire(ctx, inflight.CartLineKey(1, product.ID))
	require.NoError(t, err)

	_, err = f.cart.AddToCart(ctx, 1, product.ID, 1)
	assert.ErrorIs(t, err, ErrCartBusy)

	release()
	_, err = f.cart.AddToCart(ctx, 1, product.ID, 1)
	assert.NoError(t, err)
}

func TestCartService_UpdateCartItem(t *testing.T) {
	f := setupServiceFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, "Mug", 1200, 10)

	item, err := f.cart.AddToCart(ctx, 1, product.ID, 1)
	require.NoError(t, err)

	require.NoError(t, f.cart.UpdateCartItem(ctx, 1, item.ID, 4))
	updated, err := f.cartRepo.FindByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)
}

func TestCartService_UpdateCartItem_ZeroRemoves(t *testing.T) {
	f := setupServiceFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, "Mug", 1200, 10)

	item, err := f.cart.AddToCart(ctx, 1, product.ID, 2)
	require.NoError(t, err)

	require.NoError(t, f.cart.UpdateCartItem(ctx, 1, item.ID, 0))
	_, err = f.cartRepo.FindByID(item.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCartService_UpdateCartItem_Negative(t *testing.T) {
	f := setupServiceFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, "Mug", 1200, 10)

	item, err := f.cart.AddToCart(ctx, 1, product.ID, 2)
	require.NoError(t, err)

	err = f.cart.UpdateCartItem(ctx, 1, item.ID, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	unchanged, err := f.cartRepo.FindByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, unchanged.Quantity)
}

func TestCartService_UpdateCartItem_WrongUser(t *testing.T) {
	f := setupServiceFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, "Mug", 1200, 10)

	item, err := f.cart.AddToCart(ctx, 1, product.ID, 2)
	require.NoError(t, err)

	err = f.cart.UpdateCartItem(ctx, 2, item.ID, 5)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_RemoveFromCart(t *testing.T) {
	f := setupServiceFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, "Mug", 1200, 10)

	item, err := f.cart.AddToCart(ctx, 1, product.ID, 2)
	require.NoError(t, err)

	assert.ErrorIs(t, f.cart.RemoveFromCart(ctx, 2, item.ID), ErrCartItemNotFound)
	require.NoError(t, f.cart.RemoveFromCart(ctx, 1, item.ID))
	assert.ErrorIs(t, f.cart.RemoveFromCart(ctx, 1, item.ID), ErrCartItemNotFound)
}

func TestCartService_ClearCart_ResetsCoupon(t *testing.T) {
	f := setupServiceFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, "Mug", 1200, 10)
	f.createCoupon(t, &model.Coupon{Code: "SAVE10", DiscountType: model.DiscountPercentage, Value: 10})

	_, err := f.cart.AddToCart(ctx, 1, product.ID, 2)
	require.NoError(t, err)
	app, err := f.checkout.ApplyCoupon(ctx, 1, "save10")
	require.NoError(t, err)
	require.Equal(t, checkout.CouponApplied, app.State)

	require.NoError(t, f.cart.ClearCart(ctx, 1))

	view, err := f.cart.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, view.Items, 0)
	assert.Equal(t, checkout.CouponUnapplied, view.Coupon.State)
}

func TestPriceCartItems_DeletedProductBlocksCheckout(t *testing.T) {
	lines, items := PriceCartItems([]model.CartItem{
		{ID: 1, ProductID: 7, Quantity: 1},
	})

	require.Len(t, lines, 1)
	assert.Equal(t, uint(7), items[0].ProductID)
	assert.Equal(t, pricing.Cents(0), lines[0].LineTotal)
	assert.True(t, lines[0].ExceedsStock)
	assert.True(t, pricing.AnyExceedsStock(items))
}
