package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/checkout"
	"github.com/ikkim/storefront-backend/pkg/payment/stripepay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPaymentServiceTest(t *testing.T) (*serviceFixture, PaymentService, *stripepay.MockProvider) {
	f := setupServiceFixture(t)
	provider := stripepay.NewMockProvider()
	return f, NewPaymentService(f.orders, provider, nil), provider
}

func TestPaymentService_CreateCheckoutSession(t *testing.T) {
	f, payments, provider := setupPaymentServiceTest(t)
	ctx := context.Background()
	product := f.createProduct(t, "Jacket", 5000, 5)

	_, err := f.cart.AddToCart(ctx, 1, product.ID, 2)
	require.NoError(t, err)

	resp, err := payments.CreateCheckoutSession(ctx, 1, "jane@example.com", PlaceOrderInput{ShippingAddress: testAddress})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_"+resp.OrderNumber, resp.SessionID)
	assert.NotEmpty(t, resp.URL)
	assert.Equal(t, int64(10000), resp.Total)

	req := provider.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "jane@example.com", req.CustomerEmail)
	require.Len(t, req.Lines, 1)
	assert.Equal(t, int64(5000), req.Lines[0].UnitAmount)
	assert.Equal(t, int64(2), req.Lines[0].Quantity)

	order, err := f.orderRepo.FindByID(resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentMethodCard, order.PaymentMethod)
	assert.Equal(t, "stripe", order.PaymentProvider)
	assert.Equal(t, resp.SessionID, order.PaymentSessionID)
}

func TestPaymentService_CreateCheckoutSession_ProviderFailure(t *testing.T) {
	f, payments, provider := setupPaymentServiceTest(t)
	ctx := context.Background()
	jacket := f.createProduct(t, "Jacket", 5000, 5)
	mug := f.createProduct(t, "Mug", 1200, 5)
	f.createCoupon(t, &model.Coupon{Code: "SAVE10", DiscountType: model.DiscountPercentage, Value: 10})

	_, err := f.cart.AddToCart(ctx, 1, jacket.ID, 2)
	require.NoError(t, err)
	_, err = f.cart.AddToCart(ctx, 1, mug.ID, 1)
	require.NoError(t, err)
	_, err = f.checkout.ApplyCoupon(ctx, 1, "SAVE10")
	require.NoError(t, err)

	provider.Err = errors.New("card_declined")
	_, err = payments.CreateCheckoutSession(ctx, 1, "jane@example.com", PlaceOrderInput{ShippingAddress: testAddress})
	assert.ErrorIs(t, err, ErrPaymentProvider)
	assert.Equal(t, 5, f.stock(t, jacket.ID))
	assert.Equal(t, 5, f.stock(t, mug.ID))
	assert.Equal(t, 0, f.usedCount(t, "SAVE10"))

	orders, err := f.orders.GetUserOrders(1)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, model.OrderStatusCancelled, orders[0].Status)

	view, err := f.cart.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
	assert.Equal(t, checkout.CouponApplied, view.Coupon.State)
	assert.Equal(t, "SAVE10", view.Coupon.AppliedCode())

	provider.Err = nil
	resp, err := payments.CreateCheckoutSession(ctx, 1, "jane@example.com", PlaceOrderInput{ShippingAddress: testAddress})
	require.NoError(t, err)
	assert.True(t, resp.PaymentRequired)
	assert.Equal(t, 1, f.usedCount(t, "SAVE10"))

	view, err = f.cart.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, checkout.CouponUnapplied, view.Coupon.State)
}

func TestPaymentService_CreateCheckoutSession_ZeroTotal(t *testing.T) {
	f, payments, provider := setupPaymentServiceTest(t)
	ctx := context.Background()
	product := f.createProduct(t, "Sticker", 300, 5)
	f.createCoupon(t, &model.Coupon{Code: "FREEBIE", DiscountType: model.DiscountPercentage, Value: 100})

	_, err := f.cart.AddToCart(ctx, 1, product.ID, 1)
	require.NoError(t, err)

	resp, err := payments.CreateCheckoutSession(ctx, 1, "jane@example.com", PlaceOrderInput{CouponCode: "FREEBIE", ShippingAddress: testAddress})
	require.NoError(t, err)
	assert.False(t, resp.PaymentRequired)
	assert.Empty(t, resp.SessionID)
	assert.Empty(t, resp.URL)
	assert.Equal(t, int64(0), resp.Total)
	assert.Nil(t, provider.LastRequest())

	order, err := f.orderRepo.FindByID(resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, order.Status)
	assert.Equal(t, model.PaymentStatusCompleted, order.PaymentStatus)
	assert.NotNil(t, order.PaymentApprovedAt)
	assert.Equal(t, 4, f.stock(t, product.ID))

	items, err := f.cartRepo.FindByUserID(1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPaymentService_NotConfigured(t *testing.T) {
	f := setupServiceFixture(t)
	payments := NewPaymentService(f.orders, nil, nil)

	_, err := payments.CreateCheckoutSession(context.Background(), 1, "", PlaceOrderInput{})
	assert.ErrorIs(t, err, ErrPaymentNotConfigured)
	assert.ErrorIs(t, payments.HandleWebhook(context.Background(), []byte("{}"), "sig"), ErrPaymentNotConfigured)
}

func TestPaymentService_CreateCODOrder(t *testing.T) {
	f, payments, provider := setupPaymentServiceTest(t)
	ctx := context.Background()
	product := f.createProduct(t, "Jacket", 5000, 5)

	_, err := f.cart.AddToCart(ctx, 1, product.ID, 1)
	require.NoError(t, err)

	order, err := payments.CreateCODOrder(ctx, 1, PlaceOrderInput{PaymentMethod: model.PaymentMethodCard, ShippingAddress: testAddress})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentMethodCOD, order.PaymentMethod)
	assert.Nil(t, provider.LastRequest())
}

func TestPaymentService_HandleWebhook(t *testing.T) {
	f, payments, provider := setupPaymentServiceTest(t)
	ctx := context.Background()
	product := f.createProduct(t, "Jacket", 5000, 5)

	_, err := f.cart.AddToCart(ctx, 1, product.ID, 1)
	require.NoError(t, err)
	resp, err := payments.CreateCheckoutSession(ctx, 1, "", PlaceOrderInput{ShippingAddress: testAddress})
	require.NoError(t, err)

	provider.Events["unpaid"] = &stripepay.Event{ID: "evt_0", Type: stripepay.EventCheckoutCompleted, SessionID: resp.SessionID, PaymentStatus: "unpaid"}
	provider.Events["paid"] = &stripepay.Event{ID: "evt_1", Type: stripepay.EventCheckoutCompleted, SessionID: resp.SessionID, PaymentStatus: "paid"}
	provider.Events["orphan"] = &stripepay.Event{ID: "evt_2", Type: stripepay.EventCheckoutCompleted, SessionID: "cs_missing", PaymentStatus: "paid"}

	assert.ErrorIs(t, payments.HandleWebhook(ctx, []byte("paid"), "wrong"), ErrInvalidWebhook)
	assert.NoError(t, payments.HandleWebhook(ctx, []byte("something-else"), provider.Signature))

	require.NoError(t, payments.HandleWebhook(ctx, []byte("unpaid"), provider.Signature))
	order, err := f.orderRepo.FindByID(resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, order.PaymentStatus)

	require.NoError(t, payments.HandleWebhook(ctx, []byte("paid"), provider.Signature))
	require.NoError(t, payments.HandleWebhook(ctx, []byte("paid"), provider.Signature))
	order, err = f.orderRepo.FindByID(resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, order.PaymentStatus)
	assert.Equal(t, model.OrderStatusConfirmed, order.Status)

	assert.ErrorIs(t, payments.HandleWebhook(ctx, []byte("orphan"), provider.Signature), ErrOrderNotFound)
}

func TestPaymentService_HandleWebhook_Expired(t *testing.T) {
	f, payments, provider := setupPaymentServiceTest(t)
	ctx := context.Background()
	product := f.createProduct(t, "Jacket", 5000, 5)

	_, err := f.cart.AddToCart(ctx, 1, product.ID, 3)
	require.NoError(t, err)
	resp, err := payments.CreateCheckoutSession(ctx, 1, "", PlaceOrderInput{ShippingAddress: testAddress})
	require.NoError(t, err)
	require.Equal(t, 2, f.stock(t, product.ID))

	provider.Events["expired"] = &stripepay.Event{ID: "evt_3", Type: stripepay.EventCheckoutExpired, SessionID: resp.SessionID}
	require.NoError(t, payments.HandleWebhook(ctx, []byte("expired"), provider.Signature))

	order, err := f.orderRepo.FindByID(resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, order.Status)
	assert.Equal(t, 5, f.stock(t, product.ID))
}
