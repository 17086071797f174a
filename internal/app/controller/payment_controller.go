package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

const (
	stripeSignatureHeader = "Stripe-Signature"
	maxWebhookBodyBytes   = 64 << 10
)

type PaymentController struct {
	paymentService service.PaymentService
}

func NewPaymentController(paymentService service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
	}
}

// PlaceOrderRequest is the checkout submission for both card and COD orders.
// An empty coupon_code falls back to the coupon applied to the session.
type PlaceOrderRequest struct {
	CouponCode      string `json:"coupon_code" binding:"omitempty,couponcode"`
	ShippingAddress string `json:"shipping_address" binding:"max=500"`
	AddressID       *uint  `json:"address_id" binding:"omitempty,gt=0"`
}

func (r PlaceOrderRequest) toInput() service.PlaceOrderInput {
	return service.PlaceOrderInput{
		CouponCode:      r.CouponCode,
		ShippingAddress: r.ShippingAddress,
		AddressID:       r.AddressID,
	}
}

// CreateCheckoutSession places a card order and opens a hosted payment page
// POST /api/v1/payments/checkout-session
func (ctrl *PaymentController) CreateCheckoutSession(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid checkout session request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	email, _ := middleware.GetUserEmail(c)
	resp, err := ctrl.paymentService.CreateCheckoutSession(c.Request.Context(), userID, email, req.toInput())
	if err != nil {
		respondPlacementError(c, log, err)
		return
	}

	log.Info("Checkout session created", map[string]interface{}{
		"user_id":    userID,
		"order_id":   resp.OrderID,
		"session_id": resp.SessionID,
	})
	c.JSON(http.StatusCreated, resp)
}

// CreateCODOrder places a cash-on-delivery order
// POST /api/v1/payments/cod-order
func (ctrl *PaymentController) CreateCODOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid COD order request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	order, err := ctrl.paymentService.CreateCODOrder(c.Request.Context(), userID, req.toInput())
	if err != nil {
		respondPlacementError(c, log, err)
		return
	}

	log.Info("COD order placed", map[string]interface{}{
		"user_id":  userID,
		"order_id": order.ID,
	})
	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed",
		"order":   order,
	})
}

// Webhook receives payment provider events. It is unauthenticated; the signature
// header is the only proof of origin.
// POST /api/v1/payments/webhook
func (ctrl *PaymentController) Webhook(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := c.GetRawData()
	if err != nil {
		log.Warn("Failed to read webhook body", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid webhook body")
		return
	}

	err = ctrl.paymentService.HandleWebhook(c.Request.Context(), payload, c.GetHeader(stripeSignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidWebhook):
			log.Warn("Rejected webhook with invalid signature", nil)
			apperrors.BadRequest(c, apperrors.PaymentInvalidSignature, "Invalid signature")
		case errors.Is(err, service.ErrPaymentNotConfigured):
			apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.PaymentNotConfigured, "Card payments are not configured")
		case errors.Is(err, service.ErrOrderNotFound):
			// non-2xx makes the provider retry once the order row is visible
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
		default:
			log.Error("Failed to process webhook", err)
			apperrors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received": true,
	})
}

func respondPlacementError(c *gin.Context, log *logger.Logger, err error) {
	var rejection *service.CouponRejection
	switch {
	case errors.As(err, &rejection):
		apperrors.BadRequest(c, apperrors.CouponRejected, rejection.Message)
	case errors.Is(err, service.ErrEmptyCart):
		apperrors.BadRequest(c, apperrors.CheckoutEmptyCart, "Your cart is empty")
	case errors.Is(err, service.ErrCheckoutBlocked):
		apperrors.Conflict(c, apperrors.CheckoutBlocked, "Some items exceed available stock. Adjust quantities to continue")
	case errors.Is(err, service.ErrAddressRequired):
		apperrors.BadRequest(c, apperrors.CheckoutAddressRequired, "Shipping address is required")
	case errors.Is(err, service.ErrAddressNotFound):
		apperrors.NotFound(c, apperrors.ResourceNotFound, "Address not found")
	case errors.Is(err, service.ErrPaymentNotConfigured):
		apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.PaymentNotConfigured, "Card payments are not configured")
	case errors.Is(err, service.ErrPaymentProvider):
		apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.PaymentProviderError, "Payment provider is unavailable. Please try again")
	default:
		log.Error("Failed to place order", err)
		info := apperrors.ParseError(err, "create order")
		apperrors.RespondWithError(c, http.StatusInternalServerError, info.Code, info.Message)
	}
}
