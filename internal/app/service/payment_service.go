package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/telemetry"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/payment/stripepay"
)

var (
	ErrPaymentNotConfigured = errors.New("card payments are not configured")
	ErrPaymentProvider      = errors.New("payment provider error")
	ErrInvalidWebhook       = errors.New("invalid webhook signature")
)

const paymentProviderStripe = "stripe"

// CheckoutSessionResponse is returned to the client, which redirects to URL when
// PaymentRequired is set
type CheckoutSessionResponse struct {
	OrderID         uint   `json:"order_id"`
	OrderNumber     string `json:"order_number"`
	SessionID       string `json:"session_id,omitempty"`
	URL             string `json:"url,omitempty"`
	Total           int64  `json:"total"`
	PaymentRequired bool   `json:"payment_required"`
}

// PaymentService hands placed orders to the payment provider and applies its webhooks
type PaymentService interface {
	CreateCheckoutSession(ctx context.Context, userID uint, email string, input PlaceOrderInput) (*CheckoutSessionResponse, error)
	CreateCODOrder(ctx context.Context, userID uint, input PlaceOrderInput) (*model.Order, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type paymentService struct {
	orderService OrderService
	provider     stripepay.Provider
	metrics      *telemetry.BusinessMetrics
	now          func() time.Time
}

// NewPaymentService wires payments. A nil provider disables card checkout; cash on
// delivery keeps working.
func NewPaymentService(orderService OrderService, provider stripepay.Provider, metrics *telemetry.BusinessMetrics) PaymentService {
	return &paymentService{
		orderService: orderService,
		provider:     provider,
		metrics:      metrics,
		now:          time.Now,
	}
}

func (s *paymentService) CreateCheckoutSession(ctx context.Context, userID uint, email string, input PlaceOrderInput) (*CheckoutSessionResponse, error) {
	if s.provider == nil {
		return nil, ErrPaymentNotConfigured
	}

	input.PaymentMethod = model.PaymentMethodCard
	order, err := s.orderService.ReserveOrder(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	if order.TotalCents == 0 {
		return s.confirmFreeOrder(ctx, userID, order)
	}

	req := stripepay.SessionRequest{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		CustomerEmail:  email,
		ShippingAmount: order.ShippingCents,
		CouponDiscount: order.CouponDiscountCents,
		TotalAmount:    order.TotalCents,
	}
	for _, item := range order.OrderItems {
		req.Lines = append(req.Lines, stripepay.SessionLine{
			Name:       item.ProductName,
			UnitAmount: item.UnitPriceCents - item.UnitDiscountCents,
			Quantity:   int64(item.Quantity),
		})
	}

	session, err := s.provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		logger.Error("Failed to create checkout session", err, map[string]interface{}{
			"user_id":  userID,
			"order_id": order.ID,
		})
		if abortErr := s.orderService.AbortOrder(order.ID); abortErr != nil {
			logger.Error("Failed to release order after provider error", abortErr, map[string]interface{}{
				"order_id": order.ID,
			})
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	if err := s.orderService.AttachPaymentSession(order.ID, paymentProviderStripe, session.ID); err != nil {
		logger.Error("Failed to store payment session", err, map[string]interface{}{
			"order_id":   order.ID,
			"session_id": session.ID,
		})
		if abortErr := s.orderService.AbortOrder(order.ID); abortErr != nil {
			logger.Error("Failed to release order after session error", abortErr, map[string]interface{}{
				"order_id": order.ID,
			})
		}
		return nil, err
	}
	s.orderService.CompleteCheckout(ctx, userID)

	logger.Info("Checkout session created", map[string]interface{}{
		"user_id":    userID,
		"order_id":   order.ID,
		"session_id": session.ID,
	})

	return &CheckoutSessionResponse{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		SessionID:       session.ID,
		URL:             session.URL,
		Total:           order.TotalCents,
		PaymentRequired: true,
	}, nil
}

func (s *paymentService) confirmFreeOrder(ctx context.Context, userID uint, order *model.Order) (*CheckoutSessionResponse, error) {
	confirmed, err := s.orderService.ConfirmWithoutPayment(order.ID, s.now())
	if err != nil {
		logger.Error("Failed to confirm zero-total order", err, map[string]interface{}{
			"user_id":  userID,
			"order_id": order.ID,
		})
		if abortErr := s.orderService.AbortOrder(order.ID); abortErr != nil {
			logger.Error("Failed to release order after confirmation error", abortErr, map[string]interface{}{
				"order_id": order.ID,
			})
		}
		return nil, err
	}
	s.orderService.CompleteCheckout(ctx, userID)
	s.metrics.RecordPaymentEvent("zero_total", "ok")

	logger.Info("Zero-total order confirmed without payment", map[string]interface{}{
		"user_id":  userID,
		"order_id": order.ID,
	})

	return &CheckoutSessionResponse{
		OrderID:     confirmed.ID,
		OrderNumber: confirmed.OrderNumber,
		Total:       confirmed.TotalCents,
	}, nil
}

func (s *paymentService) CreateCODOrder(ctx context.Context, userID uint, input PlaceOrderInput) (*model.Order, error) {
	input.PaymentMethod = model.PaymentMethodCOD
	return s.orderService.PlaceOrder(ctx, userID, input)
}

// HandleWebhook applies a verified provider event. Events the shop does not act on are
// acknowledged without changes.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.provider == nil {
		return ErrPaymentNotConfigured
	}

	event, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, stripepay.ErrUnsupportedEvent) {
			logger.Debug("Ignoring webhook event", map[string]interface{}{
				"error": err.Error(),
			})
			return nil
		}
		if errors.Is(err, stripepay.ErrInvalidSignature) {
			s.metrics.RecordPaymentEvent("unknown", "invalid_signature")
			return ErrInvalidWebhook
		}
		return err
	}

	log := logger.WithContext(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
		"session_id": event.SessionID,
	})

	switch event.Type {
	case stripepay.EventCheckoutCompleted, stripepay.EventPaymentSucceeded:
		if !event.Paid() {
			// delayed payment methods settle later with async_payment_succeeded
			log.Info("Checkout completed, payment not settled yet")
			s.metrics.RecordPaymentEvent(string(event.Type), "awaiting_payment")
			return nil
		}
		if _, err := s.orderService.MarkPaid(event.SessionID, s.now()); err != nil {
			s.metrics.RecordPaymentEvent(string(event.Type), "error")
			log.Error("Failed to mark order paid", err)
			return err
		}
	case stripepay.EventCheckoutExpired, stripepay.EventPaymentFailed:
		if _, err := s.orderService.MarkPaymentFailed(event.SessionID); err != nil {
			s.metrics.RecordPaymentEvent(string(event.Type), "error")
			log.Error("Failed to mark payment failed", err)
			return err
		}
	}

	s.metrics.RecordPaymentEvent(string(event.Type), "ok")
	log.Info("Webhook event processed")
	return nil
}
