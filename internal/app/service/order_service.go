package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/checkout"
	"github.com/ikkim/storefront-backend/internal/pricing"
	"github.com/ikkim/storefront-backend/internal/telemetry"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrCheckoutBlocked        = errors.New("a cart line exceeds available stock")
	ErrCouponRejected         = errors.New("coupon rejected")
	ErrAddressRequired        = errors.New("shipping address is required")
	ErrInvalidOrderTransition = errors.New("order status transition not allowed")
	ErrPaymentRequired        = errors.New("order total requires payment")
)

const orderUpdatedEvent = "order.updated"

// OrderEvent is the payload of order.updated pushes
type OrderEvent struct {
	UserID      uint              `json:"-"`
	OrderID     uint              `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	Status      model.OrderStatus `json:"status"`
	Paid        bool              `json:"paid"`
}

// PlaceOrderInput is the checkout submission. AddressID wins over ShippingAddress;
// with neither, the user's default address is used.
type PlaceOrderInput struct {
	PaymentMethod   model.PaymentMethod
	CouponCode      string
	ShippingAddress string
	AddressID       *uint
}

// CouponRejection carries the validator's message for a coupon refused at placement
type CouponRejection struct {
	Code    string
	Message string
}

func (e *CouponRejection) Error() string {
	return fmt.Sprintf("coupon %s rejected: %s", e.Code, e.Message)
}

func (e *CouponRejection) Unwrap() error {
	return ErrCouponRejected
}

type OrderService interface {
	PlaceOrder(ctx context.Context, userID uint, input PlaceOrderInput) (*model.Order, error)
	ReserveOrder(ctx context.Context, userID uint, input PlaceOrderInput) (*model.Order, error)
	CompleteCheckout(ctx context.Context, userID uint)
	GetUserOrders(userID uint) ([]model.Order, error)
	GetOrderByID(userID, orderID uint) (*model.Order, error)
	CancelOrder(ctx context.Context, userID, orderID uint) (*model.Order, error)
	UpdateOrderStatus(orderID uint, status model.OrderStatus) (*model.Order, error)
	AttachPaymentSession(orderID uint, provider, sessionID string) error
	MarkPaid(sessionID string, paidAt time.Time) (*model.Order, error)
	ConfirmWithoutPayment(orderID uint, confirmedAt time.Time) (*model.Order, error)
	MarkPaymentFailed(sessionID string) (*model.Order, error)
	AbortOrder(orderID uint) error
	ExpireStalePendingOrders(ctx context.Context, olderThan time.Duration) (int, error)
}

type orderService struct {
	db            *gorm.DB
	orderRepo     repository.OrderRepository
	addressRepo   repository.AddressRepository
	couponService CouponService
	sessions      checkout.Store
	notifier      CartNotifier
	metrics       *telemetry.BusinessMetrics
	currency      string
	now           func() time.Time
}

func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	addressRepo repository.AddressRepository,
	couponService CouponService,
	sessions checkout.Store,
	notifier CartNotifier,
	metrics *telemetry.BusinessMetrics,
	currency string,
) OrderService {
	return &orderService{
		db:            db,
		orderRepo:     orderRepo,
		addressRepo:   addressRepo,
		couponService: couponService,
		sessions:      sessions,
		notifier:      notifier,
		metrics:       metrics,
		currency:      strings.ToUpper(currency),
		now:           time.Now,
	}
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// PlaceOrder snapshots the cart into an order. Stock, coupon usage, the order row and
// the cart are all changed in one transaction.
func (s *orderService) PlaceOrder(ctx context.Context, userID uint, input PlaceOrderInput) (*model.Order, error) {
	order, err := s.placeOrder(ctx, userID, input, true)
	if err != nil {
		return nil, err
	}
	s.CompleteCheckout(ctx, userID)
	return s.orderRepo.FindByID(order.ID)
}

// ReserveOrder places the order like PlaceOrder but leaves the cart and the coupon
// session alone. The caller finishes with CompleteCheckout or releases with AbortOrder.
func (s *orderService) ReserveOrder(ctx context.Context, userID uint, input PlaceOrderInput) (*model.Order, error) {
	order, err := s.placeOrder(ctx, userID, input, false)
	if err != nil {
		return nil, err
	}
	return s.orderRepo.FindByID(order.ID)
}

// CompleteCheckout empties what is left of the cart and resets the coupon session.
func (s *orderService) CompleteCheckout(ctx context.Context, userID uint) {
	if err := s.db.Where("user_id = ?", userID).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to clear cart after order", err, map[string]interface{}{
			"user_id": userID,
		})
	}
	if err := s.sessions.Reset(ctx, userID); err != nil {
		logger.Warn("Failed to reset checkout session after order", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
	if s.notifier != nil {
		s.notifier.Notify(userID, cartUpdatedEvent, map[string]interface{}{"action": "checkout"})
	}
}

func (s *orderService) placeOrder(ctx context.Context, userID uint, input PlaceOrderInput, clearCart bool) (*model.Order, error) {
	if input.PaymentMethod == "" {
		input.PaymentMethod = model.PaymentMethodCard
	}

	shippingAddress, err := s.resolveAddress(userID, input)
	if err != nil {
		return nil, err
	}

	couponCode := checkout.NormalizeCode(input.CouponCode)
	if couponCode == "" {
		if app, err := s.sessions.Load(ctx, userID); err == nil {
			couponCode = app.AppliedCode()
		}
	}

	logger.Info("Placing order from cart", map[string]interface{}{
		"user_id":        userID,
		"payment_method": input.PaymentMethod,
		"coupon_code":    couponCode,
	})

	var order *model.Order
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var cartItems []model.CartItem
		if err := tx.Where("user_id = ?", userID).Order("id ASC").Find(&cartItems).Error; err != nil {
			return err
		}
		if len(cartItems) == 0 {
			return ErrEmptyCart
		}

		products := make([]model.Product, len(cartItems))
		lines := make([]pricing.LineItem, len(cartItems))
		for i, item := range cartItems {
			if err := tx.
				Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&products[i], item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrCheckoutBlocked
				}
				return err
			}
			lines[i] = products[i].ToLineItem(item.Quantity)
		}

		if pricing.AnyExceedsStock(lines) {
			return ErrCheckoutBlocked
		}

		var couponDiscount pricing.Cents
		if couponCode != "" {
			validation, err := s.couponService.ValidateLinesTx(tx, couponCode, lines)
			if err != nil {
				return err
			}
			if !validation.Valid {
				return &CouponRejection{Code: couponCode, Message: validation.Message}
			}
			if err := s.couponService.RedeemTx(tx, couponCode); err != nil {
				if errors.Is(err, ErrCouponUsageExhausted) {
					return &CouponRejection{Code: couponCode, Message: msgCouponUsageLimit}
				}
				return err
			}
			couponDiscount = pricing.Cents(validation.Discount)
		}

		totals := pricing.Summarize(lines, couponDiscount)

		orderItems := make([]model.OrderItem, len(lines))
		for i, line := range lines {
			orderItems[i] = model.OrderItem{
				ProductID:         line.ProductID,
				ProductName:       products[i].Name,
				Quantity:          line.Quantity,
				UnitPriceCents:    int64(line.UnitPrice),
				UnitDiscountCents: int64(line.PerUnitDiscount),
				LineTotalCents:    int64(line.LineSubtotal() - line.LineDiscount()),
			}

			if err := tx.Model(&model.Product{}).
				Where("id = ?", line.ProductID).
				Update("stock_quantity", gorm.Expr("stock_quantity - ?", line.Quantity)).Error; err != nil {
				return err
			}
		}

		order = &model.Order{
			OrderNumber:         newOrderNumber(s.now()),
			UserID:              userID,
			Status:              model.OrderStatusPending,
			PaymentStatus:       model.PaymentStatusPending,
			PaymentMethod:       input.PaymentMethod,
			Currency:            s.currency,
			SubtotalCents:       int64(totals.Subtotal),
			ItemDiscountCents:   int64(totals.ItemDiscount),
			CouponDiscountCents: int64(totals.CouponDiscount),
			ShippingCents:       int64(totals.Shipping),
			TotalCents:          int64(totals.GrandTotal),
			CouponCode:          couponCode,
			ShippingAddress:     shippingAddress,
			OrderItems:          orderItems,
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		if !clearCart {
			return nil
		}
		return tx.Where("user_id = ?", userID).Delete(&model.CartItem{}).Error
	})
	if err != nil {
		s.recordPlacementFailure(userID, err)
		return nil, err
	}

	s.metrics.RecordOrder(string(order.PaymentMethod), order.TotalCents)

	logger.Info("Order placed successfully", map[string]interface{}{
		"user_id":      userID,
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"total":        order.TotalCents,
		"item_count":   len(order.OrderItems),
	})

	return order, nil
}

func (s *orderService) recordPlacementFailure(userID uint, err error) {
	fields := map[string]interface{}{"user_id": userID, "reason": err.Error()}
	switch {
	case errors.Is(err, ErrEmptyCart):
		s.metrics.RecordCheckoutBlocked("empty_cart")
		logger.Warn("Cannot place order: cart is empty", fields)
	case errors.Is(err, ErrCheckoutBlocked):
		s.metrics.RecordCheckoutBlocked("stock_exceeded")
		logger.Warn("Cannot place order: stock exceeded", fields)
	case errors.Is(err, ErrCouponRejected):
		s.metrics.RecordCheckoutBlocked("coupon_rejected")
		logger.Warn("Cannot place order: coupon rejected", fields)
	default:
		logger.Error("Failed to place order", err, map[string]interface{}{"user_id": userID})
	}
}

func (s *orderService) resolveAddress(userID uint, input PlaceOrderInput) (string, error) {
	if input.AddressID != nil {
		address, err := s.addressRepo.FindByID(*input.AddressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrAddressNotFound
			}
			return "", err
		}
		if address.UserID != userID {
			return "", ErrAddressNotFound
		}
		return address.Label(), nil
	}

	if addr := strings.TrimSpace(input.ShippingAddress); addr != "" {
		return addr, nil
	}

	address, err := s.addressRepo.FindDefault(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrAddressRequired
		}
		return "", err
	}
	return address.Label(), nil
}

func (s *orderService) GetUserOrders(userID uint) ([]model.Order, error) {
	orders, err := s.orderRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to fetch user orders", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return orders, nil
}

func (s *orderService) GetOrderByID(userID, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		logger.Warn("Order access denied", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// CancelOrder lets a shopper cancel an order that has not been confirmed yet.
func (s *orderService) CancelOrder(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	order, err := s.GetOrderByID(userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusPending {
		return nil, ErrInvalidOrderTransition
	}

	paymentStatus := model.PaymentStatusFailed
	if order.PaymentStatus == model.PaymentStatusCompleted {
		paymentStatus = model.PaymentStatusRefunded
	}
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return cancelOrderTx(tx, order.ID, paymentStatus)
	}); err != nil {
		return nil, err
	}

	logger.Info("Order cancelled by user", map[string]interface{}{
		"user_id":  userID,
		"order_id": orderID,
	})
	s.notifyOrder(order, model.OrderStatusCancelled)
	return s.orderRepo.FindByID(orderID)
}

func (s *orderService) UpdateOrderStatus(orderID uint, status model.OrderStatus) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !order.Status.CanTransitionTo(status) {
		logger.Warn("Rejected order status transition", map[string]interface{}{
			"order_id": orderID,
			"from":     order.Status,
			"to":       status,
		})
		return nil, ErrInvalidOrderTransition
	}

	if status == model.OrderStatusCancelled {
		paymentStatus := order.PaymentStatus
		if paymentStatus == model.PaymentStatusCompleted {
			paymentStatus = model.PaymentStatusRefunded
		}
		err = s.db.Transaction(func(tx *gorm.DB) error {
			return cancelOrderTx(tx, order.ID, paymentStatus)
		})
	} else {
		order.Status = status
		if status == model.OrderStatusDelivered && order.PaymentMethod == model.PaymentMethodCOD {
			order.PaymentStatus = model.PaymentStatusCompleted
			paidAt := s.now()
			order.PaymentApprovedAt = &paidAt
		}
		err = s.orderRepo.Update(order)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Order status updated", map[string]interface{}{
		"order_id": orderID,
		"status":   status,
	})
	s.notifyOrder(order, status)
	return s.orderRepo.FindByID(orderID)
}

func (s *orderService) AttachPaymentSession(orderID uint, provider, sessionID string) error {
	return s.orderRepo.UpdatePaymentSession(orderID, provider, sessionID)
}

// MarkPaid confirms the order behind a completed payment session. Replayed webhooks
// are no-ops.
func (s *orderService) MarkPaid(sessionID string, paidAt time.Time) (*model.Order, error) {
	order, err := s.findBySession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.markPaid(order, paidAt, map[string]interface{}{"session_id": sessionID})
}

// ConfirmWithoutPayment confirms a card order whose total is zero, so there is nothing
// to charge.
func (s *orderService) ConfirmWithoutPayment(orderID uint, confirmedAt time.Time) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.TotalCents != 0 {
		return nil, ErrPaymentRequired
	}
	return s.markPaid(order, confirmedAt, map[string]interface{}{"payment": "none"})
}

func (s *orderService) markPaid(order *model.Order, paidAt time.Time, fields map[string]interface{}) (*model.Order, error) {
	fields["order_id"] = order.ID
	if order.PaymentStatus == model.PaymentStatusCompleted {
		return order, nil
	}
	if order.Status == model.OrderStatusCancelled {
		// money arrived for an order the expiry job already released
		logger.Error("Payment completed for cancelled order", ErrInvalidOrderTransition, fields)
		order.PaymentStatus = model.PaymentStatusCompleted
		order.PaymentApprovedAt = &paidAt
		if err := s.orderRepo.Update(order); err != nil {
			return nil, err
		}
		return order, nil
	}

	order.PaymentStatus = model.PaymentStatusCompleted
	order.PaymentApprovedAt = &paidAt
	if order.Status == model.OrderStatusPending {
		order.Status = model.OrderStatusConfirmed
	}
	if err := s.orderRepo.Update(order); err != nil {
		return nil, err
	}

	logger.Info("Order paid", fields)
	s.notifyOrder(order, order.Status)
	return order, nil
}

// MarkPaymentFailed cancels a still-pending order whose payment session failed or expired.
func (s *orderService) MarkPaymentFailed(sessionID string) (*model.Order, error) {
	order, err := s.findBySession(sessionID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == model.PaymentStatusCompleted || order.Status != model.OrderStatusPending {
		return order, nil
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return cancelOrderTx(tx, order.ID, model.PaymentStatusFailed)
	}); err != nil {
		return nil, err
	}

	logger.Info("Order payment failed, order cancelled", map[string]interface{}{
		"order_id":   order.ID,
		"session_id": sessionID,
	})
	s.notifyOrder(order, model.OrderStatusCancelled)
	return s.orderRepo.FindByID(order.ID)
}

// AbortOrder releases an order whose payment session could not be created.
func (s *orderService) AbortOrder(orderID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return cancelOrderTx(tx, orderID, model.PaymentStatusFailed)
	})
}

func (s *orderService) ExpireStalePendingOrders(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := s.orderRepo.FindStalePending(model.PaymentMethodCard, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, order := range stale {
		if ctx.Err() != nil {
			break
		}
		if err := s.db.Transaction(func(tx *gorm.DB) error {
			return cancelOrderTx(tx, order.ID, model.PaymentStatusFailed)
		}); err != nil {
			logger.Error("Failed to expire order", err, map[string]interface{}{
				"order_id": order.ID,
			})
			continue
		}
		expired++
		s.notifyOrder(&order, model.OrderStatusCancelled)
	}

	s.metrics.RecordOrdersExpired(expired)
	return expired, ctx.Err()
}

func (s *orderService) findBySession(sessionID string) (*model.Order, error) {
	order, err := s.orderRepo.FindByPaymentSessionID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) notifyOrder(order *model.Order, status model.OrderStatus) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(order.UserID, orderUpdatedEvent, OrderEvent{
		UserID:      order.UserID,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      status,
		Paid:        order.PaymentStatus == model.PaymentStatusCompleted && status != model.OrderStatusCancelled,
	})
}

// cancelOrderTx cancels the order, puts its items back in stock and gives back the
// coupon use. Orders that are already cancelled are left untouched.
func cancelOrderTx(tx *gorm.DB, orderID uint, paymentStatus model.PaymentStatus) error {
	var order model.Order
	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("OrderItems").
		First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if order.Status == model.OrderStatusCancelled {
		return nil
	}

	for _, item := range order.OrderItems {
		if err := tx.Model(&model.Product{}).
			Where("id = ?", item.ProductID).
			Update("stock_quantity", gorm.Expr("stock_quantity + ?", item.Quantity)).Error; err != nil {
			return err
		}
	}

	if order.CouponCode != "" {
		if err := tx.Model(&model.Coupon{}).
			Where("code = ? AND used_count > 0", order.CouponCode).
			Update("used_count", gorm.Expr("used_count - 1")).Error; err != nil {
			return err
		}
	}

	return tx.Model(&model.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":         model.OrderStatusCancelled,
			"payment_status": paymentStatus,
		}).Error
}
