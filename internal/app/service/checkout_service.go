package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/checkout"
	"github.com/ikkim/storefront-backend/internal/inflight"
	"github.com/ikkim/storefront-backend/internal/pricing"
	"github.com/ikkim/storefront-backend/internal/telemetry"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

const (
	couponUpdatedEvent = "coupon.updated"
	msgCouponEmptyCart = "Add items to your cart before applying a coupon"
	warnEmptyCart      = "Your cart is empty"
	warnCouponPending  = "Coupon validation is still in progress"
)

// DisplayTotals are the totals formatted with the shop's currency symbol
type DisplayTotals struct {
	Subtotal       string `json:"subtotal"`
	ItemDiscount   string `json:"item_discount"`
	CouponDiscount string `json:"coupon_discount"`
	Shipping       string `json:"shipping"`
	GrandTotal     string `json:"grand_total"`
}

// CheckoutSummary is what the checkout page renders before payment
type CheckoutSummary struct {
	Items       []CartLine                  `json:"items"`
	Totals      pricing.Totals              `json:"totals"`
	Display     DisplayTotals               `json:"display"`
	Coupon      *checkout.CouponApplication `json:"coupon"`
	CanCheckout bool                        `json:"can_checkout"`
	Warnings    []string                    `json:"warnings"`
}

type CheckoutService interface {
	Summary(ctx context.Context, userID uint) (*CheckoutSummary, error)
	ApplyCoupon(ctx context.Context, userID uint, code string) (*checkout.CouponApplication, error)
	RemoveCoupon(ctx context.Context, userID uint) (*checkout.CouponApplication, error)
}

type checkoutService struct {
	cartService   CartService
	couponService CouponService
	cartRepo      repository.CartRepository
	sessions      checkout.Store
	guard         inflight.Guard
	notifier      CartNotifier
	metrics       *telemetry.BusinessMetrics
	symbol        string
	now           func() time.Time
}

func NewCheckoutService(
	cartService CartService,
	couponService CouponService,
	cartRepo repository.CartRepository,
	sessions checkout.Store,
	guard inflight.Guard,
	notifier CartNotifier,
	metrics *telemetry.BusinessMetrics,
	currencySymbol string,
) CheckoutService {
	return &checkoutService{
		cartService:   cartService,
		couponService: couponService,
		cartRepo:      cartRepo,
		sessions:      sessions,
		guard:         guard,
		notifier:      notifier,
		metrics:       metrics,
		symbol:        currencySymbol,
		now:           time.Now,
	}
}

func (s *checkoutService) Summary(ctx context.Context, userID uint) (*CheckoutSummary, error) {
	view, err := s.cartService.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if message, err := s.refreshCoupon(ctx, userID, view); err != nil {
		logger.Warn("Failed to re-price applied coupon", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	} else if message != "" {
		warnings = append(warnings, message)
	}

	summary := &CheckoutSummary{
		Items:    view.Items,
		Totals:   view.Totals,
		Display:  s.display(view.Totals),
		Coupon:   view.Coupon,
		Warnings: append([]string{}, warnings...),
	}

	if len(view.Items) == 0 {
		summary.Warnings = append(summary.Warnings, warnEmptyCart)
	}
	for _, line := range view.Items {
		if line.ExceedsStock {
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("Only %d left of %s, reduce the quantity to continue", line.AvailableStock, line.Product.Name))
		}
	}
	if view.Coupon.IsPending() {
		summary.Warnings = append(summary.Warnings, warnCouponPending)
	}

	summary.CanCheckout = len(view.Items) > 0 && !view.Totals.StockExceeded
	return summary, nil
}

// refreshCoupon re-prices an applied coupon against the current cart. A coupon that
// no longer qualifies is dropped and its rejection message returned.
func (s *checkoutService) refreshCoupon(ctx context.Context, userID uint, view *CartView) (string, error) {
	if view.Coupon.AppliedCode() == "" || len(view.lines) == 0 {
		return "", nil
	}

	release, err := s.guard.Acquire(ctx, inflight.CouponKey(userID))
	if err != nil {
		if errors.Is(err, inflight.ErrBusy) {
			return "", nil
		}
		return "", err
	}
	defer release()

	validation, err := s.couponService.ValidateLines(view.Coupon.Code, view.lines)
	if err != nil {
		return "", err
	}
	if validation.Valid && validation.Discount == view.Coupon.DiscountCents {
		return "", nil
	}

	app := *view.Coupon
	if validation.Valid {
		app.DiscountCents = validation.Discount
		app.UpdatedAt = s.now()
	} else {
		app.Remove(s.now())
	}
	if err := s.sessions.Save(ctx, userID, &app); err != nil {
		return "", err
	}

	logger.Info("Applied coupon re-priced", map[string]interface{}{
		"user_id":  userID,
		"code":     view.Coupon.Code,
		"valid":    validation.Valid,
		"discount": validation.Discount,
	})
	view.Coupon = &app
	view.Totals = pricing.Summarize(view.lines, pricing.Cents(app.Discount()))

	if !validation.Valid {
		s.notify(userID, app.State)
		return validation.Message, nil
	}
	return "", nil
}

func (s *checkoutService) display(t pricing.Totals) DisplayTotals {
	return DisplayTotals{
		Subtotal:       pricing.FormatCents(t.Subtotal, s.symbol),
		ItemDiscount:   pricing.FormatCents(t.ItemDiscount, s.symbol),
		CouponDiscount: pricing.FormatCents(t.CouponDiscount, s.symbol),
		Shipping:       pricing.FormatCents(t.Shipping, s.symbol),
		GrandTotal:     pricing.FormatCents(t.GrandTotal, s.symbol),
	}
}

// ApplyCoupon drives Unapplied -> Pending -> Applied|Rejected. A rejection is returned
// once for display and the stored session goes back to Unapplied.
func (s *checkoutService) ApplyCoupon(ctx context.Context, userID uint, code string) (*checkout.CouponApplication, error) {
	release, err := s.guard.Acquire(ctx, inflight.CouponKey(userID))
	if err != nil {
		if errors.Is(err, inflight.ErrBusy) {
			s.metrics.RecordCouponAttempt("pending")
			return nil, checkout.ErrCouponPending
		}
		return nil, err
	}
	defer release()

	app, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	// holding the guard means nobody is validating, so a Pending state is left over
	// from an aborted request
	if app.IsPending() {
		_ = app.Fail(app.AttemptID, s.now())
	}

	attemptID, err := app.Begin(code, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, userID, app); err != nil {
		return nil, err
	}

	logger.Info("Validating coupon", map[string]interface{}{
		"user_id":    userID,
		"code":       app.Code,
		"attempt_id": attemptID,
	})

	validation, err := s.validate(userID, app.Code)
	if err != nil {
		s.metrics.RecordCouponAttempt("failed")
		s.failAttempt(ctx, userID, attemptID)
		return nil, err
	}

	// the session may have been cleared while the validator ran
	current, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := current.Resolve(attemptID, validation.Valid, validation.Discount, validation.Message, s.now()); err != nil {
		if errors.Is(err, checkout.ErrStaleAttempt) {
			logger.Info("Discarding stale coupon validation", map[string]interface{}{
				"user_id":    userID,
				"attempt_id": attemptID,
			})
			return current, nil
		}
		return nil, err
	}

	result := *current
	if !validation.Valid {
		current.Acknowledge(s.now())
	}
	if err := s.sessions.Save(ctx, userID, current); err != nil {
		return nil, err
	}

	if validation.Valid {
		s.metrics.RecordCouponAttempt("applied")
	} else {
		s.metrics.RecordCouponAttempt("rejected")
	}
	s.notify(userID, result.State)

	logger.Info("Coupon validation resolved", map[string]interface{}{
		"user_id":  userID,
		"code":     result.Code,
		"state":    result.State,
		"discount": result.DiscountCents,
	})
	return &result, nil
}

func (s *checkoutService) validate(userID uint, code string) (*CouponValidation, error) {
	cartItems, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return &CouponValidation{Code: code, Message: msgCouponEmptyCart}, nil
	}
	_, lines := PriceCartItems(cartItems)
	return s.couponService.ValidateLines(code, lines)
}

// failAttempt leaves the session as it was before the submission; the caller reports
// the collaborator failure as retryable.
func (s *checkoutService) failAttempt(ctx context.Context, userID uint, attemptID string) {
	app, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return
	}
	if err := app.Fail(attemptID, s.now()); err != nil {
		return
	}
	if err := s.sessions.Save(ctx, userID, app); err != nil {
		logger.Warn("Failed to roll back pending coupon", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

func (s *checkoutService) RemoveCoupon(ctx context.Context, userID uint) (*checkout.CouponApplication, error) {
	app, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	app.Remove(s.now())
	if err := s.sessions.Save(ctx, userID, app); err != nil {
		return nil, err
	}

	logger.Info("Coupon removed", map[string]interface{}{
		"user_id": userID,
	})
	s.notify(userID, app.State)
	return app, nil
}

func (s *checkoutService) notify(userID uint, state checkout.CouponState) {
	if s.notifier != nil {
		s.notifier.Notify(userID, couponUpdatedEvent, map[string]interface{}{"state": state})
	}
}
