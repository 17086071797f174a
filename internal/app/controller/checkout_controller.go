package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/checkout"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type CheckoutController struct {
	checkoutService service.CheckoutService
}

func NewCheckoutController(checkoutService service.CheckoutService) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
	}
}

type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required,couponcode"`
}

// GetSummary returns totals, the coupon state and whether checkout may proceed
// GET /api/v1/checkout/summary
func (ctrl *CheckoutController) GetSummary(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	summary, err := ctrl.checkoutService.Summary(c.Request.Context(), userID)
	if err != nil {
		log.Error("Failed to build checkout summary", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "Failed to load checkout")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ApplyCoupon validates and applies a coupon to the session
// POST /api/v1/checkout/coupon
func (ctrl *CheckoutController) ApplyCoupon(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid apply coupon request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	app, err := ctrl.checkoutService.ApplyCoupon(c.Request.Context(), userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrCouponPending):
			apperrors.Conflict(c, apperrors.CouponPending, "Coupon validation is already in progress")
		case errors.Is(err, checkout.ErrCouponAlreadyApplied):
			apperrors.Conflict(c, apperrors.CouponAlreadyApplied, "Remove the applied coupon before using another")
		case errors.Is(err, checkout.ErrEmptyCouponCode):
			apperrors.BadRequest(c, apperrors.CouponCodeRequired, "Coupon code is required")
		default:
			log.Error("Failed to apply coupon", err, map[string]interface{}{
				"user_id": userID,
			})
			apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.InternalExternalAPI,
				"Coupon could not be checked. Please try again")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coupon": app,
	})
}

// RemoveCoupon drops the applied coupon
// DELETE /api/v1/checkout/coupon
func (ctrl *CheckoutController) RemoveCoupon(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	app, err := ctrl.checkoutService.RemoveCoupon(c.Request.Context(), userID)
	if err != nil {
		log.Error("Failed to remove coupon", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "Failed to remove coupon")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coupon": app,
	})
}
