package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type CouponController struct {
	couponService service.CouponService
}

func NewCouponController(couponService service.CouponService) *CouponController {
	return &CouponController{
		couponService: couponService,
	}
}

// ValidateCouponRequest mirrors the storefront's validation call. Amounts are cents.
type ValidateCouponRequest struct {
	Code     string               `json:"code"`
	Subtotal int64                `json:"subtotal" binding:"gte=0"`
	Items    []service.CouponItem `json:"items" binding:"dive"`
}

// ValidateCoupon answers {valid, discount, message} without touching any session
// POST /api/v1/coupons/validate
func (ctrl *CouponController) ValidateCoupon(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid coupon validation request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	result, err := ctrl.couponService.Validate(req.Code, req.Subtotal, req.Items)
	if err != nil {
		log.Error("Coupon validation failed", err, map[string]interface{}{
			"code": req.Code,
		})
		apperrors.InternalError(c, "Coupon could not be checked. Please try again")
		return
	}

	log.Debug("Coupon validated", map[string]interface{}{
		"code":     result.Code,
		"valid":    result.Valid,
		"discount": result.Discount,
	})
	c.JSON(http.StatusOK, result)
}
