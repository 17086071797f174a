package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/checkout"
	"github.com/ikkim/storefront-backend/internal/pricing"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrCouponUsageExhausted = errors.New("coupon usage limit reached")
)

// Rejection messages shown inline at checkout
const (
	msgCouponInvalid      = "Invalid coupon code"
	msgCouponExpired      = "Coupon has expired"
	msgCouponNotStarted   = "Coupon is not active yet"
	msgCouponUsageLimit   = "Coupon usage limit reached"
	msgCouponInapplicable = "Coupon does not apply to items in your cart"
	msgCouponApplied      = "Coupon applied"
)

// CouponItem is one cart line as sent to the validator. Amounts are cents.
type CouponItem struct {
	ProductID uint  `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
	UnitPrice int64 `json:"unit_price" binding:"gte=0"`
	Discount  int64 `json:"discount" binding:"gte=0"`
}

// CouponValidation is the validator's answer: {valid, discount, message}
type CouponValidation struct {
	Code     string `json:"code"`
	Valid    bool   `json:"valid"`
	Discount int64  `json:"discount"`
	Message  string `json:"message"`
}

type CouponService interface {
	Validate(code string, subtotal int64, items []CouponItem) (*CouponValidation, error)
	ValidateLines(code string, lines []pricing.LineItem) (*CouponValidation, error)
	ValidateLinesTx(tx *gorm.DB, code string, lines []pricing.LineItem) (*CouponValidation, error)
	RedeemTx(tx *gorm.DB, code string) error
}

type couponService struct {
	couponRepo repository.CouponRepository
	symbol     string
	now        func() time.Time
}

func NewCouponService(couponRepo repository.CouponRepository, currencySymbol string) CouponService {
	return &couponService{
		couponRepo: couponRepo,
		symbol:     currencySymbol,
		now:        time.Now,
	}
}

// Validate checks code against the posted cart. Business rejections come back as
// Valid=false with a message; only storage failures return an error.
func (s *couponService) Validate(code string, subtotal int64, items []CouponItem) (*CouponValidation, error) {
	lines := make([]pricing.LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, pricing.LineItem{
			ProductID:       item.ProductID,
			UnitPrice:       pricing.Cents(item.UnitPrice),
			Quantity:        item.Quantity,
			PerUnitDiscount: pricing.Cents(item.Discount),
		})
	}
	if len(lines) > 0 {
		subtotal = int64(pricing.ComputeSubtotal(lines))
	}
	return s.evaluate(checkout.NormalizeCode(code), subtotal, lines)
}

// ValidateLines is Validate for a cart the server already priced.
func (s *couponService) ValidateLines(code string, lines []pricing.LineItem) (*CouponValidation, error) {
	return s.evaluate(checkout.NormalizeCode(code), int64(pricing.ComputeSubtotal(lines)), lines)
}

// ValidateLinesTx runs ValidateLines against tx so order placement sees the coupon
// row it is about to redeem.
func (s *couponService) ValidateLinesTx(tx *gorm.DB, code string, lines []pricing.LineItem) (*CouponValidation, error) {
	scoped := &couponService{
		couponRepo: repository.NewCouponRepository(tx),
		symbol:     s.symbol,
		now:        s.now,
	}
	return scoped.ValidateLines(code, lines)
}

func (s *couponService) evaluate(code string, subtotal int64, lines []pricing.LineItem) (*CouponValidation, error) {
	result := &CouponValidation{Code: code}
	if code == "" {
		result.Message = msgCouponInvalid
		return result, nil
	}

	coupon, err := s.couponRepo.FindByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result.Message = msgCouponInvalid
			return result, nil
		}
		logger.Error("Failed to fetch coupon", err, map[string]interface{}{
			"code": code,
		})
		return nil, err
	}

	if msg := s.checkAvailability(coupon, subtotal); msg != "" {
		result.Message = msg
		logger.Debug("Coupon rejected", map[string]interface{}{
			"code":   code,
			"reason": msg,
		})
		return result, nil
	}

	eligible, ok := eligibleAmount(coupon, subtotal, lines)
	if !ok {
		result.Message = msgCouponInapplicable
		return result, nil
	}

	result.Valid = true
	result.Discount = computeCouponDiscount(coupon, eligible)
	result.Message = msgCouponApplied
	return result, nil
}

func (s *couponService) checkAvailability(coupon *model.Coupon, subtotal int64) string {
	now := s.now()
	switch {
	case !coupon.Active:
		return msgCouponInvalid
	case coupon.StartsAt != nil && now.Before(*coupon.StartsAt):
		return msgCouponNotStarted
	case coupon.ExpiresAt != nil && !now.Before(*coupon.ExpiresAt):
		return msgCouponExpired
	case coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit:
		return msgCouponUsageLimit
	case subtotal < coupon.MinSubtotalCents:
		return fmt.Sprintf("Minimum order amount is %s", pricing.FormatCents(pricing.Cents(coupon.MinSubtotalCents), s.symbol))
	}
	return ""
}

// eligibleAmount is the net (after item discounts) value of the lines the coupon covers.
// Without line detail the whole subtotal is eligible for catalog-wide coupons.
func eligibleAmount(coupon *model.Coupon, subtotal int64, lines []pricing.LineItem) (int64, bool) {
	if len(lines) == 0 {
		if len(coupon.ApplicableProductIDs) > 0 {
			return 0, false
		}
		return subtotal, true
	}

	var eligible int64
	matched := false
	for _, line := range lines {
		if !coupon.AppliesTo(line.ProductID) {
			continue
		}
		matched = true
		net := int64(line.LineSubtotal() - line.LineDiscount())
		if net > 0 {
			eligible += net
		}
	}
	return eligible, matched
}

// computeCouponDiscount floors percentage discounts to whole cents and never returns
// more than the eligible amount.
func computeCouponDiscount(coupon *model.Coupon, eligible int64) int64 {
	if eligible <= 0 {
		return 0
	}

	var discount int64
	switch coupon.DiscountType {
	case model.DiscountPercentage:
		discount = decimal.NewFromInt(eligible).
			Mul(decimal.NewFromInt(coupon.Value)).
			Div(decimal.NewFromInt(100)).
			Floor().
			IntPart()
		if coupon.MaxDiscountCents > 0 && discount > coupon.MaxDiscountCents {
			discount = coupon.MaxDiscountCents
		}
	case model.DiscountFixed:
		discount = coupon.Value
	}

	if discount > eligible {
		discount = eligible
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// RedeemTx consumes one use of the coupon inside the order transaction. The
// conditional update keeps concurrent checkouts from overshooting UsageLimit.
func (s *couponService) RedeemTx(tx *gorm.DB, code string) error {
	code = checkout.NormalizeCode(code)
	res := tx.Model(&model.Coupon{}).
		Where("code = ? AND (usage_limit = 0 OR used_count < usage_limit)", code).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		logger.Error("Failed to redeem coupon", res.Error, map[string]interface{}{
			"code": code,
		})
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCouponUsageExhausted
	}
	return nil
}
