package model

import (
	"time"

	"gorm.io/gorm"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is a code shoppers apply at checkout. Value is a whole percent for percentage
// coupons and cents for fixed ones.
type Coupon struct {
	ID                   uint           `gorm:"primarykey" json:"id"`
	Code                 string         `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Description          string         `json:"description"`
	DiscountType         DiscountType   `gorm:"type:varchar(20);not null" json:"discount_type"`
	Value                int64          `gorm:"not null" json:"value"`
	MinSubtotalCents     int64          `gorm:"default:0" json:"min_subtotal"`
	MaxDiscountCents     int64          `gorm:"default:0" json:"max_discount,omitempty"`
	StartsAt             *time.Time     `json:"starts_at,omitempty"`
	ExpiresAt            *time.Time     `json:"expires_at,omitempty"`
	UsageLimit           int            `gorm:"default:0" json:"usage_limit,omitempty"`
	UsedCount            int            `gorm:"default:0" json:"used_count"`
	Active               bool           `gorm:"default:true" json:"active"`
	ApplicableProductIDs []uint         `gorm:"serializer:json;type:text" json:"applicable_product_ids,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Coupon) TableName() string {
	return "coupons"
}

// AppliesTo reports whether productID is eligible. An empty list covers the whole catalog.
func (c *Coupon) AppliesTo(productID uint) bool {
	if len(c.ApplicableProductIDs) == 0 {
		return true
	}
	for _, id := range c.ApplicableProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}
