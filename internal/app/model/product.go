package model

import (
	"time"

	"github.com/ikkim/storefront-backend/internal/pricing"
	"gorm.io/gorm"
)

type ProductCategory string

const (
	CategoryApparel     ProductCategory = "apparel"
	CategoryAccessories ProductCategory = "accessories"
	CategoryHome        ProductCategory = "home"
	CategoryGrocery     ProductCategory = "grocery"
)

// Product is a catalog entry. All money fields are in cents.
type Product struct {
	ID                      uint            `gorm:"primarykey" json:"id"`
	Name                    string          `gorm:"not null" json:"name"`
	Description             string          `gorm:"type:text" json:"description"`
	PriceCents              int64           `gorm:"not null" json:"price"`
	DiscountCents           int64           `gorm:"not null;default:0" json:"discount"`
	Category                ProductCategory `gorm:"type:varchar(50);index" json:"category"`
	StockQuantity           int             `gorm:"default:0" json:"stock_quantity"`
	ImageURL                string          `json:"image_url"`
	ShippingCharge          *int64          `json:"shipping_charge,omitempty"`
	FreeShippingThreshold   int64           `gorm:"default:0" json:"free_shipping_threshold,omitempty"`
	FreeShippingMinQuantity int             `gorm:"default:0" json:"free_shipping_min_quantity,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
	DeletedAt               gorm.DeletedAt  `gorm:"index" json:"-"`

	OrderItems []OrderItem `gorm:"foreignKey:ProductID" json:"-"`
	CartItems  []CartItem  `gorm:"foreignKey:ProductID" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

// ShippingPolicy returns nil when the product ships free of charge.
func (p *Product) ShippingPolicy() *pricing.ShippingPolicy {
	if p.ShippingCharge == nil || *p.ShippingCharge == 0 {
		return nil
	}
	return &pricing.ShippingPolicy{
		FlatCharge:                    pricing.Cents(*p.ShippingCharge),
		FreeShippingSubtotalThreshold: pricing.Cents(p.FreeShippingThreshold),
		FreeShippingMinQuantity:       p.FreeShippingMinQuantity,
	}
}

// ToLineItem prices quantity units of the product at its current catalog values.
func (p *Product) ToLineItem(quantity int) pricing.LineItem {
	stock := p.StockQuantity
	discount := p.DiscountCents
	if discount > p.PriceCents {
		discount = p.PriceCents
	}
	return pricing.LineItem{
		ProductID:       p.ID,
		UnitPrice:       pricing.Cents(p.PriceCents),
		Quantity:        quantity,
		PerUnitDiscount: pricing.Cents(discount),
		Shipping:        p.ShippingPolicy(),
		AvailableStock:  &stock,
	}
}
