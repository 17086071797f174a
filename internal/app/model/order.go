package model

import (
	"time"

	"gorm.io/gorm"
)

type OrderStatus string
type PaymentStatus string
type PaymentMethod string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipping  OrderStatus = "shipping"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"

	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"

	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCOD  PaymentMethod = "cod"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipping, OrderStatusCancelled},
	OrderStatusShipping:  {OrderStatusDelivered},
}

// CanTransitionTo reports whether the order lifecycle allows moving from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order snapshots the priced cart at checkout. Money fields are in cents.
type Order struct {
	ID                  uint           `gorm:"primarykey" json:"id"`
	OrderNumber         string         `gorm:"size:40;uniqueIndex;not null" json:"order_number"`
	UserID              uint           `gorm:"not null;index" json:"user_id"`
	Status              OrderStatus    `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	PaymentStatus       PaymentStatus  `gorm:"type:varchar(20);default:'pending'" json:"payment_status"`
	PaymentMethod       PaymentMethod  `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentProvider     string         `gorm:"type:varchar(50)" json:"payment_provider,omitempty"`
	PaymentSessionID    string         `gorm:"type:varchar(255);index" json:"payment_session_id,omitempty"`
	PaymentApprovedAt   *time.Time     `json:"payment_approved_at,omitempty"`
	Currency            string         `gorm:"size:3" json:"currency"`
	SubtotalCents       int64          `gorm:"not null" json:"subtotal"`
	ItemDiscountCents   int64          `gorm:"not null;default:0" json:"item_discount"`
	CouponDiscountCents int64          `gorm:"not null;default:0" json:"coupon_discount"`
	ShippingCents       int64          `gorm:"not null;default:0" json:"shipping"`
	TotalCents          int64          `gorm:"not null" json:"total"`
	CouponCode          string         `gorm:"size:32" json:"coupon_code,omitempty"`
	ShippingAddress     string         `gorm:"type:text" json:"shipping_address"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`

	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	OrderID           uint      `gorm:"not null;index" json:"order_id"`
	ProductID         uint      `gorm:"not null;index" json:"product_id"`
	ProductName       string    `gorm:"not null" json:"product_name"`
	Quantity          int       `gorm:"not null" json:"quantity"`
	UnitPriceCents    int64     `gorm:"not null" json:"unit_price"`
	UnitDiscountCents int64     `gorm:"not null;default:0" json:"unit_discount"`
	LineTotalCents    int64     `gorm:"not null" json:"line_total"`
	CreatedAt         time.Time `json:"created_at"`

	Order   Order   `gorm:"foreignKey:OrderID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
