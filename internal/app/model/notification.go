package model

import (
	"time"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeOrderStatus NotificationType = "order_status"
	NotificationTypePayment     NotificationType = "payment"
)

// Notification is an inbox entry about one of the user's orders
type Notification struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint             `gorm:"not null;index" json:"user_id"`
	Type   NotificationType `gorm:"type:varchar(50);not null;index" json:"type"`

	Title   string `gorm:"type:text;not null" json:"title"`
	Content string `gorm:"type:text;not null" json:"content"`
	Link    string `gorm:"type:text;not null" json:"link"`

	IsRead bool `gorm:"default:false;index" json:"is_read"`

	OrderID *uint `gorm:"index" json:"order_id,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationSettings holds a user's inbox preferences. Websocket pushes are not
// affected; these only decide what gets stored.
type NotificationSettings struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`

	OrderStatusNotification bool `gorm:"default:true" json:"order_status_notification"`
	PaymentNotification     bool `gorm:"default:true" json:"payment_notification"`
}

func (NotificationSettings) TableName() string {
	return "notification_settings"
}
