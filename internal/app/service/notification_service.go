package service

import (
	"errors"
	"fmt"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrNotificationNotFound  = errors.New("notification not found")
	ErrNotificationForbidden = errors.New("notification belongs to another user")
)

const (
	defaultNotificationPageSize = 20
	maxNotificationPageSize     = 100
)

// NotificationService keeps the order inbox. It also sits in front of the websocket hub
// as the services' notifier, storing order events before forwarding every event.
type NotificationService interface {
	CartNotifier

	GetNotifications(userID uint, notifType *model.NotificationType, isRead *bool, page, pageSize int) (*NotificationPage, error)
	GetUnreadCount(userID uint) (int64, error)
	MarkAsRead(notificationID, userID uint) (*model.Notification, error)
	MarkAllAsRead(userID uint) (int64, error)
	DeleteNotification(notificationID, userID uint) error

	GetNotificationSettings(userID uint) (*model.NotificationSettings, error)
	UpdateNotificationSettings(userID uint, req *UpdateNotificationSettingsRequest) (*model.NotificationSettings, error)
}

type NotificationPage struct {
	Notifications []model.Notification `json:"notifications"`
	Total         int64                `json:"total"`
	UnreadCount   int64                `json:"unread_count"`
	Page          int                  `json:"page"`
	PageSize      int                  `json:"page_size"`
}

type UpdateNotificationSettingsRequest struct {
	OrderStatusNotification *bool `json:"order_status_notification"`
	PaymentNotification     *bool `json:"payment_notification"`
}

type notificationService struct {
	repo repository.NotificationRepository
	push CartNotifier
}

// NewNotificationService wraps push, which may be nil when no realtime channel is running.
func NewNotificationService(repo repository.NotificationRepository, push CartNotifier) NotificationService {
	return &notificationService{
		repo: repo,
		push: push,
	}
}

func (s *notificationService) Notify(userID uint, eventType string, data interface{}) {
	if event, ok := data.(OrderEvent); ok {
		if err := s.storeOrderEvent(event); err != nil {
			logger.Error("Failed to store order notification", err, map[string]interface{}{
				"user_id":  event.UserID,
				"order_id": event.OrderID,
			})
		}
	}
	if s.push != nil {
		s.push.Notify(userID, eventType, data)
	}
}

func (s *notificationService) storeOrderEvent(event OrderEvent) error {
	notifType, title, content, ok := describeOrderEvent(event)
	if !ok {
		return nil
	}

	settings, err := s.repo.GetNotificationSettings(event.UserID)
	if err != nil {
		return err
	}
	if notifType == model.NotificationTypePayment && !settings.PaymentNotification {
		return nil
	}
	if notifType == model.NotificationTypeOrderStatus && !settings.OrderStatusNotification {
		return nil
	}

	orderID := event.OrderID
	return s.repo.CreateNotification(&model.Notification{
		UserID:  event.UserID,
		Type:    notifType,
		Title:   title,
		Content: content,
		Link:    fmt.Sprintf("/orders/%d", event.OrderID),
		OrderID: &orderID,
	})
}

func describeOrderEvent(event OrderEvent) (model.NotificationType, string, string, bool) {
	switch event.Status {
	case model.OrderStatusConfirmed:
		if event.Paid {
			return model.NotificationTypePayment, "Payment received",
				fmt.Sprintf("We received your payment for order %s.", event.OrderNumber), true
		}
		return model.NotificationTypeOrderStatus, "Order confirmed",
			fmt.Sprintf("Your order %s has been confirmed.", event.OrderNumber), true
	case model.OrderStatusShipping:
		return model.NotificationTypeOrderStatus, "Order shipped",
			fmt.Sprintf("Your order %s is on its way.", event.OrderNumber), true
	case model.OrderStatusDelivered:
		return model.NotificationTypeOrderStatus, "Order delivered",
			fmt.Sprintf("Your order %s has been delivered.", event.OrderNumber), true
	case model.OrderStatusCancelled:
		return model.NotificationTypeOrderStatus, "Order cancelled",
			fmt.Sprintf("Your order %s has been cancelled.", event.OrderNumber), true
	}
	return "", "", "", false
}

func (s *notificationService) GetNotifications(
	userID uint,
	notifType *model.NotificationType,
	isRead *bool,
	page, pageSize int,
) (*NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultNotificationPageSize
	}
	if pageSize > maxNotificationPageSize {
		pageSize = maxNotificationPageSize
	}

	notifications, total, err := s.repo.GetNotifications(userID, repository.NotificationFilter{
		Type:   notifType,
		IsRead: isRead,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return nil, err
	}

	unread, err := s.repo.GetUnreadCount(userID)
	if err != nil {
		return nil, err
	}

	return &NotificationPage{
		Notifications: notifications,
		Total:         total,
		UnreadCount:   unread,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

func (s *notificationService) GetUnreadCount(userID uint) (int64, error) {
	return s.repo.GetUnreadCount(userID)
}

func (s *notificationService) MarkAsRead(notificationID, userID uint) (*model.Notification, error) {
	notification, err := s.findOwned(notificationID, userID)
	if err != nil {
		return nil, err
	}
	if notification.IsRead {
		return notification, nil
	}

	if err := s.repo.MarkAsRead(notificationID); err != nil {
		return nil, err
	}
	notification.IsRead = true
	return notification, nil
}

func (s *notificationService) MarkAllAsRead(userID uint) (int64, error) {
	return s.repo.MarkAllAsRead(userID)
}

func (s *notificationService) DeleteNotification(notificationID, userID uint) error {
	if _, err := s.findOwned(notificationID, userID); err != nil {
		return err
	}
	return s.repo.DeleteNotification(notificationID)
}

func (s *notificationService) GetNotificationSettings(userID uint) (*model.NotificationSettings, error) {
	return s.repo.GetNotificationSettings(userID)
}

func (s *notificationService) UpdateNotificationSettings(userID uint, req *UpdateNotificationSettingsRequest) (*model.NotificationSettings, error) {
	settings, err := s.repo.GetNotificationSettings(userID)
	if err != nil {
		return nil, err
	}

	if req.OrderStatusNotification != nil {
		settings.OrderStatusNotification = *req.OrderStatusNotification
	}
	if req.PaymentNotification != nil {
		settings.PaymentNotification = *req.PaymentNotification
	}

	if err := s.repo.UpdateNotificationSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *notificationService) findOwned(notificationID, userID uint) (*model.Notification, error) {
	notification, err := s.repo.GetNotificationByID(notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	if notification.UserID != userID {
		return nil, ErrNotificationForbidden
	}
	return notification, nil
}
