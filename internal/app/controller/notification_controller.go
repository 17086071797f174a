package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

type NotificationController struct {
	service service.NotificationService
}

func NewNotificationController(service service.NotificationService) *NotificationController {
	return &NotificationController{
		service: service,
	}
}

type ListNotificationsQuery struct {
	Page     int    `form:"page" binding:"gte=0"`
	PageSize int    `form:"page_size" binding:"gte=0,max=100"`
	Type     string `form:"type" binding:"omitempty,oneof=order_status payment"`
	IsRead   *bool  `form:"is_read"`
}

// GetNotifications lists the user's inbox, newest first
// GET /api/v1/notifications
func (ctrl *NotificationController) GetNotifications(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var query ListNotificationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	var notifType *model.NotificationType
	if query.Type != "" {
		t := model.NotificationType(query.Type)
		notifType = &t
	}

	page, err := ctrl.service.GetNotifications(userID, notifType, query.IsRead, query.Page, query.PageSize)
	if err != nil {
		log.Error("Failed to fetch notifications", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "Failed to fetch notifications")
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetUnreadCount returns the number of unread notifications
// GET /api/v1/notifications/unread-count
func (ctrl *NotificationController) GetUnreadCount(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	count, err := ctrl.service.GetUnreadCount(userID)
	if err != nil {
		log.Error("Failed to count unread notifications", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"unread_count": count,
	})
}

// MarkAsRead marks one notification as read
// PUT /api/v1/notifications/:id/read
func (ctrl *NotificationController) MarkAsRead(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "notification ID")
	if !ok {
		return
	}

	notification, err := ctrl.service.MarkAsRead(id, userID)
	if err != nil {
		respondNotificationError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notification": notification,
	})
}

// MarkAllAsRead marks every unread notification as read
// PUT /api/v1/notifications/read-all
func (ctrl *NotificationController) MarkAllAsRead(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	updated, err := ctrl.service.MarkAllAsRead(userID)
	if err != nil {
		log.Error("Failed to mark notifications as read", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"updated": updated,
	})
}

// DeleteNotification removes a notification from the inbox
// DELETE /api/v1/notifications/:id
func (ctrl *NotificationController) DeleteNotification(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "notification ID")
	if !ok {
		return
	}

	if err := ctrl.service.DeleteNotification(id, userID); err != nil {
		respondNotificationError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification deleted",
	})
}

// GetSettings returns the user's inbox preferences
// GET /api/v1/notifications/settings
func (ctrl *NotificationController) GetSettings(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	settings, err := ctrl.service.GetNotificationSettings(userID)
	if err != nil {
		log.Error("Failed to fetch notification settings", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"settings": settings,
	})
}

// UpdateSettings changes the user's inbox preferences; omitted fields keep their value
// PUT /api/v1/notifications/settings
func (ctrl *NotificationController) UpdateSettings(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req service.UpdateNotificationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	settings, err := ctrl.service.UpdateNotificationSettings(userID, &req)
	if err != nil {
		log.Error("Failed to update notification settings", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"settings": settings,
	})
}

func respondNotificationError(c *gin.Context, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrNotificationNotFound):
		apperrors.NotFound(c, apperrors.ResourceNotFound, "Notification not found")
	case errors.Is(err, service.ErrNotificationForbidden):
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzOwnerOnly, "You can only manage your own notifications")
	default:
		log.Error("Failed to update notification", err)
		apperrors.InternalError(c, "")
	}
}
