package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookingcore/internal/repository"
)

const defaultNotificationLimit = 50

// NotificationHandler serves the in-app notification feed for a tenant's
// staff.
type NotificationHandler struct {
	notifications *repository.NotificationRepository
	logger        *zap.Logger
}

func NewNotificationHandler(notifications *repository.NotificationRepository, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger,
	}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	tenantID := c.GetInt64("tenant_id")

	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	notifications, err := h.notifications.ListByTenant(c.Request.Context(), tenantID, limit)
	if err != nil {
		h.logger.Error("Failed to list notifications", zap.Int64("tenant_id", tenantID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// UnreadCount handles GET /api/notifications/unread
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	tenantID := c.GetInt64("tenant_id")

	count, err := h.notifications.UnreadCount(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("Failed to count unread notifications", zap.Int64("tenant_id", tenantID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkAsRead handles POST /api/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	tenantID := c.GetInt64("tenant_id")

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.notifications.MarkAsRead(c.Request.Context(), tenantID, id); err != nil {
		h.logger.Error("Failed to mark notification as read", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark as read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"read": true})
}
