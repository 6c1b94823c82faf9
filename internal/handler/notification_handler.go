package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/notisync/internal/client"
	"github.com/yourorg/notisync/internal/model"
	"github.com/yourorg/notisync/internal/store"
	"go.uber.org/zap"
)

// NotificationHandler exposes the local feed surface over the store. It is a
// pure consumer: every read comes from the store's cache and every action
// goes through the store's operations.
type NotificationHandler struct {
	store  *store.Store
	logger *zap.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(store *store.Store, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		store:  store,
		logger: logger,
	}
}

type listQuery struct {
	Limit      int    `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
	Skip       int    `form:"skip,default=0" binding:"omitempty,min=0"`
	UnreadOnly bool   `form:"unread_only"`
	Type       string `form:"type" binding:"omitempty,oneof=sale inventory collection task system generic"`
}

// GetNotifications handles retrieving the notification feed
// GET /api/v1/notifications
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	var query listQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	opts := client.ListOptions{
		Limit:      query.Limit,
		Skip:       query.Skip,
		UnreadOnly: query.UnreadOnly,
		Type:       model.NotificationType(query.Type),
	}

	if err := h.store.Refresh(c.Request.Context(), opts); err != nil {
		h.logger.Error("Failed to refresh notifications", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to refresh notifications"})
		return
	}

	c.JSON(http.StatusOK, model.ListResponse{
		Success:     true,
		Data:        h.store.Snapshot(),
		UnreadCount: h.store.Unread(),
		Pagination:  model.Pagination{HasMore: h.store.HasMore()},
	})
}

// GetUnreadCount handles retrieving the unread counter from the cache
// GET /api/v1/notifications/count
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.store.Unread()})
}

// GetStats handles retrieving feed totals from the server
// GET /api/v1/notifications/stats
func (h *NotificationHandler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get notification stats", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to get notification stats"})
		return
	}

	c.JSON(http.StatusOK, model.StatsResponse{Success: true, Stats: *stats})
}

// MarkAsRead handles marking a notification as read
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	id := c.Param("id")

	if err := h.store.MarkAsRead(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to mark notification as read", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to mark notification as read"})
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkAllAsRead handles marking every notification as read
// PUT /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	if err := h.store.MarkAllAsRead(c.Request.Context()); err != nil {
		h.logger.Error("Failed to mark all notifications as read", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to mark all notifications as read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteNotification handles deleting a single notification
// DELETE /api/v1/notifications/:id
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	id := c.Param("id")

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to delete notification", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to delete notification"})
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteAllNotifications handles clearing the feed. The response reports the
// outcome per notification so the caller knows exactly what was deleted.
// DELETE /api/v1/notifications
func (h *NotificationHandler) DeleteAllNotifications(c *gin.Context) {
	results := h.store.DeleteAll(c.Request.Context())

	failed := make(map[string]string)
	for id, err := range results {
		if err != nil {
			failed[id] = err.Error()
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": len(failed) == 0,
		"deleted": len(results) - len(failed),
		"failed":  failed,
	})
}
