package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/notisync/internal/push"
	"go.uber.org/zap"
)

// PushHandler exposes the push subscription surface over the manager
type PushHandler struct {
	manager *push.Manager
	logger  *zap.Logger
}

// NewPushHandler creates a new push handler
func NewPushHandler(manager *push.Manager, logger *zap.Logger) *PushHandler {
	return &PushHandler{
		manager: manager,
		logger:  logger,
	}
}

// GetStatus handles reporting the current push state for this device
// GET /api/v1/push/status
func (h *PushHandler) GetStatus(c *gin.Context) {
	status, err := h.manager.CheckStatus(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to check push status", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to check push status"})
		return
	}

	c.JSON(http.StatusOK, status)
}

// Subscribe handles enabling push delivery for this device
// POST /api/v1/push/subscribe
func (h *PushHandler) Subscribe(c *gin.Context) {
	err := h.manager.Subscribe(c.Request.Context())
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	h.logger.Error("Failed to subscribe to push", zap.Error(err))
	status, reason := failureReason(err)
	c.JSON(status, gin.H{"error": err.Error(), "reason": reason})
}

// Unsubscribe handles disabling push delivery for this device
// DELETE /api/v1/push/subscription
func (h *PushHandler) Unsubscribe(c *gin.Context) {
	err := h.manager.Unsubscribe(c.Request.Context())
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	h.logger.Error("Failed to unsubscribe from push", zap.Error(err))
	status, reason := failureReason(err)
	c.JSON(status, gin.H{"error": err.Error(), "reason": reason})
}

// failureReason maps manager errors to a status code and a stable reason the
// caller can use to stop offering terminal actions instead of retrying them
func failureReason(err error) (int, string) {
	switch {
	case errors.Is(err, push.ErrUnsupported):
		return http.StatusNotImplemented, "unsupported"
	case errors.Is(err, push.ErrPermissionDenied):
		return http.StatusForbidden, "permission-denied"
	case errors.Is(err, push.ErrServerNotConfigured):
		return http.StatusServiceUnavailable, "server-not-configured"
	case errors.Is(err, push.ErrBusy):
		return http.StatusConflict, "busy"
	default:
		return http.StatusBadGateway, "transient"
	}
}
