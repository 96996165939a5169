package api

import (
	"net/http"
	"strconv"

	"gymflow/gym-backend/internal/service"

	"github.com/gin-gonic/gin"
)

// NotificationHandler exposes the persisted notification inbox.
type NotificationHandler struct {
	notificationService service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List returns the caller's notifications, newest first.
// Query params: unread=true, limit, offset.
func (h *NotificationHandler) List(c *gin.Context) {
	recipientID, ok := getCallerObjectID(c)
	if !ok {
		return
	}

	unreadOnly := c.Query("unread") == "true"
	limit := int64(50)
	offset := int64(0)
	if limitStr := c.Query("limit"); limitStr != "" {
		if v, err := strconv.ParseInt(limitStr, 10, 64); err == nil && v > 0 {
			limit = v
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if v, err := strconv.ParseInt(offsetStr, 10, 64); err == nil && v >= 0 {
			offset = v
		}
	}

	notifications, err := h.notificationService.List(c.Request.Context(), recipientID, unreadOnly, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// MarkRead marks one notification read. Idempotent.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	recipientID, ok := getCallerObjectID(c)
	if !ok {
		return
	}
	notificationID, ok := parsePathObjectID(c, "notificationId")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), notificationID, recipientID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked read."})
}

// MarkAllRead marks every notification of the caller read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	recipientID, ok := getCallerObjectID(c)
	if !ok {
		return
	}

	if err := h.notificationService.MarkAllRead(c.Request.Context(), recipientID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked read."})
}

// Delete removes a notification owned by the caller.
func (h *NotificationHandler) Delete(c *gin.Context) {
	recipientID, ok := getCallerObjectID(c)
	if !ok {
		return
	}
	notificationID, ok := parsePathObjectID(c, "notificationId")
	if !ok {
		return
	}

	if err := h.notificationService.Delete(c.Request.Context(), notificationID, recipientID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted."})
}
