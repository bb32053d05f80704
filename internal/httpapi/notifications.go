package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolattend/internal/auth"
	"schoolattend/internal/notification"
)

// ListNotifications returns the caller's unread notifications, newest first.
func (h *Handler) ListNotifications(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	items, err := h.notes.ListUnread(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	if items == nil {
		items = []notification.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": items})
}

// MarkNotificationRead flags a single notification as read. Ownership is
// enforced in the repository so one user cannot clear another's inbox.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	if err := h.notes.MarkRead(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notification marked as read"})
}
