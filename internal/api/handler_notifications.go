package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ListNotifications returns the caller's feed, newest first, with the unread count.
func (h *Handler) ListNotifications(c *gin.Context) {
	p, err := h.page(c)
	if err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	items, err := h.store.ListNotifications(ctx, me(c).ID, p)
	if err != nil {
		fail(c, err)
		return
	}
	unread, err := h.store.CountUnread(ctx, me(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items, "unread": unread})
}

// MarkNotificationRead marks one entry read. Marking an entry twice is not an error.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	updated, err := h.store.MarkNotificationRead(c.Request.Context(), me(c).ID, c.Param("id"), time.Now().UTC())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// MarkAllNotificationsRead marks the whole feed read.
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.store.MarkAllNotificationsRead(c.Request.Context(), me(c).ID, time.Now().UTC())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
