package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListChannels returns the caller's chat channels with unread badges.
func (h *Handler) ListChannels(c *gin.Context) {
	h.sweeper.RunLazy(c.Request.Context())
	channels, err := h.svc.Channels(c.Request.Context(), me(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// ListMessages pages backwards through a channel.
func (h *Handler) ListMessages(c *gin.Context) {
	p, err := h.page(c)
	if err != nil {
		fail(c, err)
		return
	}
	msgs, err := h.svc.Messages(c.Request.Context(), me(c).ID, c.Param("id"), p.Before, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type postMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// PostMessage sends a message to an open channel.
func (h *Handler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if !bind(c, &req, false) {
		return
	}
	msg, err := h.svc.PostMessage(c.Request.Context(), me(c).ID, c.Param("id"), req.Body)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// MarkChannelRead clears the caller's unread badge.
func (h *Handler) MarkChannelRead(c *gin.Context) {
	if err := h.svc.MarkRead(c.Request.Context(), me(c).ID, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
