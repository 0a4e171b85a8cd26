package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Lingges1210/tutorlink-sub001/internal/model"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

type subscriptionView struct {
	Endpoint  string    `json:"endpoint"`
	CreatedAt time.Time `json:"createdAt"`
}

// PutSubscription registers or refreshes a browser push subscription for the caller.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if !bind(c, &req, false) {
		return
	}

	subscription := model.PushSubscription{
		Endpoint:  req.Endpoint,
		UserID:    me(c).ID,
		P256DH:    req.P256DH,
		Auth:      req.Auth,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.SaveSubscription(c.Request.Context(), &subscription); err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

// GetSubscriptions lists the caller's registered devices.
func (h *Handler) GetSubscriptions(c *gin.Context) {
	subs, err := h.store.ListSubscriptions(c.Request.Context(), me(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	views := make([]subscriptionView, len(subs))
	for i, s := range subs {
		views[i] = subscriptionView{Endpoint: s.Endpoint, CreatedAt: s.CreatedAt}
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": views})
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the caller's subscriptions. The endpoint
// comes from the JSON body or, for clients that cannot send a DELETE body,
// from the raw ?endpoint= query.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	endpoint, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || endpoint == "" {
		var req deleteSubscriptionRequest
		if !bind(c, &req, false) {
			return
		}
		endpoint = req.Endpoint
	}

	deleted, err := h.store.DeleteUserSubscription(c.Request.Context(), me(c).ID, endpoint)
	if err != nil {
		fail(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// rawQueryParam reads a query value without URL-decoding it. Push endpoints
// are URLs and must match byte for byte.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}
