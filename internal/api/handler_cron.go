package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lingges1210/tutorlink-sub001/internal/metrics"
)

// CronAllocate runs one allocation batch.
func (h *Handler) CronAllocate(c *gin.Context) {
	res, err := h.alloc.AssignBatch(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CronAutoComplete runs one auto-completion sweep.
func (h *Handler) CronAutoComplete(c *gin.Context) {
	metrics.SweepRuns.WithLabelValues("cron").Inc()
	res, err := h.sweeper.Run(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
