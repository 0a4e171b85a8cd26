package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lingges1210/tutorlink-sub001/internal/booking"
)

type createSessionRequest struct {
	TutorID     string `json:"tutorId"`
	SubjectID   string `json:"subjectId" binding:"required"`
	ScheduledAt string `json:"scheduledAt" binding:"required"`
	DurationMin int    `json:"durationMin"`
	Note        string `json:"note" binding:"max=1000"`
}

// CreateSession books a new session for the caller.
func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if !bind(c, &req, false) {
		return
	}
	start, err := h.instant(req.ScheduledAt, "scheduledAt")
	if err != nil {
		fail(c, err)
		return
	}
	sess, err := h.svc.Create(c.Request.Context(), booking.CreateInput{
		StudentID:   me(c).ID,
		TutorID:     req.TutorID,
		SubjectID:   req.SubjectID,
		ScheduledAt: start,
		DurationMin: req.DurationMin,
		Note:        req.Note,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": sess.ID, "session": sess})
}

// ListSessions returns the caller's bookings as a student.
func (h *Handler) ListSessions(c *gin.Context) {
	h.sweeper.RunLazy(c.Request.Context())
	sessions, err := h.svc.ListForStudent(c.Request.Context(), me(c).ID, statusFilter(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetSession returns one session the caller takes part in.
func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.svc.Get(c.Request.Context(), me(c).ID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

type checkConflictRequest struct {
	ScheduledAt string `json:"scheduledAt" binding:"required"`
	DurationMin int    `json:"durationMin"`
	TutorID     string `json:"tutorId"`
	SessionID   string `json:"sessionId"`
}

// CheckConflict reports whether a window is free for the caller and tutor.
func (h *Handler) CheckConflict(c *gin.Context) {
	var req checkConflictRequest
	if !bind(c, &req, false) {
		return
	}
	start, err := h.instant(req.ScheduledAt, "scheduledAt")
	if err != nil {
		fail(c, err)
		return
	}
	res, err := h.svc.CheckConflict(c.Request.Context(), booking.CheckInput{
		StudentID:   me(c).ID,
		TutorID:     req.TutorID,
		SessionID:   req.SessionID,
		ScheduledAt: start,
		DurationMin: req.DurationMin,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type rescheduleRequest struct {
	ScheduledAt string `json:"scheduledAt" binding:"required"`
	DurationMin int    `json:"durationMin"`
}

// RescheduleSession moves the caller's session and sends it back to PENDING.
func (h *Handler) RescheduleSession(c *gin.Context) {
	var req rescheduleRequest
	if !bind(c, &req, false) {
		return
	}
	start, err := h.instant(req.ScheduledAt, "scheduledAt")
	if err != nil {
		fail(c, err)
		return
	}
	sess, err := h.svc.Reschedule(c.Request.Context(), me(c).ID, c.Param("id"), booking.RescheduleInput{
		ScheduledAt: start,
		DurationMin: req.DurationMin,
	})
	respondSession(c, sess, err)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// CancelSession cancels a session the caller booked.
func (h *Handler) CancelSession(c *gin.Context) {
	var req reasonRequest
	if !bind(c, &req, true) {
		return
	}
	sess, err := h.svc.CancelByStudent(c.Request.Context(), me(c).ID, c.Param("id"), req.Reason)
	respondSession(c, sess, err)
}

// RejectProposal keeps the original time.
func (h *Handler) RejectProposal(c *gin.Context) {
	sess, err := h.svc.RejectProposal(c.Request.Context(), me(c).ID, c.Param("id"))
	respondSession(c, sess, err)
}

// AcceptProposal moves the session to the tutor's proposed time.
func (h *Handler) AcceptProposal(c *gin.Context) {
	sess, err := h.svc.AcceptProposal(c.Request.Context(), me(c).ID, c.Param("id"))
	respondSession(c, sess, err)
}

type rateRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// RateSession records the caller's rating of a completed session.
func (h *Handler) RateSession(c *gin.Context) {
	var req rateRequest
	if !bind(c, &req, false) {
		return
	}
	res, err := h.svc.Rate(c.Request.Context(), me(c).ID, c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func respondSession(c *gin.Context, sess any, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}
