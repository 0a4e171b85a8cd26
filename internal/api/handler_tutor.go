package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lingges1210/tutorlink-sub001/internal/booking"
	"github.com/Lingges1210/tutorlink-sub001/internal/schedule"
)

// ListTutorSessions returns sessions assigned to the caller.
func (h *Handler) ListTutorSessions(c *gin.Context) {
	h.sweeper.RunLazy(c.Request.Context())
	sessions, err := h.svc.ListForTutor(c.Request.Context(), me(c).ID, statusFilter(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// AcceptSession confirms a pending request.
func (h *Handler) AcceptSession(c *gin.Context) {
	sess, err := h.svc.Accept(c.Request.Context(), me(c).ID, c.Param("id"))
	respondSession(c, sess, err)
}

// RejectSession declines a pending request.
func (h *Handler) RejectSession(c *gin.Context) {
	var req reasonRequest
	if !bind(c, &req, true) {
		return
	}
	sess, err := h.svc.Reject(c.Request.Context(), me(c).ID, c.Param("id"), req.Reason)
	respondSession(c, sess, err)
}

// TutorCancelSession cancels a session assigned to the caller.
func (h *Handler) TutorCancelSession(c *gin.Context) {
	var req reasonRequest
	if !bind(c, &req, true) {
		return
	}
	sess, err := h.svc.CancelByTutor(c.Request.Context(), me(c).ID, c.Param("id"), req.Reason)
	respondSession(c, sess, err)
}

type proposeRequest struct {
	ProposedAt    string `json:"proposedAt" binding:"required"`
	ProposedEndAt string `json:"proposedEndAt"`
	Note          string `json:"note"`
}

// ProposeTime suggests a different time to the student.
func (h *Handler) ProposeTime(c *gin.Context) {
	var req proposeRequest
	if !bind(c, &req, false) {
		return
	}
	start, err := h.instant(req.ProposedAt, "proposedAt")
	if err != nil {
		fail(c, err)
		return
	}
	in := booking.ProposeInput{ProposedAt: start, Note: req.Note}
	if req.ProposedEndAt != "" {
		end, err := h.instant(req.ProposedEndAt, "proposedEndAt")
		if err != nil {
			fail(c, err)
			return
		}
		in.ProposedEndAt = &end
	}
	sess, err := h.svc.Propose(c.Request.Context(), me(c).ID, c.Param("id"), in)
	respondSession(c, sess, err)
}

// CompleteSession marks an ended session as done.
func (h *Handler) CompleteSession(c *gin.Context) {
	sess, err := h.svc.Complete(c.Request.Context(), me(c).ID, c.Param("id"))
	respondSession(c, sess, err)
}

// ApplyTutor files the caller's tutor application.
func (h *Handler) ApplyTutor(c *gin.Context) {
	u, err := h.svc.ApplyTutor(c.Request.Context(), me(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

type subjectsRequest struct {
	SubjectIDs []string `json:"subjectIds" binding:"required,max=50"`
}

// PutSubjects replaces what the caller teaches.
func (h *Handler) PutSubjects(c *gin.Context) {
	var req subjectsRequest
	if !bind(c, &req, false) {
		return
	}
	if err := h.svc.SetSubjects(c.Request.Context(), me(c).ID, req.SubjectIDs); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type slotRequest struct {
	Start string `json:"start" binding:"required,hhmm"`
	End   string `json:"end" binding:"required,hhmm"`
}

type dayRequest struct {
	Day   string        `json:"day"`
	Off   bool          `json:"off"`
	Slots []slotRequest `json:"slots" binding:"dive"`
}

type availabilityRequest struct {
	Days []dayRequest `json:"days" binding:"required,len=7,dive"`
}

// GetAvailability returns the caller's weekly availability.
func (h *Handler) GetAvailability(c *gin.Context) {
	a, err := h.svc.Availability(c.Request.Context(), me(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"availability": a})
}

// PutAvailability stores a new weekly availability document.
func (h *Handler) PutAvailability(c *gin.Context) {
	var req availabilityRequest
	if !bind(c, &req, false) {
		return
	}
	days := make([]schedule.DayRecord, len(req.Days))
	for i, d := range req.Days {
		days[i] = schedule.DayRecord{Day: d.Day, Off: d.Off, Slots: make([]schedule.Slot, len(d.Slots))}
		for j, s := range d.Slots {
			days[i].Slots[j] = schedule.Slot{Start: s.Start, End: s.End}
		}
	}
	a, err := h.svc.SaveAvailability(c.Request.Context(), me(c).ID, days)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"availability": a})
}

// ApproveTutor grants the tutor role to a pending applicant.
func (h *Handler) ApproveTutor(c *gin.Context) {
	u, err := h.svc.ApproveTutor(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}
