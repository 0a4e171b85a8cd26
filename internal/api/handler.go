package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"github.com/Lingges1210/tutorlink-sub001/internal/auth"
	"github.com/Lingges1210/tutorlink-sub001/internal/booking"
	"github.com/Lingges1210/tutorlink-sub001/internal/logging"
	"github.com/Lingges1210/tutorlink-sub001/internal/model"
	"github.com/Lingges1210/tutorlink-sub001/internal/mw"
	"github.com/Lingges1210/tutorlink-sub001/internal/parse"
	"github.com/Lingges1210/tutorlink-sub001/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	svc     *booking.Service
	alloc   *booking.Allocator
	sweeper *booking.Sweeper
	webpush *webpush.Options
	catalog *mw.ResponseCache
}

// NewHandler creates a new API handler. A nil webpushOptions disables the
// VAPID key endpoint.
func NewHandler(s store.Store, svc *booking.Service, alloc *booking.Allocator, sweeper *booking.Sweeper, webpushOptions *webpush.Options) *Handler {
	registerValidators()
	return &Handler{
		store:   s,
		svc:     svc,
		alloc:   alloc,
		sweeper: sweeper,
		webpush: webpushOptions,
	}
}

const msgInvalidRequest = "invalid request"

// fail renders err with the status of its kind. Internal errors are logged
// and masked.
func fail(c *gin.Context, err error) {
	var be *booking.Error
	if !errors.As(err, &be) {
		be = booking.Internal(err)
	}
	status := statusOf(be.Kind)
	if status == http.StatusInternalServerError {
		logging.Error().Err(be).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": be.Message})
}

func statusOf(k booking.Kind) int {
	switch k {
	case booking.KindUnauthorized:
		return http.StatusUnauthorized
	case booking.KindForbidden:
		return http.StatusForbidden
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindValidation:
		return http.StatusBadRequest
	case booking.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// bind decodes the JSON body into req and answers 400 on failure. An empty
// body, announced or chunked, is accepted when optional is set.
func bind(c *gin.Context, req any, optional bool) bool {
	if optional && c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		logging.Debug().Err(err).Str("path", c.FullPath()).Msg("rejected request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidRequest})
		return false
	}
	return true
}

// instant parses a client timestamp in the configured campus time zone.
func (h *Handler) instant(raw, field string) (time.Time, error) {
	t, err := parse.Instant(raw, h.svc.Config().Location)
	if err != nil {
		return time.Time{}, booking.Validationf("%s must be an ISO-8601 timestamp.", field)
	}
	return t, nil
}

func me(c *gin.Context) *model.User {
	return auth.Principal(c)
}

func statusFilter(c *gin.Context) []model.SessionStatus {
	var out []model.SessionStatus
	for _, s := range c.QueryArray("status") {
		out = append(out, model.SessionStatus(s))
	}
	return out
}

// page reads the ?before=&limit= cursor shared by the feed and chat lists.
func (h *Handler) page(c *gin.Context) (store.Page, error) {
	var p store.Page
	if raw := c.Query("before"); raw != "" {
		t, err := h.instant(raw, "before")
		if err != nil {
			return p, err
		}
		p.Before = &t
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, booking.Validationf("limit must be a positive integer.")
		}
		p.Limit = n
	}
	return p, nil
}

// GetMe returns the caller's profile.
func (h *Handler) GetMe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": me(c)})
}

// ListSubjects returns the subject catalogue.
func (h *Handler) ListSubjects(c *gin.Context) {
	subjects, err := h.store.ListSubjects(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subjects": subjects})
}

type createSubjectRequest struct {
	Code  string `json:"code" binding:"required,max=32"`
	Title string `json:"title" binding:"required,max=255"`
}

// CreateSubject adds a subject to the catalogue and drops cached listings.
func (h *Handler) CreateSubject(c *gin.Context) {
	var req createSubjectRequest
	if !bind(c, &req, false) {
		return
	}
	subject := &model.Subject{
		Code:  strings.ToUpper(strings.TrimSpace(req.Code)),
		Title: strings.TrimSpace(req.Title),
	}
	if subject.Code == "" || subject.Title == "" {
		fail(c, booking.Validationf("code and title are required."))
		return
	}
	err := h.store.CreateSubject(c.Request.Context(), subject)
	if errors.Is(err, store.ErrDuplicate) {
		fail(c, booking.Conflictf("Subject code %s already exists.", subject.Code))
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	h.catalog.Invalidate()
	c.JSON(http.StatusCreated, gin.H{"subject": subject})
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
