package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/Lingges1210/tutorlink-sub001/internal/auth"
	"github.com/Lingges1210/tutorlink-sub001/internal/logging"
	"github.com/Lingges1210/tutorlink-sub001/internal/metrics"
	"github.com/Lingges1210/tutorlink-sub001/internal/mw"
)

// RouterOptions carries the HTTP-layer settings.
type RouterOptions struct {
	Verifier   *auth.Verifier
	CronSecret string
	RateLimit  rate.Limit
	RateBurst  int
	CacheTTL   time.Duration
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery(), logging.GinLogger(), metrics.GinMiddleware())

	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(10)
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 20
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	rateLimiter := mw.RateLimiter(opts.RateLimit, opts.RateBurst)
	h.catalog = mw.NewResponseCache(opts.CacheTTL)

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cron := r.Group("/internal/cron")
	{
		cron.POST("/allocate", auth.CronGuard(opts.CronSecret, http.StatusUnauthorized), h.CronAllocate)
		cron.POST("/auto-complete", auth.CronGuard(opts.CronSecret, http.StatusForbidden), h.CronAutoComplete)
	}

	api := r.Group("/api")
	api.Use(rateLimiter, auth.Middleware(opts.Verifier, h.store))
	{
		api.GET("/me", h.GetMe)
		api.GET("/subjects", h.catalog.Middleware(), h.ListSubjects)

		api.POST("/sessions", h.CreateSession)
		api.GET("/sessions", h.ListSessions)
		api.POST("/sessions/check-conflict", h.CheckConflict)
		api.GET("/sessions/:id", h.GetSession)
		api.PATCH("/sessions/:id/reschedule", h.RescheduleSession)
		api.POST("/sessions/:id/cancel", h.CancelSession)
		api.POST("/sessions/:id/proposal/reject", h.RejectProposal)
		api.POST("/sessions/:id/proposal/accept", h.AcceptProposal)
		api.POST("/sessions/:id/rate", h.RateSession)

		api.POST("/tutor/apply", h.ApplyTutor)

		chat := api.Group("/chat")
		chat.GET("/channels", h.ListChannels)
		chat.GET("/channels/:id/messages", h.ListMessages)
		chat.POST("/channels/:id/messages", h.PostMessage)
		chat.POST("/channels/:id/read", h.MarkChannelRead)

		api.GET("/notifications", h.ListNotifications)
		api.POST("/notifications/read-all", h.MarkAllNotificationsRead)
		api.POST("/notifications/:id/read", h.MarkNotificationRead)

		api.GET("/push/subscriptions", h.GetSubscriptions)
		api.PUT("/push/subscriptions", h.PutSubscription)
		api.DELETE("/push/subscriptions", h.DeleteSubscription)
		api.GET("/push/vapid_public_key", h.GetVAPIDPublicKey)
	}

	// Applicants manage subjects and availability before approval.
	onboarding := api.Group("/tutor")
	{
		onboarding.PUT("/subjects", h.PutSubjects)
		onboarding.GET("/availability", h.GetAvailability)
		onboarding.PUT("/availability", h.PutAvailability)
	}

	tutor := api.Group("/tutor", auth.RequireTutor())
	{
		tutor.GET("/sessions", h.ListTutorSessions)
		tutor.POST("/sessions/:id/accept", h.AcceptSession)
		tutor.POST("/sessions/:id/reject", h.RejectSession)
		tutor.POST("/sessions/:id/cancel", h.TutorCancelSession)
		tutor.POST("/sessions/:id/propose", h.ProposeTime)
		tutor.POST("/sessions/:id/complete", h.CompleteSession)
	}

	admin := api.Group("/admin", auth.RequireAdmin())
	{
		admin.POST("/tutors/:id/approve", h.ApproveTutor)
		admin.POST("/subjects", h.CreateSubject)
	}

	return r
}
