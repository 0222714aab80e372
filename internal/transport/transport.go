package transport

import (
	"net/http"
	"time"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	RSVP     *RSVPHandler
	Event    *EventHandler
	Invite   *InviteHandler
	Reminder *ReminderHandler
	Auth     *AuthHandler
}

type RouterConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64 // public routes, per client IP
}

func InitRoutes(h *Handlers, sessions middleware.TokenParser, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(cfg.Timeout))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")

	// Guest routes, authorized by token
	public := api.Group("", middleware.RateLimit(cfg.RequestsPerSecond))
	{
		public.GET("/rsvp/:token", h.RSVP.GetRSVP)
		public.POST("/rsvp/:token", h.RSVP.SubmitRSVP)
		public.GET("/companion-invite/:token", h.RSVP.GetCompanionInvite)

		auth := public.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
		}
	}

	// Owner routes
	owner := api.Group("", middleware.RequireOwner(sessions))
	{
		events := owner.Group("/events")
		{
			events.POST("", h.Event.CreateEvent)
			events.GET("", h.Event.GetEvents)
			events.GET("/:id", h.Event.GetEvent)
			events.PUT("/:id", h.Event.UpdateEvent)
			events.DELETE("/:id", h.Event.DeleteEvent)
			events.GET("/:id/stats", h.Event.GetEventStats)

			events.GET("/:id/invites", h.Invite.GetEventInvites)
			events.POST("/:id/invites", h.Invite.CreateInvite)
			events.POST("/:id/invites/import", h.Invite.ImportInvites)
			events.GET("/:id/invites/export", h.Invite.ExportInvites)
			events.POST("/:id/invites/send", h.Invite.SendEventInvitations)

			events.GET("/:id/reminders", h.Reminder.GetEventReminders)
		}

		invites := owner.Group("/invites")
		{
			invites.PUT("/:id", h.Invite.UpdateInvite)
			invites.DELETE("/:id", h.Invite.DeleteInvite)
			invites.GET("/:id/qr", h.Invite.GetInviteQR)
			invites.POST("/send-bulk", h.Invite.SendBulkInvitations)
		}

		owner.POST("/reminders", h.Reminder.SendReminders)
	}

	return router
}
