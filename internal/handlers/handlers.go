package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"cleanhub/internal/config"
	"cleanhub/internal/middleware"
	"cleanhub/internal/models"
)

// Services groups everything the HTTP layer calls into.
type Services struct {
	Accounts      Accounts
	Avatars       Avatars
	Profiles      Profiles
	Approvals     Approvals
	Bookings      Bookings
	Notifications Notifications
	Health        map[string]HealthCheck
}

type HandlerSet struct {
	log           zerolog.Logger
	cfg           *config.AppConfig
	accounts      Accounts
	avatars       Avatars
	profiles      Profiles
	approvals     Approvals
	bookings      Bookings
	notifications Notifications
	health        map[string]HealthCheck
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, svc Services) HandlerSet {
	return HandlerSet{
		log:           log,
		cfg:           cfg,
		accounts:      svc.Accounts,
		avatars:       svc.Avatars,
		profiles:      svc.Profiles,
		approvals:     svc.Approvals,
		bookings:      svc.Bookings,
		notifications: svc.Notifications,
		health:        svc.Health,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	authenticated := middleware.Auth(h.cfg.Security.CookieName, h.accounts, h.log)

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)

		auth.GET("/me", authenticated, h.Me)
		auth.PUT("/me", authenticated, h.UpdateMe)
		auth.POST("/me/avatar", authenticated, h.UploadAvatar)
		auth.POST("/device-tokens", authenticated, h.RegisterDeviceToken)
		auth.DELETE("/device-tokens/:token", authenticated, h.RemoveDeviceToken)
	}

	cleaners := router.Group("/cleaners")
	{
		cleanerOnly := middleware.RequireRoles(models.UserRoleCleaner)

		cleaners.POST("/profile", authenticated, h.CreateProfile)
		cleaners.GET("/profile", authenticated, cleanerOnly, h.OwnProfile)
		cleaners.PUT("/profile", authenticated, cleanerOnly, h.UpdateProfile)
		cleaners.GET("", h.ListCleaners)
		cleaners.GET("/:id", h.GetCleaner)
	}

	verification := router.Group("/verification")
	verification.Use(authenticated, middleware.RequireRoles(models.UserRoleAdmin))
	{
		verification.GET("/pending-profiles", h.PendingProfiles)
		verification.PUT("/approve-profile/:id", h.ApproveProfile)
		verification.PUT("/reject-profile/:id", h.RejectProfile)
		verification.GET("/profiles/:id/history", h.ProfileHistory)
		verification.GET("/stats", h.VerificationStats)
	}

	bookings := router.Group("/bookings")
	bookings.Use(authenticated)
	{
		bookings.POST("", middleware.RequireRoles(models.UserRoleClient), h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id/tracking", h.GetTracking)
		bookings.PUT("/:id/tracking", middleware.RequireRoles(models.UserRoleCleaner), h.UpdateTracking)
		bookings.PUT("/:id/cancel", h.CancelBooking)
		bookings.GET("/:id/tracking/ws", h.WatchTracking)
	}

	notifications := router.Group("/notifications")
	notifications.Use(authenticated)
	{
		notifications.GET("", h.ListNotifications)
		notifications.PUT("/:id/read", h.MarkNotificationRead)
	}
}
