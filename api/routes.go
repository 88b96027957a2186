package api

import (
	"telehealth/assistant"
	"telehealth/config"
	"telehealth/db"
	"telehealth/mail"
	"telehealth/models"
	"telehealth/utils"

	"github.com/gin-gonic/gin"
)

// Services bundles what the handlers depend on.
type Services struct {
	Users      *db.UserRepository
	Mail       *mail.Service
	Assistant  *assistant.Service
	Workspaces *Workspaces
}

// RegisterRoutes mounts every API route on router.
func RegisterRoutes(router *gin.Engine, svc *Services, cfg *config.Config) {
	// --- Public Routes (No Auth Required) ---
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", func(c *gin.Context) { SignupHandler(c, svc, cfg) })
		authGroup.POST("/login", func(c *gin.Context) { LoginHandler(c, svc, cfg) })
		authGroup.GET("/verify-email", func(c *gin.Context) { VerifyEmailHandler(c, svc, cfg) })
		authGroup.POST("/verify-email/resend", func(c *gin.Context) { ResendVerificationHandler(c, svc, cfg) })
		authGroup.GET("/verify-email/status", func(c *gin.Context) { VerificationStatusHandler(c, svc, cfg) })
		authGroup.POST("/forgot-password", func(c *gin.Context) { ForgotPasswordHandler(c, svc, cfg) })
		authGroup.POST("/forgot-password/verify-code", func(c *gin.Context) { VerifyResetCodeHandler(c, svc, cfg) })
		authGroup.POST("/reset-password", func(c *gin.Context) { ResetPasswordHandler(c, svc, cfg) })
	}

	router.POST("/api/chat", func(c *gin.Context) { ChatHandler(c, svc, cfg) })

	// --- Protected Routes (Auth Required) ---
	authMiddleware := utils.AuthMiddleware(cfg)

	router.POST("/auth/logout", authMiddleware, func(c *gin.Context) { LogoutHandler(c, svc, cfg) })

	// Mailboxes hold reset codes, so they are only served to their owner and only when enabled
	if cfg.ExposeMailboxes {
		router.GET("/emails/:address", authMiddleware, func(c *gin.Context) { GetEmailsHandler(c, svc, cfg) })
	}

	profileGroup := router.Group("/profiles")
	profileGroup.Use(authMiddleware)
	{
		profileGroup.GET("/me", func(c *gin.Context) { GetProfileMeHandler(c, svc, cfg) })
		profileGroup.PUT("/me", func(c *gin.Context) { UpdateProfileMeHandler(c, svc, cfg) })
		profileGroup.PUT("/me/image", func(c *gin.Context) { UpdateProfileImageHandler(c, svc, cfg) })
		profileGroup.GET("", func(c *gin.Context) { SearchProfilesHandler(c, svc, cfg) })
	}

	appointmentGroup := router.Group("/appointments")
	appointmentGroup.Use(authMiddleware, utils.RequireRole(models.RoleDoctor))
	{
		appointmentGroup.GET("", func(c *gin.Context) { GetAppointmentsHandler(c, svc, cfg) })
		appointmentGroup.POST("/:id/:action", func(c *gin.Context) { AppointmentActionHandler(c, svc, cfg) })
	}

	patientOnly := utils.RequireRole(models.RolePatient)
	router.GET("/slots", authMiddleware, patientOnly, func(c *gin.Context) { GetSlotsHandler(c, svc, cfg) })
	bookingGroup := router.Group("/bookings")
	bookingGroup.Use(authMiddleware, patientOnly)
	{
		bookingGroup.POST("", func(c *gin.Context) { CreateBookingHandler(c, svc, cfg) })
		bookingGroup.GET("", func(c *gin.Context) { GetBookingsHandler(c, svc, cfg) })
		bookingGroup.POST("/:id/pay", func(c *gin.Context) { PayBookingHandler(c, svc, cfg) })
	}

	conversationGroup := router.Group("/conversations")
	conversationGroup.Use(authMiddleware)
	{
		conversationGroup.GET("", func(c *gin.Context) { GetConversationsHandler(c, svc, cfg) })
		conversationGroup.GET("/:id", func(c *gin.Context) { GetConversationHandler(c, svc, cfg) })
		conversationGroup.POST("/:id/messages", func(c *gin.Context) { SendMessageHandler(c, svc, cfg) })
	}
}

// workspaceFor resolves the caller's workspace. It responds 500 and returns
// nil when the auth context is missing.
func workspaceFor(c *gin.Context, svc *Services) (*Workspace, string) {
	email, role, ok := utils.CurrentUser(c)
	if !ok {
		utils.GinInternalServerError(c, "User email not found in context. Middleware issue?")
		return nil, ""
	}
	return svc.Workspaces.Get(email, role), email
}
