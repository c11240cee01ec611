package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"mediconnect-server/internal/appointments"
	"mediconnect-server/internal/config"
	"mediconnect-server/internal/handlers"
	"mediconnect-server/internal/middleware"
	"mediconnect-server/internal/models"
	"mediconnect-server/internal/notify"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, service *appointments.Service, mailer notify.EmailSender, logger *zap.Logger) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg, mailer, logger)
	providerHandler := handlers.NewProviderHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(service)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.GET("/verify-email", authHandler.VerifyEmail)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// Provider directory
		providerRoutes := private.Group("/providers")
		{
			providerRoutes.GET("", providerHandler.GetProviders)
			providerRoutes.GET("/:id", providerHandler.GetProviderByID)

			// Providers can edit their own directory entry
			providerRoutes.PUT("/profile", middleware.RoleAuthMiddleware(models.RoleProvider), providerHandler.UpdateProviderProfile)
		}

		// Appointment lifecycle. Authorization beyond the role gates lives
		// in the lifecycle service, which checks the caller against the
		// appointment's parties.
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.BookAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.GET("/:id/calendar", appointmentHandler.DownloadCalendar)
			appointmentRoutes.POST("/:id/cancel", appointmentHandler.CancelAppointment)
			appointmentRoutes.POST("/:id/complete", middleware.RoleAuthMiddleware(models.RoleProvider), appointmentHandler.CompleteAppointment)
			appointmentRoutes.POST("/:id/no-show", middleware.RoleAuthMiddleware(models.RoleProvider), appointmentHandler.MarkNoShow)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
