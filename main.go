package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"

	"mediconnect-server/internal/appointments"
	"mediconnect-server/internal/config"
	"mediconnect-server/internal/logging"
	"mediconnect-server/internal/models"
	"mediconnect-server/internal/notify"
	"mediconnect-server/internal/routes"
)

func main() {
	// Load environment variables; missing .env just means we rely on the
	// process environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger := logging.NewLogger(cfg.Environment)
	defer logger.Sync()

	// Initialize database connection
	db, err := models.InitDB(mysql.Open(cfg.Database.DSN))
	if err != nil {
		logger.Fatal("Error connecting to database", zap.Error(err))
	}

	// Outbound email: SendGrid when configured, logging stub otherwise.
	var mailer notify.EmailSender
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.Mailer.SendGridAPIKey,
		FromEmail: cfg.Mailer.FromEmail,
		FromName:  cfg.Mailer.FromName,
	}, logger); sender != nil {
		mailer = sender
	} else {
		mailer = notify.NewStubEmailSender(logger)
	}

	// Appointment lifecycle core
	notifier := notify.NewService(mailer, notify.NewGormUserStore(db), cfg.Location, logger)
	repo := appointments.NewGormRepository(db)
	checker := appointments.NewAvailabilityChecker(repo, cfg.Location)
	service := appointments.NewService(repo, checker, notifier, cfg.Location, logger)

	// Daily reminder job for tomorrow's appointments
	ctx := context.Background()
	reminders := appointments.NewReminderJob(repo, notifier, cfg.Location, logger)
	reminders.Start(ctx)
	defer reminders.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	router := gin.Default()

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, db, cfg, service, mailer, logger)

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("Server running", zap.String("port", cfg.Port))
	if err := router.Run(serverAddr); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}
