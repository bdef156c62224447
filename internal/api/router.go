package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/godprim3/intelligent-email-assistant/internal/api/handlers"
	"github.com/godprim3/intelligent-email-assistant/internal/api/middleware"
	"github.com/godprim3/intelligent-email-assistant/internal/config"
	"github.com/godprim3/intelligent-email-assistant/internal/llm"
	"github.com/godprim3/intelligent-email-assistant/internal/services"
	"gorm.io/gorm"
)

// Deps carries the constructed services the router exposes
type Deps struct {
	DB         *gorm.DB
	Router     *llm.Router
	Store      *services.MessageStore
	Prefs      *services.PreferencesStore
	Intake     *services.IntakeService
	Responder  *services.AutoResponder
	Notifier   *services.Notifier
	Scheduler  *services.Scheduler
	LogService *services.LogService
}

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(cfg *config.Config, deps Deps) (*gin.Engine, *middleware.AuthManager, error) {
	router := gin.Default()

	// 配置 CORS - 允许跨域请求
	origins := strings.Split(cfg.CORSOrigins, ",")
	if cfg.CORSOrigins == "" {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authManager, err := middleware.NewAuthManager(cfg.DataDir, cfg.JWTSecret, middleware.DefaultTokenExpiry)
	if err != nil {
		return nil, nil, err
	}

	authHandler := handlers.NewAuthHandler(authManager.JWTManager, deps.LogService)
	messageHandler := handlers.NewMessageHandler(deps.Store, deps.Intake, deps.Responder, deps.LogService)
	preferencesHandler := handlers.NewPreferencesHandler(deps.Prefs, deps.LogService)
	systemHandler := handlers.NewSystemHandler(deps.Router, deps.Scheduler, deps.Notifier, deps.LogService)

	// Health check endpoint (no auth required)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	api := router.Group("/api")
	{
		// Apply API key middleware to all API routes
		api.Use(middleware.APIKeyMiddleware(authManager.APIKeyManager))

		// Auth routes (API key required, but no JWT required)
		auth := api.Group("/auth")
		{
			auth.POST("/token", authHandler.IssueToken)
		}

		// Protected routes (API key + JWT required)
		protected := api.Group("")
		protected.Use(middleware.JWTMiddleware(authManager.JWTManager))
		{
			protected.POST("/auth/refresh", authHandler.RefreshToken)

			// Message routes
			messages := protected.Group("/messages")
			{
				messages.GET("", messageHandler.ListMessages)
				messages.GET("/stats", messageHandler.GetStats)
				messages.POST("/reprocess-failed", messageHandler.ReprocessFailed)
				messages.GET("/:id", messageHandler.GetMessage)
				messages.GET("/:id/preview-response", messageHandler.PreviewResponse)
				messages.POST("/:id/send-response", messageHandler.SendResponse)
				messages.POST("/:id/reprocess", messageHandler.Reprocess)
			}

			// Preference routes
			preferences := protected.Group("/preferences")
			{
				preferences.GET("", preferencesHandler.GetPreferences)
				preferences.PUT("", preferencesHandler.UpdatePreferences)
			}

			// Operational routes
			protected.GET("/providers", systemHandler.GetProviders)
			protected.GET("/scheduler", systemHandler.GetScheduler)
			protected.POST("/scheduler/poll", systemHandler.TriggerPoll)
			protected.POST("/scheduler/respond", systemHandler.TriggerAutoResponse)
			protected.POST("/notifications/test", systemHandler.TestNotification)
			protected.GET("/logs", systemHandler.ListLogs)
		}
	}

	return router, authManager, nil
}
