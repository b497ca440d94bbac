// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"net/http"

	"github.com/AtRiskMedia/siteshell-go/internal/application/container"
	"github.com/AtRiskMedia/siteshell-go/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/siteshell-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/siteshell-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.CORSMiddleware(config.CORSAllowedOrigins))
	r.Use(middleware.SessionMiddleware())

	// Uploaded chat attachments and their thumbnails
	r.Static("/media", container.Attachments.BasePath())

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger)
	chatHandlers := handlers.NewChatHandlers(container.ChatService, container.Attachments, int64(config.MaxUploadBytes), container.Logger)
	leadHandlers := handlers.NewLeadHandlers(container.LeadService, container.Logger)
	analyticsHandlers := handlers.NewAnalyticsHandlers(container.AnalyticsService, container.Logger)
	pwaHandlers := handlers.NewPWAHandlers(container.InstallService, container.Logger)
	shellHandlers := handlers.NewShellHandlers(container.ShellService, container.Logger)
	contentHandlers := handlers.NewContentHandlers(container.Policies, container.Logger)
	realtimeHandlers := handlers.NewRealtimeHandlers(container.Hub, config.CORSAllowedOrigins, container.Logger)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandlers.PostLogin)
			auth.POST("/logout", authHandlers.PostLogout)
			auth.GET("/status", authHandlers.GetAuthStatus)
		}

		chat := api.Group("/chat")
		{
			chat.GET("/state", chatHandlers.GetState)
			chat.POST("/toggle", chatHandlers.PostToggle)
			chat.POST("/minimize", chatHandlers.PostMinimize)
			chat.POST("/messages", chatHandlers.PostMessage)
			chat.DELETE("/messages", chatHandlers.DeleteMessages)
			chat.POST("/quick-reply", chatHandlers.PostQuickReply)
			chat.PUT("/settings", chatHandlers.PutSettings)
			chat.PUT("/user", chatHandlers.PutUser)
			chat.POST("/upload", chatHandlers.PostUpload)
			chat.POST("/voice", chatHandlers.PostVoice)
		}

		api.POST("/leads", leadHandlers.PostLead)

		analytics := api.Group("/analytics")
		{
			analytics.POST("/session", analyticsHandlers.PostSession)
			analytics.POST("/session/end", analyticsHandlers.PostSessionEnd)
			analytics.GET("/events", analyticsHandlers.GetEvents)
			analytics.POST("/events", analyticsHandlers.PostEvent)
			analytics.POST("/heatmap", analyticsHandlers.PostHeatmap)
		}

		pwa := api.Group("/pwa")
		{
			pwa.POST("/init", pwaHandlers.PostInit)
			pwa.POST("/installable", pwaHandlers.PostInstallable)
			pwa.POST("/install", pwaHandlers.PostInstall)
			pwa.POST("/outcome", pwaHandlers.PostOutcome)
			pwa.POST("/installed", pwaHandlers.PostInstalled)
			pwa.POST("/dismiss", pwaHandlers.PostDismiss)
			pwa.GET("/state", pwaHandlers.GetState)
		}

		sw := api.Group("/sw")
		{
			sw.GET("/status", shellHandlers.GetStatus)
			sw.POST("/message", shellHandlers.PostMessage)
			sw.GET("/notification-click", shellHandlers.GetNotificationClick)
		}

		content := api.Group("/content")
		{
			content.GET("/policies", contentHandlers.GetPolicies)
			content.GET("/policies/:slug", contentHandlers.GetPolicy)
		}

		api.GET("/ws", realtimeHandlers.GetWS)

		admin := api.Group("/admin")
		admin.Use(authHandlers.AdminOnlyMiddleware())
		{
			admin.POST("/cache/deploy", shellHandlers.PostDeploy)
			admin.POST("/notify", shellHandlers.PostNotify)
			admin.POST("/content/reload", contentHandlers.PostReload)
		}
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"shell":  container.ShellService.Status(),
		})
	})

	// Everything else is the site shell, served through the offline cache
	r.NoRoute(shellHandlers.ProxyShell)

	return r
}
