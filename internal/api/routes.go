package api

import (
	"iap-gateway/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, h *Handler, apiKey string) {
	// Generic provider notification entry (providers call this, no API key)
	r.POST("/iap/notifications", h.NotificationHandler)

	api := r.Group("/api")
	{
		// App Store notification routes (no authentication, Apple calls these)
		appstore := api.Group("/appstore")
		{
			appstore.POST("/notifications/production", h.AppStoreProductionNotificationHandler)
			appstore.POST("/notifications/sandbox", h.AppStoreSandboxNotificationHandler)
		}

		// Google Play RTDN push endpoint
		googleplay := api.Group("/googleplay")
		{
			googleplay.POST("/notifications", h.GooglePlayNotificationHandler)
		}

		// Subscription routes for app backend
		subscription := api.Group("/subscription")
		subscription.Use(middleware.APIKeyAuthMiddleware(apiKey))
		{
			subscription.POST("/verify", h.VerifySubscription)
			subscription.POST("/google/verify", h.VerifyGoogleSubscription)
			subscription.GET("/status", h.GetSubscriptionStatus)
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "iap-gateway",
		})
	})
}
