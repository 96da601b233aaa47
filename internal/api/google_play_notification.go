package api

import (
	"iap-gateway/internal/notifications"

	"github.com/gin-gonic/gin"
)

// GooglePlayNotificationHandler handles Google Play Real-Time Developer Notifications
// delivered by a Pub/Sub push subscription
// POST /api/googleplay/notifications
func (h *Handler) GooglePlayNotificationHandler(c *gin.Context) {
	h.processNotification(c, notifications.ProviderGooglePlay, "pubsub")
}
