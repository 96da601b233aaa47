package api

import (
	"net/http"
	"time"

	"iap-gateway/internal/notifications"
	"iap-gateway/internal/response"
	"iap-gateway/internal/services"
	"iap-gateway/pkg/logging"

	"github.com/gin-gonic/gin"
)

// processNotification reads the body and runs it through the notification service
func (h *Handler) processNotification(c *gin.Context, provider notifications.Provider, source string) {
	startTime := time.Now()

	body, err := c.GetRawData()
	if err != nil {
		logging.Errorf("Failed to read request body: %v", err)
		response.ErrorJSON(c, http.StatusBadRequest, "invalid_body", "Failed to read request body")
		return
	}
	if len(body) == 0 {
		logging.Errorf("Empty request body")
		response.ErrorJSON(c, http.StatusBadRequest, "invalid_body", "Empty request body")
		return
	}

	outcome, err := h.notifications.Handle(c.Request.Context(), provider, body)
	if err != nil {
		logging.Errorf("Failed to process %s notification - source: %s, body length: %d, error: %v",
			provider, source, len(body), err)
		writeError(c, err)
		return
	}

	logging.Infof("%s notification %s - source: %s, duration: %v", provider, outcome, source, time.Since(startTime))

	switch outcome {
	case services.OutcomeDuplicate:
		response.MessageJSON(c, "Notification already processed")
	case services.OutcomeTest:
		response.MessageJSON(c, "Test notification received")
	case services.OutcomeIgnored:
		response.MessageJSON(c, "Notification ignored")
	default:
		response.MessageJSON(c, "Notification processed successfully")
	}
}

// AppStoreProductionNotificationHandler handles App Store production notifications
// POST /api/appstore/notifications/production
func (h *Handler) AppStoreProductionNotificationHandler(c *gin.Context) {
	h.processNotification(c, notifications.ProviderAppStore, "production")
}

// AppStoreSandboxNotificationHandler handles App Store sandbox notifications
// POST /api/appstore/notifications/sandbox
func (h *Handler) AppStoreSandboxNotificationHandler(c *gin.Context) {
	h.processNotification(c, notifications.ProviderAppStore, "sandbox")
}

// NotificationHandler is the provider independent entry point
// POST /iap/notifications?provider=app-store|google-play
func (h *Handler) NotificationHandler(c *gin.Context) {
	provider, err := notifications.ParseProvider(c.Query("provider"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.processNotification(c, provider, "generic")
}
