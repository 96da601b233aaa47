package api

import (
	"net/http"

	"iap-gateway/internal/database"
	"iap-gateway/internal/models"
	"iap-gateway/internal/notifications"
	"iap-gateway/internal/response"
	"iap-gateway/internal/services"
	"iap-gateway/pkg/logging"

	"github.com/gin-gonic/gin"
)

// GetSubscriptionStatusResponse represents subscription status response data
type GetSubscriptionStatusResponse struct {
	Subscription *models.Subscription       `json:"subscription"`
	IsActive     bool                       `json:"is_active"`
	Events       []models.SubscriptionEvent `json:"events"`
}

// GetSubscriptionStatus returns the stored state of a purchase lineage and its event log
// GET /api/subscription/status?provider=app-store&id=xxx
func (h *Handler) GetSubscriptionStatus(c *gin.Context) {
	provider, err := notifications.ParseProvider(c.Query("provider"))
	if err != nil {
		writeError(c, err)
		return
	}
	id := c.Query("id")
	if id == "" {
		response.ErrorJSON(c, http.StatusBadRequest, "invalid_request", "id is required")
		return
	}

	db := h.db.WithContext(c.Request.Context())
	subscription, err := database.GetSubscription(db, string(provider), id)
	if err != nil {
		writeError(c, err)
		return
	}

	history, err := database.ListSubscriptionEvents(db, string(provider), id)
	if err != nil {
		logging.Errorf("Failed to list subscription events: %v", err)
		writeError(c, err)
		return
	}

	response.SuccessJSON(c, GetSubscriptionStatusResponse{
		Subscription: subscription,
		IsActive:     models.TimeFrom(subscription.ExpiresDate).IsFuture() && subscription.Status != services.StatusRefunded && subscription.Status != services.StatusRevoked,
		Events:       history,
	})
}
