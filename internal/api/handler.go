package api

import (
	"errors"
	"net/http"

	"iap-gateway/internal/appstore"
	"iap-gateway/internal/events"
	"iap-gateway/internal/jws"
	"iap-gateway/internal/models"
	"iap-gateway/internal/notifications"
	"iap-gateway/internal/response"
	"iap-gateway/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler holds the services behind the HTTP routes.
type Handler struct {
	notifications *services.NotificationService
	verification  *services.SubscriptionVerificationService
	db            *gorm.DB
}

func NewHandler(notificationService *services.NotificationService, verificationService *services.SubscriptionVerificationService, db *gorm.DB) *Handler {
	return &Handler{
		notifications: notificationService,
		verification:  verificationService,
		db:            db,
	}
}

// writeError maps a service error to a status code and a stable error code.
func writeError(c *gin.Context, err error) {
	var statusErr *appstore.InvalidReceiptStatusError
	switch {
	case errors.As(err, &statusErr):
		response.ErrorDataJSON(c, http.StatusUnprocessableEntity, "invalid_receipt_status", statusErr.Error(), gin.H{
			"status": statusErr.Code,
			"reason": statusErr.Reason,
		})
	case errors.Is(err, jws.ErrSignatureRejected):
		response.ErrorJSON(c, http.StatusBadRequest, "signature_rejected", "Signature verification failed")
	case errors.Is(err, jws.ErrMalformedToken):
		response.ErrorJSON(c, http.StatusBadRequest, "malformed_token", err.Error())
	case errors.Is(err, models.ErrDecode):
		response.ErrorJSON(c, http.StatusBadRequest, "invalid_body", err.Error())
	case errors.Is(err, events.ErrUnknownNotificationType):
		response.ErrorJSON(c, http.StatusBadRequest, "unknown_notification_type", err.Error())
	case errors.Is(err, events.ErrNotSubscriptionNotification):
		response.ErrorJSON(c, http.StatusBadRequest, "not_subscription_notification", err.Error())
	case errors.Is(err, notifications.ErrUnknownProvider):
		response.ErrorJSON(c, http.StatusBadRequest, "unknown_provider", err.Error())
	case errors.Is(err, services.ErrBundleNotAllowed):
		response.ErrorJSON(c, http.StatusForbidden, "bundle_not_allowed", err.Error())
	case errors.Is(err, notifications.ErrNoSubscription), errors.Is(err, gorm.ErrRecordNotFound):
		response.ErrorJSON(c, http.StatusNotFound, "subscription_not_found", "Subscription not found")
	case errors.Is(err, notifications.ErrNoFetcher):
		response.ErrorJSON(c, http.StatusServiceUnavailable, "google_play_unavailable", err.Error())
	default:
		response.ErrorJSON(c, http.StatusInternalServerError, "internal_error", "Failed to process request")
	}
}

// SubscriptionView is the JSON form of a subscription snapshot.
type SubscriptionView struct {
	Provider         notifications.Provider `json:"provider"`
	UniqueIdentifier string                 `json:"unique_identifier"`
	ItemID           string                 `json:"item_id"`
	ExpiresDate      models.Time            `json:"expires_date"`
	IsActive         bool                   `json:"is_active"`
}

func newSubscriptionView(s notifications.Subscription) SubscriptionView {
	return SubscriptionView{
		Provider:         s.Provider,
		UniqueIdentifier: s.UniqueIdentifier,
		ItemID:           s.ItemID,
		ExpiresDate:      s.ExpiryTime,
		IsActive:         s.IsActive(),
	}
}
