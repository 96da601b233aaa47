package api

import (
	"net/http"

	"iap-gateway/internal/response"
	"iap-gateway/pkg/logging"

	"github.com/gin-gonic/gin"
)

// VerifySubscriptionRequest represents an App Store receipt verification request
type VerifySubscriptionRequest struct {
	ReceiptData string `json:"receipt_data" binding:"required"` // Base64 receipt
}

// VerifyGoogleSubscriptionRequest represents a Google Play verification request
type VerifyGoogleSubscriptionRequest struct {
	PackageName    string `json:"package_name" binding:"required"`
	SubscriptionID string `json:"subscription_id" binding:"required"`
	PurchaseToken  string `json:"purchase_token" binding:"required"`
}

// VerifySubscriptionResponse represents verify subscription response data
type VerifySubscriptionResponse struct {
	Subscription SubscriptionView `json:"subscription"`
	Status       string           `json:"status"`
	Environment  string           `json:"environment,omitempty"`
}

// VerifySubscription verifies an App Store receipt
// POST /api/subscription/verify
func (h *Handler) VerifySubscription(c *gin.Context) {
	var req VerifySubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "invalid_request", "Invalid request format: "+err.Error())
		return
	}

	result, err := h.verification.VerifyAppleReceipt(c.Request.Context(), req.ReceiptData)
	if err != nil {
		logging.Errorf("Receipt verification failed: %v", err)
		writeError(c, err)
		return
	}

	response.SuccessJSON(c, VerifySubscriptionResponse{
		Subscription: newSubscriptionView(result.Subscription),
		Status:       result.Status,
		Environment:  result.Environment,
	})
}

// VerifyGoogleSubscription pulls the subscription state from the Play Developer API
// POST /api/subscription/google/verify
func (h *Handler) VerifyGoogleSubscription(c *gin.Context) {
	var req VerifyGoogleSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "invalid_request", "Invalid request format: "+err.Error())
		return
	}

	result, err := h.verification.VerifyGooglePlayPurchase(c.Request.Context(), req.PackageName, req.SubscriptionID, req.PurchaseToken)
	if err != nil {
		logging.Errorf("Google Play verification failed - package: %s, subscription: %s, error: %v",
			req.PackageName, req.SubscriptionID, err)
		writeError(c, err)
		return
	}

	response.SuccessJSON(c, VerifySubscriptionResponse{
		Subscription: newSubscriptionView(result.Subscription),
		Status:       result.Status,
	})
}
