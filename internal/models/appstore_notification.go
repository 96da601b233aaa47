package models

import "encoding/json"

// AppStoreNotificationWrapper represents the outer wrapper of App Store Server Notification V2
// Apple sends notifications as a JWS in the signedPayload field
type AppStoreNotificationWrapper struct {
	SignedPayload string `json:"signedPayload"` // JWS containing the actual notification
}

// AppStoreLegacyNotification represents an App Store Server Notification V1 body
// Legacy notifications use snake_case field names and carry no signature
type AppStoreLegacyNotification struct {
	NotificationType          string          `json:"notification_type"`                // e.g., "INITIAL_BUY", "DID_RENEW"
	Environment               string          `json:"environment"`                      // "Sandbox" or "PROD"
	Password                  string          `json:"password"`                         // Shared secret echoed back by Apple
	BundleID                  string          `json:"bid"`                              // App bundle identifier
	BundleVersion             string          `json:"bvrs"`                             // App version
	AutoRenewStatus           string          `json:"auto_renew_status"`                // "true" or "false"
	AutoRenewProductID        string          `json:"auto_renew_product_id"`            // Product the subscription renews to
	AutoRenewStatusChangeDate *Time           `json:"auto_renew_status_change_date_ms"` // When auto renew was toggled
	UnifiedReceipt            json.RawMessage `json:"unified_receipt"`                  // verifyReceipt shaped block
}

// HasSignedPayload reports whether a raw App Store body is a V2 notification
func HasSignedPayload(body []byte) bool {
	var wrapper AppStoreNotificationWrapper
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return false
	}
	return wrapper.SignedPayload != ""
}
