package notifications

import (
	"context"

	"iap-gateway/internal/appstore"
	"iap-gateway/internal/models"
)

// AppStoreV2Notification is a verified App Store Server Notification V2.
type AppStoreV2Notification struct {
	payload *appstore.DecodedPayload
}

func NewAppStoreV2Notification(payload *appstore.DecodedPayload) *AppStoreV2Notification {
	return &AppStoreV2Notification{payload: payload}
}

func (n *AppStoreV2Notification) Type() string { return n.payload.NotificationType() }

func (n *AppStoreV2Notification) Provider() Provider { return ProviderAppStore }

func (n *AppStoreV2Notification) IsTest() bool { return n.payload.IsTest() }

func (n *AppStoreV2Notification) BundleID() string {
	v, _ := n.payload.BundleID()
	return v
}

func (n *AppStoreV2Notification) Subtype() (string, bool) { return n.payload.Subtype() }

func (n *AppStoreV2Notification) OccurredAt() models.Time {
	if t, ok := n.payload.SignedDate(); ok {
		return t
	}
	return models.Now()
}

func (n *AppStoreV2Notification) Payload() map[string]any { return n.payload.Claims() }

func (n *AppStoreV2Notification) Decoded() *appstore.DecodedPayload { return n.payload }

func (n *AppStoreV2Notification) Transaction() (*appstore.TransactionClaims, bool) {
	return n.payload.TransactionInfo()
}

func (n *AppStoreV2Notification) Renewal() (*appstore.RenewalClaims, bool) {
	return n.payload.RenewalInfo()
}

func (n *AppStoreV2Notification) AutoRenewProductID() (string, bool) {
	if r, ok := n.payload.RenewalInfo(); ok {
		return r.AutoRenewProductID()
	}
	return "", false
}

func (n *AppStoreV2Notification) IsAutoRenewal() bool {
	r, ok := n.payload.RenewalInfo()
	return ok && r.IsAutoRenewing()
}

// AutoRenewStatusChangeDate is only carried by V1 bodies.
func (n *AppStoreV2Notification) AutoRenewStatusChangeDate() (models.Time, bool) {
	return 0, false
}

// Subscription reads the nested transaction. An expired transaction is still
// returned; callers check IsActive.
func (n *AppStoreV2Notification) Subscription(ctx context.Context) (Subscription, error) {
	tx, ok := n.payload.TransactionInfo()
	if !ok {
		return Subscription{}, ErrNoSubscription
	}
	expires, ok := tx.ExpiresDate()
	if !ok {
		return Subscription{}, ErrNoSubscription
	}
	otid, ok := tx.OriginalTransactionID()
	if !ok || otid == "" {
		return Subscription{}, ErrNoSubscription
	}
	productID, _ := tx.ProductID()
	return Subscription{
		ExpiryTime:       expires,
		ItemID:           productID,
		Provider:         ProviderAppStore,
		UniqueIdentifier: otid,
		Representation:   tx,
	}, nil
}
