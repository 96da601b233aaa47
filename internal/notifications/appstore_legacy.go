package notifications

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"iap-gateway/internal/appstore"
	"iap-gateway/internal/models"
)

// AppStoreNotification is an unsigned App Store Server Notification V1.
type AppStoreNotification struct {
	body          models.AppStoreLegacyNotification
	receipt       *appstore.ReceiptResponse
	latestReceipt []byte
	raw           models.Attributes
	receivedAt    models.Time
}

// ParseAppStoreNotification decodes a legacy JSON body.
func ParseAppStoreNotification(raw []byte) (*AppStoreNotification, error) {
	const source = "app store notification"

	attrs, err := models.DecodeAttributes(raw)
	if err != nil {
		return nil, models.NewDecodeError(source, err)
	}

	n := &AppStoreNotification{raw: attrs, receivedAt: models.Now()}
	if err := json.Unmarshal(raw, &n.body); err != nil {
		return nil, models.NewDecodeError(source, err)
	}
	if n.body.NotificationType == "" {
		return nil, models.MissingKeyError(source, "notification_type")
	}

	unified, ok := attrs.Map("unified_receipt")
	if !ok {
		return nil, models.MissingKeyError(source, "unified_receipt")
	}
	if n.receipt, err = appstore.NewReceiptResponse(unified); err != nil {
		return nil, err
	}

	latest, ok := n.receipt.LatestReceipt()
	if !ok {
		return nil, models.MissingKeyError(source, "unified_receipt.latest_receipt")
	}
	if n.latestReceipt, err = base64.StdEncoding.DecodeString(latest); err != nil {
		return nil, models.NewDecodeError("unified_receipt.latest_receipt", fmt.Errorf("invalid base64: %w", err))
	}
	if len(n.receipt.LatestReceiptInfo()) == 0 {
		return nil, models.MissingKeyError(source, "unified_receipt.latest_receipt_info")
	}
	return n, nil
}

func (n *AppStoreNotification) Type() string { return n.body.NotificationType }

func (n *AppStoreNotification) Provider() Provider { return ProviderAppStore }

// IsTest is always false: V1 bodies have no test marker.
func (n *AppStoreNotification) IsTest() bool { return false }

func (n *AppStoreNotification) BundleID() string { return n.body.BundleID }

func (n *AppStoreNotification) BundleVersion() string { return n.body.BundleVersion }

func (n *AppStoreNotification) Environment() string { return n.body.Environment }

// Password is the shared secret Apple echoes back.
func (n *AppStoreNotification) Password() string { return n.body.Password }

// OccurredAt falls back to the receive time, V1 bodies carry no send time.
func (n *AppStoreNotification) OccurredAt() models.Time {
	if n.body.AutoRenewStatusChangeDate != nil {
		return *n.body.AutoRenewStatusChangeDate
	}
	return n.receivedAt
}

func (n *AppStoreNotification) Payload() map[string]any { return n.raw.Clone() }

func (n *AppStoreNotification) UnifiedReceipt() *appstore.ReceiptResponse { return n.receipt }

// LatestReceipt returns the decoded latest_receipt blob.
func (n *AppStoreNotification) LatestReceipt() ([]byte, bool) {
	if n.latestReceipt == nil {
		return nil, false
	}
	return append([]byte(nil), n.latestReceipt...), true
}

// LatestTransaction is element 0 of latest_receipt_info.
func (n *AppStoreNotification) LatestTransaction() (appstore.LatestReceiptInfo, bool) {
	infos := n.receipt.LatestReceiptInfo()
	if len(infos) == 0 {
		return appstore.LatestReceiptInfo{}, false
	}
	return infos[0], true
}

func (n *AppStoreNotification) AutoRenewProductID() (string, bool) {
	return n.body.AutoRenewProductID, n.body.AutoRenewProductID != ""
}

// IsAutoRenewal is true only for an explicit "true" auto_renew_status.
func (n *AppStoreNotification) IsAutoRenewal() bool {
	return n.body.AutoRenewStatus == "true"
}

func (n *AppStoreNotification) AutoRenewStatusChangeDate() (models.Time, bool) {
	if n.body.AutoRenewStatusChangeDate == nil {
		return 0, false
	}
	return *n.body.AutoRenewStatusChangeDate, true
}

func (n *AppStoreNotification) Subscription(ctx context.Context) (Subscription, error) {
	info, ok := n.LatestTransaction()
	if !ok || info.ExpiresDate == nil {
		return Subscription{}, ErrNoSubscription
	}
	return Subscription{
		ExpiryTime:       *info.ExpiresDate,
		ItemID:           info.ProductID,
		Provider:         ProviderAppStore,
		UniqueIdentifier: info.OriginalTransactionID,
		Representation:   info,
	}, nil
}
