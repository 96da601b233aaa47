package events

import (
	"context"

	"iap-gateway/internal/appstore"
	"iap-gateway/internal/models"
	"iap-gateway/internal/notifications"
)

// Event is a resolved purchase event. Implementations live in this package
// only; switch on the concrete type for the kind specific accessors.
type Event interface {
	Kind() Kind
	Notification() notifications.ServerNotification
	Subscription(ctx context.Context) (notifications.Subscription, error)

	event()
}

// PurchaseEvent is the part every event shares.
type PurchaseEvent struct {
	kind         Kind
	notification notifications.ServerNotification
}

func (e *PurchaseEvent) Kind() Kind { return e.kind }

func (e *PurchaseEvent) Notification() notifications.ServerNotification { return e.notification }

func (e *PurchaseEvent) Subscription(ctx context.Context) (notifications.Subscription, error) {
	return e.notification.Subscription(ctx)
}

// SubscriptionID is the product or subscription id of the lineage.
func (e *PurchaseEvent) SubscriptionID(ctx context.Context) (string, error) {
	sub, err := e.Subscription(ctx)
	if err != nil {
		return "", err
	}
	return sub.ItemID, nil
}

// SubscriptionIdentifier is the original transaction id or purchase token.
func (e *PurchaseEvent) SubscriptionIdentifier(ctx context.Context) (string, error) {
	sub, err := e.Subscription(ctx)
	if err != nil {
		return "", err
	}
	return sub.UniqueIdentifier, nil
}

// Subtype is set for App Store V2 notifications that carry one.
func (e *PurchaseEvent) Subtype() (string, bool) {
	if s, ok := e.notification.(interface{ Subtype() (string, bool) }); ok {
		return s.Subtype()
	}
	return "", false
}

func (e *PurchaseEvent) event() {}

// renewalPreferences is implemented by both App Store notification shapes.
type renewalPreferences interface {
	AutoRenewProductID() (string, bool)
	IsAutoRenewal() bool
	AutoRenewStatusChangeDate() (models.Time, bool)
}

// DidChangeRenewalPref is sent when the user picks a different renewal product.
type DidChangeRenewalPref struct {
	PurchaseEvent
}

func (e *DidChangeRenewalPref) AutoRenewProductID() (string, bool) {
	if p, ok := e.notification.(renewalPreferences); ok {
		return p.AutoRenewProductID()
	}
	return "", false
}

// DidChangeRenewalStatus is sent when auto renew is switched on or off.
type DidChangeRenewalStatus struct {
	PurchaseEvent
}

func (e *DidChangeRenewalStatus) IsAutoRenewal() bool {
	p, ok := e.notification.(renewalPreferences)
	return ok && p.IsAutoRenewal()
}

func (e *DidChangeRenewalStatus) AutoRenewStatusChangeDate() (models.Time, bool) {
	if p, ok := e.notification.(renewalPreferences); ok {
		return p.AutoRenewStatusChangeDate()
	}
	return 0, false
}

// renewedEvent backs the events that carry the renewing transaction.
type renewedEvent struct {
	PurchaseEvent
}

// Transaction returns the signed transaction of a V2 notification.
func (e *renewedEvent) Transaction() (*appstore.TransactionClaims, bool) {
	if n, ok := e.notification.(*notifications.AppStoreV2Notification); ok {
		return n.Transaction()
	}
	return nil, false
}

// ProductID reads the V2 transaction, or the latest V1 receipt entry.
func (e *renewedEvent) ProductID() (string, bool) {
	if tx, ok := e.Transaction(); ok {
		return tx.ProductID()
	}
	if n, ok := e.notification.(*notifications.AppStoreNotification); ok {
		if info, ok := n.LatestTransaction(); ok {
			return info.ProductID, true
		}
	}
	return "", false
}

func (e *renewedEvent) ExpiresDate() (models.Time, bool) {
	if tx, ok := e.Transaction(); ok {
		return tx.ExpiresDate()
	}
	if n, ok := e.notification.(*notifications.AppStoreNotification); ok {
		if info, ok := n.LatestTransaction(); ok && info.ExpiresDate != nil {
			return *info.ExpiresDate, true
		}
	}
	return 0, false
}

// DidRenew is the V2 renewal event.
type DidRenew struct {
	renewedEvent
}

// Renewal is the V1 renewal event.
type Renewal struct {
	renewedEvent
}

// InteractiveRenewal is a V1 renewal started by the user.
type InteractiveRenewal struct {
	renewedEvent
}

type PriceIncrease struct {
	PurchaseEvent
}

type ConsumptionRequest struct {
	PurchaseEvent
}

type SubscriptionRestarted struct {
	PurchaseEvent
}
