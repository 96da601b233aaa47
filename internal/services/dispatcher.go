package services

import (
	"context"
	"errors"
	"fmt"

	"iap-gateway/internal/events"
	"iap-gateway/internal/models"
	"iap-gateway/internal/notifications"
	"iap-gateway/pkg/logging"

	"github.com/google/uuid"
)

// EventEnvelope is the provider independent record handed to listeners.
type EventEnvelope struct {
	ID               string                 `json:"id"`
	Kind             events.Kind            `json:"kind"`
	Provider         notifications.Provider `json:"provider"`
	NotificationType string                 `json:"notification_type"`
	Subtype          string                 `json:"subtype,omitempty"`
	BundleID         string                 `json:"bundle_id"`
	UniqueIdentifier string                 `json:"unique_identifier,omitempty"`
	ItemID           string                 `json:"item_id,omitempty"`
	ExpiresDate      *models.Time           `json:"expires_date,omitempty"`
	OccurredAt       models.Time            `json:"occurred_at"`
}

// Listener receives every dispatched event once.
type Listener interface {
	Name() string
	Deliver(ctx context.Context, envelope EventEnvelope) error
}

// Dispatcher fans a resolved event out to its listeners.
type Dispatcher struct {
	listeners []Listener
}

func NewDispatcher(listeners ...Listener) *Dispatcher {
	return &Dispatcher{listeners: listeners}
}

// Dispatch builds the envelope and calls every listener. Listener errors
// are joined; a failing listener does not stop the others.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.Event) (EventEnvelope, error) {
	envelope, err := NewEventEnvelope(ctx, event)
	if err != nil {
		return envelope, err
	}

	var errs []error
	for _, l := range d.listeners {
		if err := l.Deliver(ctx, envelope); err != nil {
			logging.Errorf("Listener %s failed - event: %s, kind: %s, error: %v", l.Name(), envelope.ID, envelope.Kind, err)
			errs = append(errs, fmt.Errorf("%s: %w", l.Name(), err))
		}
	}
	return envelope, errors.Join(errs...)
}

// NewEventEnvelope snapshots the subscription behind event. Notifications
// without a snapshot still produce an envelope, with the lineage taken from
// the notification itself when possible.
func NewEventEnvelope(ctx context.Context, event events.Event) (EventEnvelope, error) {
	n := event.Notification()
	envelope := EventEnvelope{
		ID:               uuid.NewString(),
		Kind:             event.Kind(),
		Provider:         n.Provider(),
		NotificationType: n.Type(),
		BundleID:         n.BundleID(),
		OccurredAt:       n.OccurredAt(),
	}
	if s, ok := n.(interface{ Subtype() (string, bool) }); ok {
		envelope.Subtype, _ = s.Subtype()
	}

	sub, err := event.Subscription(ctx)
	switch {
	case err == nil:
		expires := sub.ExpiryTime
		envelope.UniqueIdentifier = sub.UniqueIdentifier
		envelope.ItemID = sub.ItemID
		envelope.ExpiresDate = &expires
	case errors.Is(err, notifications.ErrNoSubscription), errors.Is(err, notifications.ErrNoFetcher):
		envelope.UniqueIdentifier, envelope.ItemID = lineageOf(n)
	default:
		return envelope, fmt.Errorf("failed to load subscription: %w", err)
	}
	return envelope, nil
}

func lineageOf(n notifications.ServerNotification) (string, string) {
	switch v := n.(type) {
	case *notifications.GooglePlayNotification:
		if p, ok := v.DeveloperNotification().SubscriptionNotification(); ok {
			return p.PurchaseToken, p.SubscriptionID
		}
	case *notifications.AppStoreV2Notification:
		if tx, ok := v.Transaction(); ok {
			otid, _ := tx.OriginalTransactionID()
			productID, _ := tx.ProductID()
			return otid, productID
		}
	case *notifications.AppStoreNotification:
		if info, ok := v.LatestTransaction(); ok {
			return info.OriginalTransactionID, info.ProductID
		}
	}
	return "", ""
}
