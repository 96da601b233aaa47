package services

import (
	"context"
	"errors"
	"fmt"

	"iap-gateway/internal/events"
	"iap-gateway/internal/notifications"
	"iap-gateway/pkg/logging"
)

// ErrBundleNotAllowed is returned for notifications of apps this gateway does not serve.
var ErrBundleNotAllowed = errors.New("bundle id not allowed")

// Outcome says what happened to an accepted notification.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeTest      Outcome = "test"
	OutcomeIgnored   Outcome = "ignored"
)

// NotificationDecoder is satisfied by *notifications.Decoder.
type NotificationDecoder interface {
	DecodeNotification(ctx context.Context, provider notifications.Provider, raw []byte) (notifications.ServerNotification, error)
}

// NotificationService runs decode, dedupe, resolve and dispatch for one
// inbound webhook body.
type NotificationService struct {
	decoder        NotificationDecoder
	guard          ReplayGuard
	dispatcher     *Dispatcher
	allowedBundles map[string]struct{}
}

// NewNotificationService creates the service. An empty allow-list accepts
// every bundle id.
func NewNotificationService(decoder NotificationDecoder, guard ReplayGuard, dispatcher *Dispatcher, allowedBundleIDs []string) *NotificationService {
	allowed := make(map[string]struct{}, len(allowedBundleIDs))
	for _, id := range allowedBundleIDs {
		allowed[id] = struct{}{}
	}
	return &NotificationService{
		decoder:        decoder,
		guard:          guard,
		dispatcher:     dispatcher,
		allowedBundles: allowed,
	}
}

// Handle processes a raw notification body. Decode, signature and
// resolution failures are returned unchanged so callers can map them.
func (s *NotificationService) Handle(ctx context.Context, provider notifications.Provider, body []byte) (Outcome, error) {
	n, err := s.decoder.DecodeNotification(ctx, provider, body)
	if err != nil {
		return "", err
	}

	if !s.bundleAllowed(n.BundleID()) {
		return "", fmt.Errorf("%w: %q", ErrBundleNotAllowed, n.BundleID())
	}

	if n.IsTest() {
		logging.Infof("Test notification received - provider: %s, bundle: %s", n.Provider(), n.BundleID())
		return OutcomeTest, nil
	}

	if g, ok := n.(*notifications.GooglePlayNotification); ok {
		if p, ok := g.DeveloperNotification().OneTimeProductNotification(); ok {
			logging.Infof("One-time product notification ignored - package: %s, sku: %s, type: %s",
				n.BundleID(), p.SKU, p.NotificationType)
			return OutcomeIgnored, nil
		}
	}

	key := ReplayKey(n)
	if key != "" {
		seen, err := s.guard.Seen(ctx, key)
		if err != nil {
			return "", err
		}
		if seen {
			return OutcomeDuplicate, nil
		}
	} else {
		logging.Infof("Notification has no replay key, skipping replay check")
	}

	event, err := events.ResolveEvent(n)
	if err != nil {
		s.forget(ctx, key)
		return "", err
	}

	envelope, err := s.dispatcher.Dispatch(ctx, event)
	if err != nil {
		s.forget(ctx, key)
		return "", fmt.Errorf("failed to dispatch event: %w", err)
	}

	logging.Infof("Notification processed - provider: %s, type: %s, kind: %s, lineage: %s",
		envelope.Provider, envelope.NotificationType, envelope.Kind, envelope.UniqueIdentifier)
	return OutcomeProcessed, nil
}

func (s *NotificationService) bundleAllowed(bundleID string) bool {
	if len(s.allowedBundles) == 0 {
		return true
	}
	_, ok := s.allowedBundles[bundleID]
	return ok
}

func (s *NotificationService) forget(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.guard.Forget(ctx, key); err != nil {
		logging.Errorf("Failed to release replay key: %v", err)
	}
}

// ReplayKey identifies one delivery of a notification. Empty when the body
// has nothing stable to key on.
func ReplayKey(n notifications.ServerNotification) string {
	switch v := n.(type) {
	case *notifications.AppStoreV2Notification:
		if id, ok := v.Decoded().NotificationUUID(); ok {
			return "app-store:" + id
		}
	case *notifications.GooglePlayNotification:
		d := v.DeveloperNotification()
		if d.MessageID != "" {
			return "google-play:" + d.MessageID
		}
		return fmt.Sprintf("google-play:%s:%s:%d:%s", d.PackageName, d.PurchaseToken(), d.EventTimeMillis.Milliseconds(), v.Type())
	case *notifications.AppStoreNotification:
		if info, ok := v.LatestTransaction(); ok {
			// renewal toggles share a transaction, the renewal state tells them apart
			changed, _ := v.AutoRenewStatusChangeDate()
			return fmt.Sprintf("app-store:%s:%s:%s:%t:%d", info.OriginalTransactionID, info.TransactionID, v.Type(),
				v.IsAutoRenewal(), changed.Milliseconds())
		}
	}
	return ""
}
