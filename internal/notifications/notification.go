// Package notifications turns raw provider webhook bodies into a single
// ServerNotification shape.
package notifications

import (
	"context"
	"errors"
	"fmt"

	"iap-gateway/internal/models"
)

// Provider names the store a notification came from.
type Provider string

const (
	ProviderAppStore   Provider = "app-store"
	ProviderGooglePlay Provider = "google-play"
)

var (
	ErrUnknownProvider = errors.New("unknown notification provider")

	// ErrNoSubscription is returned when a notification carries no
	// subscription snapshot.
	ErrNoSubscription = errors.New("notification carries no subscription")
)

// ParseProvider accepts the provider tags used in routes and query strings.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderAppStore, ProviderGooglePlay:
		return Provider(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
}

// ServerNotification is a decoded provider notification.
type ServerNotification interface {
	// Type is the provider native type token: an App Store type name or a
	// Google Play integer rendered in decimal.
	Type() string
	Provider() Provider
	IsTest() bool
	BundleID() string
	// OccurredAt is when the provider says the notification was produced.
	OccurredAt() models.Time
	// Payload is a copy of the decoded body.
	Payload() map[string]any
	Subscription(ctx context.Context) (Subscription, error)
}

// Subscription is the current state of a purchase lineage.
type Subscription struct {
	ExpiryTime       models.Time
	ItemID           string
	Provider         Provider
	UniqueIdentifier string

	// Representation is the provider record the snapshot was built from:
	// appstore.LatestReceiptInfo, *appstore.TransactionClaims or
	// *googleplay.SubscriptionPurchase.
	Representation any
}

// IsActive reports whether the subscription has not expired yet.
func (s Subscription) IsActive() bool {
	return s.ExpiryTime.IsFuture()
}
