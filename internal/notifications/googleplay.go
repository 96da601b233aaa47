package notifications

import (
	"context"
	"errors"
	"strconv"

	"iap-gateway/internal/googleplay"
	"iap-gateway/internal/models"
)

// TestNotificationType is the Type of a Google Play test notification.
const TestNotificationType = "-1"

// SubscriptionFetcher loads the current state of a Google Play subscription.
type SubscriptionFetcher interface {
	FetchSubscription(ctx context.Context, packageName, subscriptionID, purchaseToken string) (*googleplay.SubscriptionPurchase, error)
}

// ErrNoFetcher is returned when no Play Developer API client is configured.
var ErrNoFetcher = errors.New("google play subscription fetcher not configured")

// GooglePlayNotification is a decoded real-time developer notification.
type GooglePlayNotification struct {
	notification *googleplay.DeveloperNotification
	fetcher      SubscriptionFetcher
}

func NewGooglePlayNotification(n *googleplay.DeveloperNotification, fetcher SubscriptionFetcher) *GooglePlayNotification {
	return &GooglePlayNotification{notification: n, fetcher: fetcher}
}

func (n *GooglePlayNotification) Type() string {
	switch p := n.notification.Payload.(type) {
	case googleplay.SubscriptionNotification:
		return strconv.Itoa(int(p.NotificationType))
	case googleplay.OneTimeProductNotification:
		return strconv.Itoa(int(p.NotificationType))
	default:
		return TestNotificationType
	}
}

func (n *GooglePlayNotification) Provider() Provider { return ProviderGooglePlay }

func (n *GooglePlayNotification) IsTest() bool { return n.notification.IsTest() }

func (n *GooglePlayNotification) BundleID() string { return n.notification.PackageName }

func (n *GooglePlayNotification) OccurredAt() models.Time { return n.notification.EventTimeMillis }

func (n *GooglePlayNotification) Payload() map[string]any { return n.notification.Raw() }

func (n *GooglePlayNotification) DeveloperNotification() *googleplay.DeveloperNotification {
	return n.notification
}

// Subscription asks the Play Developer API for the purchase behind the token.
func (n *GooglePlayNotification) Subscription(ctx context.Context) (Subscription, error) {
	p, ok := n.notification.SubscriptionNotification()
	if !ok {
		return Subscription{}, ErrNoSubscription
	}
	if n.fetcher == nil {
		return Subscription{}, ErrNoFetcher
	}

	purchase, err := n.fetcher.FetchSubscription(ctx, n.notification.PackageName, p.SubscriptionID, p.PurchaseToken)
	if err != nil {
		return Subscription{}, err
	}
	return Subscription{
		ExpiryTime:       purchase.ExpiryTime,
		ItemID:           p.SubscriptionID,
		Provider:         ProviderGooglePlay,
		UniqueIdentifier: p.PurchaseToken,
		Representation:   purchase,
	}, nil
}
