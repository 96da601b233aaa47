package events

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"iap-gateway/internal/googleplay"
	"iap-gateway/internal/notifications"
)

var (
	ErrUnknownNotificationType = errors.New("unknown notification type")

	// ErrNotSubscriptionNotification is returned for Google Play test and
	// one-time product notifications, which map to no purchase event.
	ErrNotSubscriptionNotification = errors.New("not a subscription notification")
)

// UnknownNotificationTypeError reports a type with no event mapping.
type UnknownNotificationTypeError struct {
	Provider notifications.Provider
	Type     string
}

func (e *UnknownNotificationTypeError) Error() string {
	return fmt.Sprintf("unknown %s notification type %q", e.Provider, e.Type)
}

func (e *UnknownNotificationTypeError) Unwrap() error {
	return ErrUnknownNotificationType
}

type constructor func(kind Kind, n notifications.ServerNotification) Event

func purchase(kind Kind, n notifications.ServerNotification) Event {
	return &PurchaseEvent{kind: kind, notification: n}
}

func base(kind Kind, n notifications.ServerNotification) PurchaseEvent {
	return PurchaseEvent{kind: kind, notification: n}
}

var appStoreEvents = map[Kind]constructor{
	KindConsumptionRequest: func(k Kind, n notifications.ServerNotification) Event {
		return &ConsumptionRequest{base(k, n)}
	},
	KindDidChangeRenewalPref: func(k Kind, n notifications.ServerNotification) Event {
		return &DidChangeRenewalPref{base(k, n)}
	},
	KindDidChangeRenewalStatus: func(k Kind, n notifications.ServerNotification) Event {
		return &DidChangeRenewalStatus{base(k, n)}
	},
	KindDidRenew: func(k Kind, n notifications.ServerNotification) Event {
		return &DidRenew{renewedEvent{base(k, n)}}
	},
	KindRenewal: func(k Kind, n notifications.ServerNotification) Event {
		return &Renewal{renewedEvent{base(k, n)}}
	},
	KindInteractiveRenewal: func(k Kind, n notifications.ServerNotification) Event {
		return &InteractiveRenewal{renewedEvent{base(k, n)}}
	},
	KindPriceIncrease: func(k Kind, n notifications.ServerNotification) Event {
		return &PriceIncrease{base(k, n)}
	},

	KindDidFailToRenew:        purchase,
	KindDidRecover:            purchase,
	KindExpired:               purchase,
	KindExternalPurchaseToken: purchase,
	KindGracePeriodExpired:    purchase,
	KindOfferRedeemed:         purchase,
	KindOneTimeCharge:         purchase,
	KindRefund:                purchase,
	KindRefundDeclined:        purchase,
	KindRefundReversed:        purchase,
	KindRenewalExtended:       purchase,
	KindRenewalExtension:      purchase,
	KindRevoke:                purchase,
	KindSubscribed:            purchase,
	KindCancel:                purchase,
	KindInitialBuy:            purchase,
	KindPriceIncreaseConsent:  purchase,
}

var googlePlayEvents = map[Kind]constructor{
	KindSubscriptionRestarted: func(k Kind, n notifications.ServerNotification) Event {
		return &SubscriptionRestarted{base(k, n)}
	},

	KindSubscriptionRecovered:            purchase,
	KindSubscriptionRenewed:              purchase,
	KindSubscriptionCanceled:             purchase,
	KindSubscriptionPurchased:            purchase,
	KindSubscriptionOnHold:               purchase,
	KindSubscriptionInGracePeriod:        purchase,
	KindSubscriptionPriceChangeConfirmed: purchase,
	KindSubscriptionDeferred:             purchase,
	KindSubscriptionPaused:               purchase,
	KindSubscriptionPauseScheduleChanged: purchase,
	KindSubscriptionRevoked:              purchase,
	KindSubscriptionExpired:              purchase,
}

// ResolveEvent picks the event for a notification.
func ResolveEvent(n notifications.ServerNotification) (Event, error) {
	switch n.Provider() {
	case notifications.ProviderAppStore:
		return resolve(appStoreEvents, n, canonicalType(n.Type()))
	case notifications.ProviderGooglePlay:
		kind, err := googlePlayKind(n)
		if err != nil {
			return nil, err
		}
		return resolve(googlePlayEvents, n, kind)
	default:
		return nil, fmt.Errorf("%w: %q", notifications.ErrUnknownProvider, n.Provider())
	}
}

func resolve(table map[Kind]constructor, n notifications.ServerNotification, kind Kind) (Event, error) {
	ctor, ok := table[kind]
	if !ok {
		return nil, &UnknownNotificationTypeError{Provider: n.Provider(), Type: n.Type()}
	}
	return ctor(kind, n), nil
}

func canonicalType(raw string) Kind {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return Kind(strings.ToUpper(s))
}

// googlePlayKind maps the integer type through the named constant table.
func googlePlayKind(n notifications.ServerNotification) (Kind, error) {
	if g, ok := n.(*notifications.GooglePlayNotification); ok {
		if _, ok := g.DeveloperNotification().SubscriptionNotification(); !ok {
			return "", ErrNotSubscriptionNotification
		}
	}
	if n.IsTest() {
		return "", ErrNotSubscriptionNotification
	}

	v, err := strconv.Atoi(n.Type())
	if err != nil {
		return "", &UnknownNotificationTypeError{Provider: n.Provider(), Type: n.Type()}
	}
	t := googleplay.SubscriptionNotificationType(v)
	if !t.Valid() {
		return "", &UnknownNotificationTypeError{Provider: n.Provider(), Type: n.Type()}
	}
	return Kind(t.String()), nil
}
