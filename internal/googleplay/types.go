// Package googleplay decodes Google Play real-time developer notifications
// and wraps the androidpublisher purchase endpoints.
package googleplay

import "strconv"

// SubscriptionNotificationType is subscriptionNotification.notificationType.
type SubscriptionNotificationType int

const (
	SubscriptionRecovered SubscriptionNotificationType = iota + 1
	SubscriptionRenewed
	SubscriptionCanceled
	SubscriptionPurchased
	SubscriptionOnHold
	SubscriptionInGracePeriod
	SubscriptionRestarted
	SubscriptionPriceChangeConfirmed
	SubscriptionDeferred
	SubscriptionPaused
	SubscriptionPauseScheduleChanged
	SubscriptionRevoked
	SubscriptionExpired

	subscriptionNotificationTypeCount = int(SubscriptionExpired)
)

var subscriptionNotificationNames = [...]string{
	SubscriptionRecovered - 1:            "SUBSCRIPTION_RECOVERED",
	SubscriptionRenewed - 1:              "SUBSCRIPTION_RENEWED",
	SubscriptionCanceled - 1:             "SUBSCRIPTION_CANCELED",
	SubscriptionPurchased - 1:            "SUBSCRIPTION_PURCHASED",
	SubscriptionOnHold - 1:               "SUBSCRIPTION_ON_HOLD",
	SubscriptionInGracePeriod - 1:        "SUBSCRIPTION_IN_GRACE_PERIOD",
	SubscriptionRestarted - 1:            "SUBSCRIPTION_RESTARTED",
	SubscriptionPriceChangeConfirmed - 1: "SUBSCRIPTION_PRICE_CHANGE_CONFIRMED",
	SubscriptionDeferred - 1:             "SUBSCRIPTION_DEFERRED",
	SubscriptionPaused - 1:               "SUBSCRIPTION_PAUSED",
	SubscriptionPauseScheduleChanged - 1: "SUBSCRIPTION_PAUSE_SCHEDULE_CHANGED",
	SubscriptionRevoked - 1:              "SUBSCRIPTION_REVOKED",
	SubscriptionExpired - 1:              "SUBSCRIPTION_EXPIRED",
}

// fails to compile if a constant is added without a name
var _ = [1]int{}[len(subscriptionNotificationNames)-subscriptionNotificationTypeCount]

func (t SubscriptionNotificationType) Valid() bool {
	return t >= SubscriptionRecovered && t <= SubscriptionExpired
}

// String returns the upper-snake name, or the number for unknown values.
func (t SubscriptionNotificationType) String() string {
	if !t.Valid() {
		return strconv.Itoa(int(t))
	}
	return subscriptionNotificationNames[t-1]
}

// ParseSubscriptionNotificationType looks a type up by its name.
func ParseSubscriptionNotificationType(name string) (SubscriptionNotificationType, bool) {
	for i, n := range subscriptionNotificationNames {
		if n == name {
			return SubscriptionNotificationType(i + 1), true
		}
	}
	return 0, false
}

// OneTimeProductNotificationType is oneTimeProductNotification.notificationType.
type OneTimeProductNotificationType int

const (
	OneTimeProductPurchased OneTimeProductNotificationType = 1
	OneTimeProductCanceled  OneTimeProductNotificationType = 2
)

func (t OneTimeProductNotificationType) String() string {
	switch t {
	case OneTimeProductPurchased:
		return "ONE_TIME_PRODUCT_PURCHASED"
	case OneTimeProductCanceled:
		return "ONE_TIME_PRODUCT_CANCELED"
	default:
		return strconv.Itoa(int(t))
	}
}
