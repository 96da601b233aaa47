// Package events maps normalized notifications onto a closed set of
// purchase lifecycle events.
package events

// Kind names a purchase event. The set is closed: ResolveEvent never
// produces a Kind outside this list.
type Kind string

// App Store notification types, V2 and V1.
const (
	KindConsumptionRequest     Kind = "CONSUMPTION_REQUEST"
	KindDidChangeRenewalPref   Kind = "DID_CHANGE_RENEWAL_PREF"
	KindDidChangeRenewalStatus Kind = "DID_CHANGE_RENEWAL_STATUS"
	KindDidFailToRenew         Kind = "DID_FAIL_TO_RENEW"
	KindDidRecover             Kind = "DID_RECOVER"
	KindDidRenew               Kind = "DID_RENEW"
	KindExpired                Kind = "EXPIRED"
	KindExternalPurchaseToken  Kind = "EXTERNAL_PURCHASE_TOKEN"
	KindGracePeriodExpired     Kind = "GRACE_PERIOD_EXPIRED"
	KindOfferRedeemed          Kind = "OFFER_REDEEMED"
	KindOneTimeCharge          Kind = "ONE_TIME_CHARGE"
	KindPriceIncrease          Kind = "PRICE_INCREASE"
	KindRefund                 Kind = "REFUND"
	KindRefundDeclined         Kind = "REFUND_DECLINED"
	KindRefundReversed         Kind = "REFUND_REVERSED"
	KindRenewalExtended        Kind = "RENEWAL_EXTENDED"
	KindRenewalExtension       Kind = "RENEWAL_EXTENSION"
	KindRevoke                 Kind = "REVOKE"
	KindSubscribed             Kind = "SUBSCRIBED"

	// V1 only
	KindCancel               Kind = "CANCEL"
	KindInitialBuy           Kind = "INITIAL_BUY"
	KindInteractiveRenewal   Kind = "INTERACTIVE_RENEWAL"
	KindPriceIncreaseConsent Kind = "PRICE_INCREASE_CONSENT"
	KindRenewal              Kind = "RENEWAL"
)

// Google Play subscription notification types.
const (
	KindSubscriptionRecovered            Kind = "SUBSCRIPTION_RECOVERED"
	KindSubscriptionRenewed              Kind = "SUBSCRIPTION_RENEWED"
	KindSubscriptionCanceled             Kind = "SUBSCRIPTION_CANCELED"
	KindSubscriptionPurchased            Kind = "SUBSCRIPTION_PURCHASED"
	KindSubscriptionOnHold               Kind = "SUBSCRIPTION_ON_HOLD"
	KindSubscriptionInGracePeriod        Kind = "SUBSCRIPTION_IN_GRACE_PERIOD"
	KindSubscriptionRestarted            Kind = "SUBSCRIPTION_RESTARTED"
	KindSubscriptionPriceChangeConfirmed Kind = "SUBSCRIPTION_PRICE_CHANGE_CONFIRMED"
	KindSubscriptionDeferred             Kind = "SUBSCRIPTION_DEFERRED"
	KindSubscriptionPaused               Kind = "SUBSCRIPTION_PAUSED"
	KindSubscriptionPauseScheduleChanged Kind = "SUBSCRIPTION_PAUSE_SCHEDULE_CHANGED"
	KindSubscriptionRevoked              Kind = "SUBSCRIPTION_REVOKED"
	KindSubscriptionExpired              Kind = "SUBSCRIPTION_EXPIRED"
)

func (k Kind) String() string { return string(k) }
